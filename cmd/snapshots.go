package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/airframesio/parquet-compare/cmd/compressors"
	"github.com/airframesio/parquet-compare/cmd/tables"
)

// SchemaSegment returns the middle part of a catalog.schema.table name.
// It is used as the listing prefix for the table's snapshots.
func SchemaSegment(fullTableName string) (string, error) {
	parts := strings.Split(fullTableName, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("%w, got '%s'", ErrTableNameInvalid, fullTableName)
	}
	if parts[1] == "" {
		return "", fmt.Errorf("%w: empty schema segment in '%s'", ErrTableNameInvalid, fullTableName)
	}
	return parts[1], nil
}

// SortByRecency orders objects newest first. Objects with the same
// modification time are ordered by key so the choice is deterministic.
func SortByRecency(objects []Object) []Object {
	sorted := make([]Object, len(objects))
	copy(sorted, objects)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].LastModified.Equal(sorted[j].LastModified) {
			return sorted[i].LastModified.After(sorted[j].LastModified)
		}
		return sorted[i].Key < sorted[j].Key
	})
	return sorted
}

// SelectLatest returns the newest and the previous object. ok is false
// when fewer than two objects are given.
func SelectLatest(objects []Object) (newest, previous Object, ok bool) {
	if len(objects) < 2 {
		return Object{}, Object{}, false
	}
	sorted := SortByRecency(objects)
	return sorted[0], sorted[1], true
}

// SnapshotLoader downloads snapshot objects to a local directory and opens
// them through a table engine
type SnapshotLoader struct {
	store  ObjectStore
	source tables.Source
	dir    string
	logger *slog.Logger
}

// NewSnapshotLoader creates a loader writing into dir
func NewSnapshotLoader(store ObjectStore, source tables.Source, dir string, logger *slog.Logger) *SnapshotLoader {
	return &SnapshotLoader{
		store:  store,
		source: source,
		dir:    dir,
		logger: logger,
	}
}

// Load downloads obj, decompresses it when the key carries a compression
// suffix, and opens the result. Only the file footer is read.
func (l *SnapshotLoader) Load(ctx context.Context, bucket string, obj Object) (tables.Table, error) {
	file, err := os.CreateTemp(l.dir, "snapshot-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	l.logger.Debug(fmt.Sprintf("Downloading s3://%s/%s to %s", bucket, obj.Key, file.Name()))
	n, err := l.store.DownloadObject(ctx, bucket, obj.Key, file)
	closeErr := file.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, fmt.Errorf("failed to write %s: %w", file.Name(), closeErr)
	}
	l.logger.Debug(fmt.Sprintf("Downloaded %s (%d bytes)", obj.Key, n))

	local := file.Name()
	if compression := compressors.DetectFromKey(obj.Key); compression != compressors.None {
		local, err = l.decompress(local, compression)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress %s: %w", obj.Key, err)
		}
	}

	table, err := l.source.Open(ctx, local)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot %s: %w", obj.Key, err)
	}
	return table, nil
}

// decompress writes the decoded content of path to a sibling file and
// removes the compressed copy
func (l *SnapshotLoader) decompress(path, compression string) (string, error) {
	codec, err := compressors.GetCodec(compression)
	if err != nil {
		return "", err
	}

	in, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer in.Close()

	reader, err := codec.NewReader(in)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	out, err := os.CreateTemp(l.dir, "snapshot-*.parquet")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	written, err := io.Copy(out, reader)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", err
	}

	if err := os.Remove(path); err != nil {
		l.logger.Debug(fmt.Sprintf("Failed to remove %s: %v", path, err))
	}
	l.logger.Debug(fmt.Sprintf("Decompressed %s with %s (%d bytes)", path, compression, written))

	return out.Name(), nil
}
