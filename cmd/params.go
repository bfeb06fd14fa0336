package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
)

// ErrParse is returned when the parameter record cannot be decoded
var ErrParse = errors.New("failed to parse parameter record")

// Params is the external parameter record driving a run
type Params struct {
	OrgID               int64    `json:"org_id"`
	S3Files             []string `json:"s3_files"`
	FullTableName       string   `json:"full_table_name"`
	Dimensions          []string `json:"dimensions"`
	Metrics             []string `json:"metrics"`
	SaveConvergenceFile bool     `json:"save_convergence_file"`
}

// ObjectURI locates the parameter record either in object storage or on
// the local filesystem
type ObjectURI struct {
	Bucket string
	Key    string
	Path   string
}

// IsS3 reports whether the URI points into object storage
func (u ObjectURI) IsS3() bool {
	return u.Bucket != ""
}

func (u ObjectURI) String() string {
	if u.IsS3() {
		return "s3://" + u.Bucket + "/" + u.Key
	}
	return u.Path
}

// ParseObjectURI accepts s3://bucket/key, file://path or a bare path
func ParseObjectURI(raw string) (ObjectURI, error) {
	if raw == "" {
		return ObjectURI{}, ErrParamsURIRequired
	}

	switch {
	case strings.HasPrefix(raw, "s3://"), strings.HasPrefix(raw, "s3a://"):
		u, err := url.Parse(raw)
		if err != nil {
			return ObjectURI{}, fmt.Errorf("%w: %w", ErrParamsURIInvalid, err)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return ObjectURI{}, fmt.Errorf("%w: '%s'", ErrParamsURIInvalid, raw)
		}
		return ObjectURI{Bucket: u.Host, Key: key}, nil
	case strings.HasPrefix(raw, "file://"):
		path := strings.TrimPrefix(raw, "file://")
		if path == "" {
			return ObjectURI{}, fmt.Errorf("%w: '%s'", ErrParamsURIInvalid, raw)
		}
		return ObjectURI{Path: path}, nil
	case strings.Contains(raw, "://"):
		return ObjectURI{}, fmt.Errorf("%w: '%s'", ErrParamsURIInvalid, raw)
	default:
		return ObjectURI{Path: raw}, nil
	}
}

// LoadParams fetches and strictly decodes the parameter record at rawURI
func LoadParams(ctx context.Context, store ObjectStore, rawURI string) (*Params, error) {
	uri, err := ParseObjectURI(rawURI)
	if err != nil {
		return nil, err
	}

	var body io.ReadCloser
	if uri.IsS3() {
		body, err = store.GetObject(ctx, uri.Bucket, uri.Key)
	} else {
		body, err = os.Open(uri.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read parameter record %s: %w", uri, err)
	}
	defer body.Close()

	return DecodeParams(body)
}

// DecodeParams reads a stream of JSON parameter records (one object, JSON
// lines, or a top-level array) and returns the first. Every record must
// decode; a malformed or mistyped record anywhere fails the whole read.
// Unknown keys are ignored.
func DecodeParams(r io.Reader) (*Params, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no records found", ErrParse)
		}
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	var records []Params
	decoder := json.NewDecoder(br)

	if first == '[' {
		if err := decoder.Decode(&records); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}
		if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: unexpected data after array", ErrParse)
		}
	} else {
		for {
			var record Params
			err := decoder.Decode(&record)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("%w: record %d: %w", ErrParse, len(records)+1, err)
			}
			records = append(records, record)
		}
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records found", ErrParse)
	}
	return &records[0], nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}
