package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/parquet-go/parquet-go"
)

// newTestLogger creates a logger for testing
func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// memoryStore is an in-memory ObjectStore keyed by "bucket/key"
type memoryStore struct {
	objects   map[string][]byte
	listing   Listing
	listErr   error
	listCalls []string
	downloads []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (s *memoryStore) put(bucket, key string, data []byte) {
	s.objects[bucket+"/"+key] = data
}

// addSnapshot stores data and adds it to the listing
func (s *memoryStore) addSnapshot(bucket, key string, modified time.Time, data []byte) {
	s.put(bucket, key, data)
	s.listing.Objects = append(s.listing.Objects, Object{
		Key:          key,
		LastModified: modified,
		Size:         int64(len(data)),
	})
}

func (s *memoryStore) ListObjects(ctx context.Context, bucket, prefix string) (*Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.listCalls = append(s.listCalls, bucket+"/"+prefix)
	if s.listErr != nil {
		return nil, s.listErr
	}

	listing := &Listing{Truncated: s.listing.Truncated}
	for _, obj := range s.listing.Objects {
		if strings.HasPrefix(obj.Key, prefix) {
			listing.Objects = append(listing.Objects, obj)
		}
	}
	return listing, nil
}

func (s *memoryStore) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, ok := s.objects[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("no such key: %s/%s", bucket, key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memoryStore) DownloadObject(ctx context.Context, bucket, key string, w io.WriterAt) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	data, ok := s.objects[bucket+"/"+key]
	if !ok {
		return 0, fmt.Errorf("no such key: %s/%s", bucket, key)
	}
	s.downloads = append(s.downloads, key)
	n, err := w.WriteAt(data, 0)
	return int64(n), err
}

// billingRow is the snapshot layout used by the fixtures
type billingRow struct {
	Timestamp        string  `parquet:"timestamp"`
	ResourceUID      string  `parquet:"resource_uid"`
	BillingAccount   string  `parquet:"billing_account"`
	UsageAmount      float64 `parquet:"usage_amount"`
	ListPrice        float64 `parquet:"au_list_price"`
	EffectiveCost    float64 `parquet:"au_effective_cost"`
	NetEffectiveCost float64 `parquet:"au_net_effective_cost"`
	Region           string  `parquet:"region"`
}

// billingRowWithFoo adds one column to billingRow
type billingRowWithFoo struct {
	Timestamp        string  `parquet:"timestamp"`
	ResourceUID      string  `parquet:"resource_uid"`
	BillingAccount   string  `parquet:"billing_account"`
	UsageAmount      float64 `parquet:"usage_amount"`
	ListPrice        float64 `parquet:"au_list_price"`
	EffectiveCost    float64 `parquet:"au_effective_cost"`
	NetEffectiveCost float64 `parquet:"au_net_effective_cost"`
	Region           string  `parquet:"region"`
	Foo              int32   `parquet:"foo"`
}

func encodeParquet[T any](t *testing.T, rows []T) []byte {
	t.Helper()

	var buf bytes.Buffer
	writer := parquet.NewGenericWriter[T](&buf)
	if _, err := writer.Write(rows); err != nil {
		t.Fatalf("failed to write parquet rows: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close parquet writer: %v", err)
	}
	return buf.Bytes()
}

func zstdCompress(t *testing.T, data []byte) []byte {
	t.Helper()

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("failed to create zstd encoder: %v", err)
	}
	defer encoder.Close()
	return encoder.EncodeAll(data, nil)
}

// oldBillingRows is the previous snapshot: two settled rows, one row after
// the cutoff and one row without a billing account
func oldBillingRows() []billingRow {
	return []billingRow{
		{Timestamp: "2024-01-05 10:00:00", ResourceUID: "i-a", BillingAccount: "acct", UsageAmount: 1, ListPrice: 0.5, EffectiveCost: 0.5, NetEffectiveCost: 0.5, Region: "us-east-1"},
		{Timestamp: "2024-01-06 10:00:00", ResourceUID: "i-b", BillingAccount: "acct", UsageAmount: 2, ListPrice: 1, EffectiveCost: 1, NetEffectiveCost: 1, Region: "us-east-1"},
		{Timestamp: "2024-03-01 10:00:00", ResourceUID: "i-c", BillingAccount: "acct", UsageAmount: 3, Region: "us-east-1"},
		{Timestamp: "2024-01-07 10:00:00", ResourceUID: "i-d", BillingAccount: "", UsageAmount: 4, Region: "us-east-1"},
	}
}

// fixedClock returns a clock whose 31 day cutoff is 2024-02-13
func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	}
}
