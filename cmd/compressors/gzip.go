package compressors

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// GzipCodec handles Gzip decompression
type GzipCodec struct{}

// NewGzipCodec creates a new Gzip codec
func NewGzipCodec() *GzipCodec {
	return &GzipCodec{}
}

// NewReader returns a streaming gzip reader
func (c *GzipCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	reader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	return reader, nil
}

// Extensions returns the key suffixes for Gzip compression
func (c *GzipCodec) Extensions() []string {
	return []string{".gz", ".gzip"}
}
