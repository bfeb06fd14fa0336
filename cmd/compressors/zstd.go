package compressors

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// ZstdCodec handles Zstandard decompression
type ZstdCodec struct {
	concurrency int
}

// NewZstdCodec creates a new Zstandard codec
func NewZstdCodec() *ZstdCodec {
	return &ZstdCodec{
		concurrency: 4,
	}
}

// NewReader returns a streaming Zstandard decoder
func (c *ZstdCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	decoder, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(c.concurrency))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return decoder.IOReadCloser(), nil
}

// Extensions returns the key suffixes for Zstandard compression
func (c *ZstdCodec) Extensions() []string {
	return []string{".zst", ".zstd"}
}
