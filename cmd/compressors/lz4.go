package compressors

import (
	"io"

	"github.com/pierrec/lz4/v4"
)

// LZ4Codec handles LZ4 frame decompression
type LZ4Codec struct{}

// NewLZ4Codec creates a new LZ4 codec
func NewLZ4Codec() *LZ4Codec {
	return &LZ4Codec{}
}

// NewReader returns a streaming LZ4 frame reader
func (c *LZ4Codec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}

// Extensions returns the key suffix for LZ4 compression
func (c *LZ4Codec) Extensions() []string {
	return []string{".lz4"}
}
