package compressors

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrUnsupportedCompression is returned when an unsupported compression type is requested
var ErrUnsupportedCompression = errors.New("unsupported compression type")

// Compression type names
const (
	Zstd = "zstd"
	LZ4  = "lz4"
	Gzip = "gzip"
	None = "none"
)

// Codec defines the interface for snapshot decompression handlers
type Codec interface {
	// NewReader wraps r with a decompressing reader
	NewReader(r io.Reader) (io.ReadCloser, error)

	// Extensions returns the object key suffixes that mark this compression
	Extensions() []string
}

// detectable lists the codecs DetectFromKey matches suffixes against
var detectable = []string{Zstd, LZ4, Gzip}

// GetCodec returns the appropriate codec based on the compression string
func GetCodec(compression string) (Codec, error) {
	switch compression {
	case Zstd:
		return NewZstdCodec(), nil
	case LZ4:
		return NewLZ4Codec(), nil
	case Gzip:
		return NewGzipCodec(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, compression)
	}
}

// DetectFromKey returns the compression implied by an object key suffix.
// Keys without a known suffix are treated as uncompressed.
func DetectFromKey(key string) string {
	lower := strings.ToLower(key)
	for _, name := range detectable {
		codec, err := GetCodec(name)
		if err != nil {
			continue
		}
		for _, ext := range codec.Extensions() {
			if strings.HasSuffix(lower, ext) {
				return name
			}
		}
	}
	return None
}
