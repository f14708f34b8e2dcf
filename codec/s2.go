package codec

import (
	"fmt"

	"github.com/klauspost/compress/s2"
)

// S2 is the S2 (Snappy-compatible) block codec.
type S2 struct{}

var _ Codec = S2{}

// Suffix returns "s2".
func (S2) Suffix() string { return "s2" }

// Compress compresses data as a single S2 block.
func (S2) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return s2.Encode(nil, data), nil
}

// Decompress decodes a single S2 block.
func (S2) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	n, err := s2.DecodedLen(data)
	if err != nil {
		return nil, fmt.Errorf("s2 decompression failed: %w", err)
	}
	if n > MaxDecodedSize {
		return nil, ErrTooLarge
	}
	out, err := s2.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("s2 decompression failed: %w", err)
	}
	return out, nil
}
