package codec

import (
	"errors"
	"sync"

	"github.com/pierrec/lz4/v4"
)

var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// LZ4 is the LZ4 block codec. Blocks carry no length header, so Decompress
// grows its buffer until the block fits or MaxDecodedSize is reached.
type LZ4 struct{}

var _ Codec = LZ4{}

// Suffix returns "lz4".
func (LZ4) Suffix() string { return "lz4" }

// Compress compresses data as a single LZ4 block.
func (LZ4) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dst := make([]byte, lz4.CompressBlockBound(len(data)))

	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	n, err := lc.CompressBlock(data, dst)
	if err != nil {
		return nil, err
	}
	return dst[:n], nil
}

// Decompress decodes a single LZ4 block.
func (LZ4) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	for size := len(data) * 4; ; size *= 2 {
		if size > MaxDecodedSize {
			size = MaxDecodedSize
		}
		buf := make([]byte, size)
		n, err := lz4.UncompressBlock(data, buf)
		if err == nil {
			return buf[:n], nil
		}
		if !errors.Is(err, lz4.ErrInvalidSourceShortBuffer) {
			return nil, err
		}
		if size == MaxDecodedSize {
			return nil, ErrTooLarge
		}
	}
}
