package codec

import (
	"errors"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// MaxDecodedSize bounds the size of a decompressed payload.
const MaxDecodedSize = 16 << 20

// ErrTooLarge is returned when a payload decompresses past MaxDecodedSize.
var ErrTooLarge = errors.New("codec: decoded payload exceeds size limit")

// Compressor compresses a payload. The returned slice is owned by the caller.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores a payload produced by the matching Compressor. The
// input is not modified and the returned slice is owned by the caller.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions.
type Codec interface {
	Compressor
	Decompressor
	// Suffix is the mime type suffix that selects this codec, without '+'.
	Suffix() string
}

// Codecs lists every supported codec, None excluded.
func Codecs() []Codec {
	return []Codec{Zstd{}, S2{}, Gzip{}, LZ4{}}
}

// ForSuffix returns the codec registered for a mime type suffix.
func ForSuffix(suffix string) (Codec, bool) {
	suffix = strings.ToLower(suffix)
	for _, c := range Codecs() {
		if c.Suffix() == suffix {
			return c, true
		}
	}
	return nil, false
}

// SplitMimeType splits "application/json+zstd" into "application/json" and
// the zstd codec. A mime type without a known codec suffix is returned
// unchanged with ok set to false.
func SplitMimeType(mimeType string) (base string, c Codec, ok bool) {
	i := strings.LastIndexByte(mimeType, '+')
	if i < 0 {
		return mimeType, nil, false
	}
	c, ok = ForSuffix(mimeType[i+1:])
	if !ok {
		return mimeType, nil, false
	}
	return mimeType[:i], c, true
}

// Digest returns the xxHash64 of data.
func Digest(data []byte) uint64 {
	return xxhash.Sum64(data)
}
