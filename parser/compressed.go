package parser

import (
	"fmt"

	"github.com/kbukum/metatrack/codec"
	"github.com/kbukum/metatrack/metadata"
)

// Compressed decompresses payloads with a fixed codec and hands the result
// to an inner parser. It accepts mime types of the form base+suffix, where
// suffix names the codec and base is accepted by the inner parser.
type Compressed[T any] struct {
	codec codec.Codec
	inner metadata.Parser[T]
}

// NewCompressed wraps inner with c.
func NewCompressed[T any](c codec.Codec, inner metadata.Parser[T]) *Compressed[T] {
	return &Compressed[T]{codec: c, inner: inner}
}

// CanParse implements metadata.Parser.
func (p *Compressed[T]) CanParse(mimeType string) bool {
	base, c, ok := codec.SplitMimeType(mimeType)
	return ok && c.Suffix() == p.codec.Suffix() && p.inner.CanParse(base)
}

// Parse implements metadata.Parser.
func (p *Compressed[T]) Parse(data []byte) (T, error) {
	raw, err := p.codec.Decompress(data)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s: %w", p.codec.Suffix(), err)
	}
	return p.inner.Parse(raw)
}
