package parser

import (
	"bytes"
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// MimeText is the sample mime type of plain timed text.
const MimeText = "text/plain"

// ErrInvalidText is returned for text that is neither UTF-8 nor BOM-marked
// UTF-16.
var ErrInvalidText = errors.New("text: invalid encoding")

// Text decodes timed text cues. Payloads are UTF-8 unless they start with a
// UTF-16 byte order mark. A UTF-8 BOM is stripped.
type Text struct {
	// TrimSpace removes leading and trailing white space.
	TrimSpace bool
}

// CanParse implements metadata.Parser. Mime type parameters such as
// charset are ignored.
func (Text) CanParse(mimeType string) bool {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.TrimSpace(base) == MimeText
}

// Parse implements metadata.Parser.
func (p Text) Parse(data []byte) (string, error) {
	if !hasUTF16BOM(data) && !utf8.Valid(data) {
		return "", ErrInvalidText
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return "", errors.Join(ErrInvalidText, err)
	}
	s := string(out)
	if p.TrimSpace {
		s = strings.TrimSpace(s)
	}
	return s, nil
}

func hasUTF16BOM(b []byte) bool {
	return bytes.HasPrefix(b, []byte{0xfe, 0xff}) || bytes.HasPrefix(b, []byte{0xff, 0xfe})
}
