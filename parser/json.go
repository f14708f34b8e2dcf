package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/kbukum/metatrack/validation"
)

// MimeJSON is the sample mime type of JSON cues.
const MimeJSON = "application/json"

// JSON decodes JSON payloads into T.
//
// When Validate is set, T must be a struct (or pointer to one) and its
// `validate` tags are checked after decoding.
type JSON[T any] struct {
	// MimeTypes overrides the accepted mime types. When empty,
	// application/json and any +json structured suffix are accepted.
	MimeTypes []string
	// Strict rejects unknown fields.
	Strict bool
	// Validate runs struct validation on the decoded value.
	Validate bool
}

// CanParse implements metadata.Parser.
func (p JSON[T]) CanParse(mimeType string) bool {
	if len(p.MimeTypes) > 0 {
		for _, m := range p.MimeTypes {
			if m == mimeType {
				return true
			}
		}
		return false
	}
	return mimeType == MimeJSON || strings.HasSuffix(mimeType, "+json")
}

// Parse implements metadata.Parser.
func (p JSON[T]) Parse(data []byte) (T, error) {
	var v T
	dec := json.NewDecoder(bytes.NewReader(data))
	if p.Strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("decode json: %w", err)
	}
	if p.Validate {
		if err := validation.Validate(v); err != nil {
			return v, err
		}
	}
	return v, nil
}
