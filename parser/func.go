package parser

// Func adapts a mime predicate and a decode function to metadata.Parser.
type Func[T any] struct {
	Accept func(mimeType string) bool
	Decode func(data []byte) (T, error)
}

// CanParse implements metadata.Parser.
func (f Func[T]) CanParse(mimeType string) bool { return f.Accept != nil && f.Accept(mimeType) }

// Parse implements metadata.Parser.
func (f Func[T]) Parse(data []byte) (T, error) { return f.Decode(data) }

// MimeIs returns a predicate accepting exactly the given mime types.
func MimeIs(mimeTypes ...string) func(string) bool {
	return func(m string) bool {
		for _, want := range mimeTypes {
			if m == want {
				return true
			}
		}
		return false
	}
}
