package codec

// None passes payloads through unchanged. The returned slice shares memory
// with the input.
type None struct{}

var _ Codec = None{}

func (None) Compress(data []byte) ([]byte, error)   { return data, nil }
func (None) Decompress(data []byte) ([]byte, error) { return data, nil }
func (None) Suffix() string                         { return "" }
