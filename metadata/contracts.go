package metadata

// Parser decodes raw sample payloads into values of type T.
type Parser[T any] interface {
	// CanParse reports whether the parser handles samples of mimeType.
	CanParse(mimeType string) bool
	// Parse decodes data. It must not retain data after returning.
	Parse(data []byte) (T, error)
}

// Consumer receives decoded values once playback reaches their timestamp.
type Consumer[T any] interface {
	OnMetadata(value T)
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc[T any] func(value T)

// OnMetadata calls f(value).
func (f ConsumerFunc[T]) OnMetadata(value T) { f(value) }
