package metadata

// TrackType identifies the kind of track a pipeline renders.
type TrackType int

// TrackTypeMetadata is the only track type this package renders.
const TrackTypeMetadata TrackType = 4

// Support is the outcome of a capability check.
type Support int

const (
	// SupportUnsupportedType means no parser handles the format; the host must
	// not attach the pipeline to the track.
	SupportUnsupportedType Support = iota
	// SupportHandled means the pipeline can render the format.
	SupportHandled
)

func (s Support) String() string {
	if s == SupportHandled {
		return "handled"
	}
	return "unsupported_type"
}

// Format describes the samples of a track.
type Format struct {
	ID             string
	SampleMimeType string
}

// Sample is one unit of raw encoded metadata. A stream fills it on Pull; the
// pipeline owns Data only while parsing it.
type Sample struct {
	Data        []byte
	TimeUs      int64
	EndOfStream bool
}

// Clear empties the sample before it is reused.
func (s *Sample) Clear() {
	s.Data = nil
	s.TimeUs = 0
	s.EndOfStream = false
}

// PullResult reports what a Stream.Pull produced.
type PullResult int

const (
	// PullNothing means no data is available yet; the caller should try again
	// on a later tick.
	PullNothing PullResult = iota
	// PullFormat means the stream wrote a new Format and no sample.
	PullFormat
	// PullSample means the stream wrote a sample. A sample with EndOfStream
	// set carries no payload.
	PullSample
	// PullEndOfStream means the stream is exhausted.
	PullEndOfStream
)

func (r PullResult) String() string {
	switch r {
	case PullNothing:
		return "nothing"
	case PullFormat:
		return "format"
	case PullSample:
		return "sample"
	case PullEndOfStream:
		return "end_of_stream"
	default:
		return "unknown"
	}
}

// Stream is the upstream sample source. Pull must not block; when nothing is
// ready it returns PullNothing. The stream keeps its next sample until it is
// pulled.
type Stream interface {
	Pull(format *Format, sample *Sample) (PullResult, error)
}

// Decoded is a parsed value and the timestamp of the sample it came from.
type Decoded[T any] struct {
	Value  T
	TimeUs int64
}

// State is the observable state of a pipeline.
type State int

const (
	// StateEmptyActive: nothing pending, stream not ended.
	StateEmptyActive State = iota
	// StateHolding: one decoded value waits for its timestamp.
	StateHolding
	// StateDrained: stream ended and nothing pending. Terminal until Reset.
	StateDrained
)

func (s State) String() string {
	switch s {
	case StateEmptyActive:
		return "empty_active"
	case StateHolding:
		return "holding"
	case StateDrained:
		return "drained"
	default:
		return "unknown"
	}
}
