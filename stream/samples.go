package stream

import (
	"sort"
	"sync"

	"github.com/kbukum/metatrack/metadata"
)

// Option configures a stream.
type Option func(*options)

type options struct {
	format *metadata.Format
}

// WithFormat makes the stream report format before its first sample.
func WithFormat(f metadata.Format) Option {
	return func(o *options) { o.format = &f }
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Samples is a stream over a fixed list of samples followed by end of
// stream. It is safe for concurrent use.
type Samples struct {
	mu      sync.Mutex
	samples []metadata.Sample
	format  *metadata.Format
	next    int
	sendFmt bool
}

var _ metadata.Stream = (*Samples)(nil)

// FromSamples returns a stream that yields samples in order.
func FromSamples(samples []metadata.Sample, opts ...Option) *Samples {
	o := applyOptions(opts)
	return &Samples{
		samples: samples,
		format:  o.format,
		sendFmt: o.format != nil,
	}
}

// Pull implements metadata.Stream.
func (s *Samples) Pull(format *metadata.Format, sample *metadata.Sample) (metadata.PullResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sendFmt {
		s.sendFmt = false
		*format = *s.format
		return metadata.PullFormat, nil
	}
	if s.next >= len(s.samples) {
		return metadata.PullEndOfStream, nil
	}
	*sample = s.samples[s.next]
	s.next++
	return metadata.PullSample, nil
}

// SeekTo repositions the stream at the first sample whose timestamp is at
// or after positionUs. Samples must be sorted by timestamp. The format is
// reported again on the next pull.
func (s *Samples) SeekTo(positionUs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = sort.Search(len(s.samples), func(i int) bool {
		return s.samples[i].TimeUs >= positionUs
	})
	s.sendFmt = s.format != nil
}

// Remaining returns the number of samples not yet pulled.
func (s *Samples) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples) - s.next
}
