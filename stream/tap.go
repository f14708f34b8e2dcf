package stream

import (
	"sync/atomic"

	"github.com/kbukum/metatrack/metadata"
)

// Tap returns a stream that calls fn after every pull of s with the result
// and the sample as filled in. fn must not retain sample.Data.
func Tap(s metadata.Stream, fn func(metadata.PullResult, *metadata.Sample)) metadata.Stream {
	return &tapStream{source: s, fn: fn}
}

type tapStream struct {
	source metadata.Stream
	fn     func(metadata.PullResult, *metadata.Sample)
}

func (t *tapStream) Pull(format *metadata.Format, sample *metadata.Sample) (metadata.PullResult, error) {
	r, err := t.source.Pull(format, sample)
	if err == nil {
		t.fn(r, sample)
	}
	return r, err
}

// Counting wraps a stream and counts pulls by result.
type Counting struct {
	source metadata.Stream
	pulls  atomic.Int64
	counts [4]atomic.Int64
}

var _ metadata.Stream = (*Counting)(nil)

// NewCounting wraps s.
func NewCounting(s metadata.Stream) *Counting {
	return &Counting{source: s}
}

// Pull implements metadata.Stream.
func (c *Counting) Pull(format *metadata.Format, sample *metadata.Sample) (metadata.PullResult, error) {
	c.pulls.Add(1)
	r, err := c.source.Pull(format, sample)
	if int(r) >= 0 && int(r) < len(c.counts) {
		c.counts[r].Add(1)
	}
	return r, err
}

// Pulls returns the total number of pulls.
func (c *Counting) Pulls() int64 { return c.pulls.Load() }

// Count returns the number of pulls that produced r.
func (c *Counting) Count(r metadata.PullResult) int64 {
	if int(r) < 0 || int(r) >= len(c.counts) {
		return 0
	}
	return c.counts[r].Load()
}
