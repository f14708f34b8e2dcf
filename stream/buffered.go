package stream

import (
	"context"
	"sync"

	"github.com/kbukum/metatrack/logger"
	"github.com/kbukum/metatrack/metadata"
)

type item struct {
	sample metadata.Sample
	err    error
}

// Buffered is a stream fed by an Iterator running on its own goroutine.
// Pull takes from a bounded buffer and never waits for the iterator.
type Buffered struct {
	ch     chan item
	cancel context.CancelFunc
	source Iterator[metadata.Sample]
	done   chan struct{}
	log    *logger.Logger

	format  *metadata.Format
	ended   bool
	err     error
	closeMu sync.Once
	closeEr error
}

var _ metadata.Stream = (*Buffered)(nil)

// FromIterator starts pulling source into a buffer of size samples. The
// goroutine stops when source is exhausted, fails, ctx is canceled or Close
// is called. A sample with EndOfStream set ends the stream.
func FromIterator(ctx context.Context, source Iterator[metadata.Sample], size int, opts ...Option) *Buffered {
	if size <= 0 {
		size = 1
	}
	o := applyOptions(opts)
	bufCtx, cancel := context.WithCancel(ctx)
	b := &Buffered{
		ch:     make(chan item, size),
		cancel: cancel,
		source: source,
		done:   make(chan struct{}),
		log:    logger.Get("stream"),
		format: o.format,
	}
	go b.fill(bufCtx)
	return b
}

func (b *Buffered) fill(ctx context.Context) {
	defer close(b.done)
	defer close(b.ch)
	for {
		s, ok, err := b.source.Next(ctx)
		if err != nil {
			select {
			case b.ch <- item{err: err}:
			case <-ctx.Done():
			}
			return
		}
		if !ok {
			return
		}
		select {
		case b.ch <- item{sample: s}:
		case <-ctx.Done():
			return
		}
		if s.EndOfStream {
			return
		}
	}
}

// Pull implements metadata.Stream. An iterator error is returned once and
// then the stream reports end of stream.
func (b *Buffered) Pull(format *metadata.Format, sample *metadata.Sample) (metadata.PullResult, error) {
	if b.format != nil {
		*format = *b.format
		b.format = nil
		return metadata.PullFormat, nil
	}
	if b.ended {
		return metadata.PullEndOfStream, nil
	}
	select {
	case it, open := <-b.ch:
		if !open {
			b.ended = true
			return metadata.PullEndOfStream, nil
		}
		if it.err != nil {
			b.ended = true
			b.err = it.err
			b.log.Warn("source iterator failed", logger.ErrorFields("next", it.err))
			return metadata.PullNothing, it.err
		}
		*sample = it.sample
		if it.sample.EndOfStream {
			b.ended = true
		}
		return metadata.PullSample, nil
	default:
		return metadata.PullNothing, nil
	}
}

// Err returns the iterator error that ended the stream, if any.
func (b *Buffered) Err() error { return b.err }

// Close stops the background goroutine, waits for it and closes the source.
func (b *Buffered) Close() error {
	b.closeMu.Do(func() {
		b.cancel()
		<-b.done
		b.closeEr = b.source.Close()
	})
	return b.closeEr
}
