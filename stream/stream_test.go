package stream

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/kbukum/metatrack/metadata"
)

func samples(times ...int64) []metadata.Sample {
	out := make([]metadata.Sample, len(times))
	for i, ts := range times {
		out[i] = metadata.Sample{Data: []byte(strconv.FormatInt(ts, 10)), TimeUs: ts}
	}
	return out
}

func pull(t *testing.T, s metadata.Stream) (metadata.PullResult, metadata.Format, metadata.Sample) {
	t.Helper()
	var f metadata.Format
	var smp metadata.Sample
	r, err := s.Pull(&f, &smp)
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	return r, f, smp
}

func TestFromSamples(t *testing.T) {
	s := FromSamples(samples(10, 20), WithFormat(metadata.Format{ID: "cc", SampleMimeType: "text/plain"}))

	r, f, _ := pull(t, s)
	if r != metadata.PullFormat || f.ID != "cc" {
		t.Fatalf("expected format first, got %s %+v", r, f)
	}
	for _, want := range []int64{10, 20} {
		r, _, smp := pull(t, s)
		if r != metadata.PullSample || smp.TimeUs != want {
			t.Fatalf("expected sample at %d, got %s %+v", want, r, smp)
		}
	}
	for range 2 {
		if r, _, _ := pull(t, s); r != metadata.PullEndOfStream {
			t.Fatalf("expected end of stream, got %s", r)
		}
	}
}

func TestSamples_SeekTo(t *testing.T) {
	s := FromSamples(samples(10, 20, 30, 40))
	for range 3 {
		pull(t, s)
	}

	s.SeekTo(15)
	if s.Remaining() != 3 {
		t.Errorf("expected 3 remaining after seek, got %d", s.Remaining())
	}
	if _, _, smp := pull(t, s); smp.TimeUs != 20 {
		t.Errorf("expected 20 after seek, got %d", smp.TimeUs)
	}

	s.SeekTo(1000)
	if r, _, _ := pull(t, s); r != metadata.PullEndOfStream {
		t.Errorf("expected end of stream after seeking past the end, got %s", r)
	}
}

func TestSamples_SeekReportsFormatAgain(t *testing.T) {
	s := FromSamples(samples(10), WithFormat(metadata.Format{ID: "f"}))
	pull(t, s)
	pull(t, s)
	s.SeekTo(0)
	if r, _, _ := pull(t, s); r != metadata.PullFormat {
		t.Errorf("expected format after seek, got %s", r)
	}
}

func TestIterators(t *testing.T) {
	ctx := context.Background()
	it := Concat(
		Filter(Slice([]int{1, 2, 3, 4}), func(n int) bool { return n%2 == 0 }),
		Map(Slice([]int{5}), func(_ context.Context, n int) (int, error) { return n * 10, nil }),
	)
	defer it.Close()

	var got []int
	for {
		v, ok, err := it.Next(ctx)
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, v)
	}
	want := []int{2, 4, 50}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestMap_Error(t *testing.T) {
	boom := errors.New("boom")
	it := Map(Slice([]int{1}), func(_ context.Context, n int) (int, error) { return 0, boom })
	if _, _, err := it.Next(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestConcat_ClosesAll(t *testing.T) {
	var closed []string
	closer := func(name string, err error) func() error {
		return func() error { closed = append(closed, name); return err }
	}
	empty := func(context.Context) (int, bool, error) { return 0, false, nil }
	boom := errors.New("boom")

	it := Concat(Func(empty, closer("a", nil)), Func(empty, closer("b", boom)), Slice([]int{7}))
	if v, ok, err := it.Next(context.Background()); err != nil || !ok || v != 7 {
		t.Fatalf("Next = %d, %v, %v", v, ok, err)
	}
	if err := it.Close(); !errors.Is(err, boom) {
		t.Errorf("expected close error joined, got %v", err)
	}
	if len(closed) != 2 || closed[0] != "a" || closed[1] != "b" {
		t.Errorf("closed = %v", closed)
	}
}

// chanIter yields what is sent on ch and ends when ch is closed.
type chanIter struct {
	ch     chan metadata.Sample
	err    error
	closed bool
}

func (c *chanIter) Next(ctx context.Context) (metadata.Sample, bool, error) {
	select {
	case s, ok := <-c.ch:
		if !ok {
			return metadata.Sample{}, false, c.err
		}
		return s, true, nil
	case <-ctx.Done():
		return metadata.Sample{}, false, ctx.Err()
	}
}

func (c *chanIter) Close() error {
	c.closed = true
	return nil
}

func pullUntil(t *testing.T, s metadata.Stream, want metadata.PullResult) metadata.Sample {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var f metadata.Format
		var smp metadata.Sample
		r, err := s.Pull(&f, &smp)
		if err != nil {
			t.Fatalf("Pull failed: %v", err)
		}
		if r == want {
			return smp
		}
		if r != metadata.PullNothing {
			t.Fatalf("expected %s, got %s", want, r)
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", want)
	return metadata.Sample{}
}

func TestBuffered_NeverBlocks(t *testing.T) {
	src := &chanIter{ch: make(chan metadata.Sample)}
	b := FromIterator(context.Background(), src, 2)
	defer b.Close()

	if r, _, _ := pull(t, b); r != metadata.PullNothing {
		t.Fatalf("expected nothing while the producer is idle, got %s", r)
	}

	src.ch <- metadata.Sample{Data: []byte("x"), TimeUs: 7}
	if smp := pullUntil(t, b, metadata.PullSample); smp.TimeUs != 7 {
		t.Errorf("expected sample at 7, got %+v", smp)
	}

	close(src.ch)
	pullUntil(t, b, metadata.PullEndOfStream)
	if r, _, _ := pull(t, b); r != metadata.PullEndOfStream {
		t.Errorf("expected end of stream to stick, got %s", r)
	}
}

func TestBuffered_FormatAndEndOfStreamSample(t *testing.T) {
	it := Slice([]metadata.Sample{{TimeUs: 1, Data: []byte("a")}, {EndOfStream: true}, {TimeUs: 3}})
	b := FromIterator(context.Background(), it, 4, WithFormat(metadata.Format{ID: "f"}))
	defer b.Close()

	if r, f, _ := pull(t, b); r != metadata.PullFormat || f.ID != "f" {
		t.Fatalf("expected format first, got %s", r)
	}
	pullUntil(t, b, metadata.PullSample)
	if smp := pullUntil(t, b, metadata.PullSample); !smp.EndOfStream {
		t.Fatalf("expected end of stream sample, got %+v", smp)
	}
	if r, _, _ := pull(t, b); r != metadata.PullEndOfStream {
		t.Errorf("expected nothing after the end of stream sample, got %s", r)
	}
}

func TestBuffered_IteratorError(t *testing.T) {
	boom := errors.New("source gone")
	src := &chanIter{ch: make(chan metadata.Sample), err: boom}
	close(src.ch)
	b := FromIterator(context.Background(), src, 1)
	defer b.Close()

	deadline := time.Now().Add(2 * time.Second)
	var err error
	for err == nil && time.Now().Before(deadline) {
		var f metadata.Format
		var smp metadata.Sample
		_, err = b.Pull(&f, &smp)
		time.Sleep(time.Millisecond)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected iterator error, got %v", err)
	}
	if !errors.Is(b.Err(), boom) {
		t.Errorf("expected Err to report the failure, got %v", b.Err())
	}
	if r, _, _ := pull(t, b); r != metadata.PullEndOfStream {
		t.Errorf("expected end of stream after failure, got %s", r)
	}
}

func TestBuffered_CloseStopsProducer(t *testing.T) {
	src := &chanIter{ch: make(chan metadata.Sample)}
	b := FromIterator(context.Background(), src, 1)

	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !src.closed {
		t.Error("expected source closed")
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestTapAndCounting(t *testing.T) {
	var seen []int64
	c := NewCounting(Tap(FromSamples(samples(5, 6)), func(r metadata.PullResult, s *metadata.Sample) {
		if r == metadata.PullSample {
			seen = append(seen, s.TimeUs)
		}
	}))

	for range 4 {
		pull(t, c)
	}
	if len(seen) != 2 || seen[0] != 5 || seen[1] != 6 {
		t.Errorf("unexpected tapped samples %v", seen)
	}
	if c.Pulls() != 4 {
		t.Errorf("expected 4 pulls, got %d", c.Pulls())
	}
	if c.Count(metadata.PullSample) != 2 || c.Count(metadata.PullEndOfStream) != 2 {
		t.Errorf("unexpected counts: samples=%d eos=%d", c.Count(metadata.PullSample), c.Count(metadata.PullEndOfStream))
	}
}

type textParser struct{}

func (textParser) CanParse(m string) bool { return m == "text/plain" }

func (textParser) Parse(data []byte) (string, error) { return string(data), nil }

func TestPipelineBackpressure(t *testing.T) {
	src := NewCounting(FromSamples(samples(100, 200, 300)))
	var got []string
	p, err := metadata.New[string](textParser{}, metadata.ConsumerFunc[string](func(v string) { got = append(got, v) }))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := p.Enable(metadata.Format{SampleMimeType: "text/plain"}, src); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}

	ctx := context.Background()
	for range 10 {
		if err := p.Advance(ctx, 0); err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
	}
	if src.Pulls() != 1 {
		t.Errorf("expected one pull while holding, got %d", src.Pulls())
	}

	for pos := int64(100); !p.IsFinished(); pos += 100 {
		if err := p.Advance(ctx, pos); err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
	}
	if len(got) != 3 || got[0] != "100" || got[2] != "300" {
		t.Errorf("unexpected deliveries %v", got)
	}
}

func TestPipelineWithBufferedSource(t *testing.T) {
	src := &chanIter{ch: make(chan metadata.Sample)}
	b := FromIterator(context.Background(), src, 1)
	defer b.Close()

	var got []string
	p, err := metadata.New[string](textParser{}, metadata.ConsumerFunc[string](func(v string) { got = append(got, v) }))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := p.Enable(metadata.Format{SampleMimeType: "text/plain"}, b); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}

	ctx := context.Background()
	if err := p.Advance(ctx, 1000); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if p.State() != metadata.StateEmptyActive {
		t.Fatalf("expected the pipeline to wait on an idle source, got %s", p.State())
	}

	go func() {
		src.ch <- metadata.Sample{Data: []byte("late"), TimeUs: 500}
		close(src.ch)
	}()
	deadline := time.Now().Add(2 * time.Second)
	for !p.IsFinished() && time.Now().Before(deadline) {
		if err := p.Advance(ctx, 1000); err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
		time.Sleep(time.Millisecond)
	}
	if len(got) != 1 || got[0] != "late" {
		t.Errorf("expected [late], got %v", got)
	}
}
