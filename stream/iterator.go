package stream

import (
	"context"
	stderrors "errors"
)

// Iterator is a pull-based producer whose Next may block, such as a broker
// consumer. Buffered adapts one to the non-blocking metadata.Stream.
type Iterator[T any] interface {
	// Next returns the next value, or ok=false once the producer is
	// exhausted.
	Next(ctx context.Context) (value T, ok bool, err error)
	Close() error
}

// Func builds an iterator from a next function and an optional close
// function.
func Func[T any](next func(ctx context.Context) (T, bool, error), closeFn func() error) Iterator[T] {
	return &funcIter[T]{next: next, close: closeFn}
}

type funcIter[T any] struct {
	next  func(ctx context.Context) (T, bool, error)
	close func() error
}

func (f *funcIter[T]) Next(ctx context.Context) (T, bool, error) { return f.next(ctx) }

func (f *funcIter[T]) Close() error {
	if f.close == nil {
		return nil
	}
	return f.close()
}

// Slice yields items in order.
func Slice[T any](items []T) Iterator[T] {
	i := 0
	return Func(func(context.Context) (T, bool, error) {
		var zero T
		if i >= len(items) {
			return zero, false, nil
		}
		i++
		return items[i-1], true, nil
	}, nil)
}

// Map converts each value of source with fn. An error from fn is returned
// by Next; the value is dropped.
func Map[I, O any](source Iterator[I], fn func(context.Context, I) (O, error)) Iterator[O] {
	return Func(func(ctx context.Context) (O, bool, error) {
		var zero O
		v, ok, err := source.Next(ctx)
		if err != nil || !ok {
			return zero, false, err
		}
		out, err := fn(ctx, v)
		if err != nil {
			return zero, false, err
		}
		return out, true, nil
	}, source.Close)
}

// Filter skips values of source for which keep returns false.
func Filter[T any](source Iterator[T], keep func(T) bool) Iterator[T] {
	return Func(func(ctx context.Context) (T, bool, error) {
		for {
			v, ok, err := source.Next(ctx)
			if err != nil || !ok || keep(v) {
				return v, ok && err == nil, err
			}
		}
	}, source.Close)
}

// Concat drains each iterator in turn. Close closes all of them.
func Concat[T any](iters ...Iterator[T]) Iterator[T] {
	cur := 0
	return Func(func(ctx context.Context) (T, bool, error) {
		for ; cur < len(iters); cur++ {
			v, ok, err := iters[cur].Next(ctx)
			if err != nil || ok {
				return v, ok && err == nil, err
			}
		}
		var zero T
		return zero, false, nil
	}, func() error {
		var errs []error
		for _, it := range iters {
			errs = append(errs, it.Close())
		}
		return stderrors.Join(errs...)
	})
}
