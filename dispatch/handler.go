package dispatch

import (
	"errors"
	"sync/atomic"
)

// Handler delivers values of type T to a function running on a Looper.
//
// Each Send is stamped with the handler's current generation. Invalidate
// advances the generation; unless the handler was built with KeepStale,
// deliveries stamped with an older generation are dropped on the looper
// instead of reaching fn.
type Handler[T any] struct {
	looper    *Looper
	fn        func(T)
	keepStale bool

	generation atomic.Uint64
	pending    atomic.Int64
	delivered  atomic.Uint64
	dropped    atomic.Uint64
}

// HandlerOption configures a Handler.
type HandlerOption func(*handlerOptions)

type handlerOptions struct {
	keepStale bool
}

// KeepStale makes the handler deliver values sent before an Invalidate.
func KeepStale() HandlerOption {
	return func(o *handlerOptions) { o.keepStale = true }
}

// NewHandler binds fn to looper.
func NewHandler[T any](looper *Looper, fn func(T), opts ...HandlerOption) (*Handler[T], error) {
	if looper == nil {
		return nil, errors.New("dispatch: nil looper")
	}
	if fn == nil {
		return nil, errors.New("dispatch: nil handler func")
	}
	var o handlerOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Handler[T]{looper: looper, fn: fn, keepStale: o.keepStale}, nil
}

// Send hands v to the looper and returns without waiting for fn to run.
// Ownership of v passes to fn.
func (h *Handler[T]) Send(v T) error {
	gen := h.generation.Load()
	h.pending.Add(1)
	err := h.looper.Post(func() {
		defer h.pending.Add(-1)
		if !h.keepStale && h.generation.Load() != gen {
			h.dropped.Add(1)
			return
		}
		h.delivered.Add(1)
		h.fn(v)
	})
	if err != nil {
		h.pending.Add(-1)
		return err
	}
	return nil
}

// Invalidate advances the generation and returns the new value.
func (h *Handler[T]) Invalidate() uint64 {
	return h.generation.Add(1)
}

// Generation returns the current generation.
func (h *Handler[T]) Generation() uint64 { return h.generation.Load() }

// Pending returns the number of sends that have not yet run on the looper.
func (h *Handler[T]) Pending() int64 { return h.pending.Load() }

// Delivered returns the number of values that reached fn.
func (h *Handler[T]) Delivered() uint64 { return h.delivered.Load() }

// Dropped returns the number of stale values discarded after an Invalidate.
func (h *Handler[T]) Dropped() uint64 { return h.dropped.Load() }

// Looper returns the looper the handler posts to.
func (h *Handler[T]) Looper() *Looper { return h.looper }
