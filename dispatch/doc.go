// Package dispatch moves work onto a different execution context.
//
// A Looper owns one goroutine and runs posted tasks in FIFO order. A
// Handler[T] is a typed, fire-and-forget channel onto a looper: Send hands
// over a value and returns immediately, and the bound function later runs on
// the looper goroutine with that value.
//
//	ui := dispatch.NewLooper("ui", 0)
//	_ = ui.Start(ctx)
//	h, _ := dispatch.NewHandler(ui, func(tag parser.Tag) { render(tag) })
//	_ = h.Send(tag)
//
// Handlers carry a generation counter so that values sent before a seek can
// be discarded when they reach the looper after it.
package dispatch
