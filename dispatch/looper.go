package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kbukum/metatrack/component"
	"github.com/kbukum/metatrack/config"
	"github.com/kbukum/metatrack/logger"
)

var (
	// ErrLooperStopped is returned when posting to a looper that has been stopped.
	ErrLooperStopped = errors.New("dispatch: looper stopped")
	// ErrLooperStarted is returned by Start on a looper that is already running.
	ErrLooperStarted = errors.New("dispatch: looper already started")
)

// Looper is an execution context: a single goroutine that runs posted tasks
// one at a time in the order they were posted.
//
// Tasks may be posted before Start; they run once the looper starts. Stop
// refuses new tasks and returns after every task already accepted has run.
type Looper struct {
	name string
	log  *logger.Logger

	mu      sync.Mutex
	queue   []func()
	started bool
	stopped bool

	wake chan struct{}
	done chan struct{}
}

var _ component.Component = (*Looper)(nil)

// NewLooper creates a looper. capacity pre-sizes the task queue; the queue
// grows past it rather than blocking posters.
func NewLooper(name string, capacity int) *Looper {
	if capacity <= 0 {
		capacity = 16
	}
	return &Looper{
		name:  name,
		log:   logger.Get("dispatch").WithFields(logger.Fields(logger.FieldLooper, name)),
		queue: make([]func(), 0, capacity),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// NewLooperFromConfig creates the looper described by cfg.
func NewLooperFromConfig(cfg config.DispatchConfig) *Looper {
	return NewLooper(cfg.Looper, cfg.QueueCapacity)
}

// Name returns the looper name.
func (l *Looper) Name() string { return l.name }

// Start launches the looper goroutine.
func (l *Looper) Start(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return ErrLooperStopped
	}
	if l.started {
		return ErrLooperStarted
	}
	l.started = true
	go l.loop()
	l.log.Debug("looper started")
	return nil
}

// Stop refuses further posts and waits for queued tasks to finish, or for ctx.
func (l *Looper) Stop(ctx context.Context) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return nil
	}
	l.stopped = true
	started := l.started
	dropped := len(l.queue)
	if !started {
		l.queue = nil
	}
	l.mu.Unlock()

	if !started {
		if dropped > 0 {
			l.log.Warn("looper stopped before start, tasks discarded", logger.Fields("tasks", dropped))
		}
		close(l.done)
		return nil
	}

	l.signal()
	select {
	case <-l.done:
		l.log.Debug("looper stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatch: stopping looper %s: %w", l.name, ctx.Err())
	}
}

// Health reports whether the looper is accepting and running tasks.
func (l *Looper) Health(_ context.Context) component.Health {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.stopped:
		return component.Unhealthy(l.name, "stopped")
	case !l.started:
		return component.Degraded(l.name, "not started")
	default:
		return component.Healthy(l.name, fmt.Sprintf("%d queued", len(l.queue)))
	}
}

// Post enqueues task to run on the looper goroutine. It never blocks.
func (l *Looper) Post(task func()) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return ErrLooperStopped
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()
	l.signal()
	return nil
}

// Sync blocks until every task posted before the call has run.
func (l *Looper) Sync(ctx context.Context) error {
	barrier := make(chan struct{})
	if err := l.Post(func() { close(barrier) }); err != nil {
		return err
	}
	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the looper has exited.
func (l *Looper) Done() <-chan struct{} { return l.done }

func (l *Looper) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Looper) loop() {
	defer close(l.done)
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			stopped := l.stopped
			l.mu.Unlock()
			if stopped {
				return
			}
			<-l.wake
			continue
		}
		task := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.run(task)
	}
}

func (l *Looper) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("task panicked", logger.Fields(logger.FieldError, fmt.Sprint(r)))
		}
	}()
	task()
}
