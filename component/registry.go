package component

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kbukum/metatrack/logger"
)

// DefaultStopTimeout bounds each Stop call when the registry is built with
// a zero timeout.
const DefaultStopTimeout = 10 * time.Second

// Registry starts components in registration order and stops them in
// reverse. The started components are always a prefix of the registered
// ones.
type Registry struct {
	mu          sync.Mutex
	components  []Component
	started     int
	stopTimeout time.Duration
	log         *logger.Logger
}

// NewRegistry returns an empty registry giving each Stop up to stopTimeout.
func NewRegistry(stopTimeout time.Duration) *Registry {
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}
	return &Registry{stopTimeout: stopTimeout, log: logger.Get("component")}
}

func (r *Registry) index(name string) int {
	return slices.IndexFunc(r.components, func(c Component) bool { return c.Name() == name })
}

// Register appends c. Register what a component depends on before it, for
// example the looper before anything that posts to it.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index(c.Name()) >= 0 {
		return fmt.Errorf("component %s already registered", c.Name())
	}
	r.components = append(r.components, c)
	r.log.Debug("component registered", logger.Fields(logger.FieldComponent, c.Name()))
	return nil
}

// StartAll starts every component not yet running. On failure the
// components started so far keep running; StopAll unwinds them.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ; r.started < len(r.components); r.started++ {
		c := r.components[r.started]
		if err := c.Start(ctx); err != nil {
			r.log.Error("component start failed", logger.ErrorFields("start", err), logger.Fields(logger.FieldComponent, c.Name()))
			return fmt.Errorf("failed to start %s: %w", c.Name(), err)
		}
		r.log.Debug("component started", logger.Fields(logger.FieldComponent, c.Name()))
	}
	r.log.Info("all components started", logger.Fields("count", r.started))
	return nil
}

// StopAll stops the running components, last started first. Each Stop gets
// its own deadline; a failure does not prevent the others from stopping.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for ; r.started > 0; r.started-- {
		c := r.components[r.started-1]
		if err := r.stop(ctx, c); err != nil {
			r.log.Error("component stop failed", logger.ErrorFields("stop", err), logger.Fields(logger.FieldComponent, c.Name()))
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", c.Name(), err))
			continue
		}
		r.log.Debug("component stopped", logger.Fields(logger.FieldComponent, c.Name()))
	}
	return stderrors.Join(errs...)
}

func (r *Registry) stop(ctx context.Context, c Component) error {
	ctx, cancel := context.WithTimeout(ctx, r.stopTimeout)
	defer cancel()
	return c.Stop(ctx)
}

// HealthAll probes every registered component, in registration order. A
// report without a name is given the component's.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.Lock()
	components := slices.Clone(r.components)
	r.mu.Unlock()

	out := make([]Health, len(components))
	for i, c := range components {
		h := c.Health(ctx)
		if h.Name == "" {
			h.Name = c.Name()
		}
		out[i] = h
	}
	return out
}

// Get returns the component registered under name, or nil.
func (r *Registry) Get(name string) Component {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.index(name); i >= 0 {
		return r.components[i]
	}
	return nil
}

// Running returns the names of the started components in start order.
func (r *Registry) Running() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, r.started)
	for i, c := range r.components[:r.started] {
		names[i] = c.Name()
	}
	return names
}
