package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
)

// Hook is a callback run at a lifecycle phase of the app.
type Hook func(ctx context.Context) error

// Phase names the point in the lifecycle where hooks run.
type Phase string

const (
	// PhaseStart runs after components start and before the ready check.
	PhaseStart Phase = "start"
	// PhaseReady runs after the ready check, before the track is driven.
	PhaseReady Phase = "ready"
	// PhaseStop runs before components stop, while loopers can still
	// deliver.
	PhaseStop Phase = "stop"
)

// OnStart registers hooks for PhaseStart.
func (a *App) OnStart(hooks ...Hook) { a.hooks.add(PhaseStart, hooks) }

// OnReady registers hooks for PhaseReady.
func (a *App) OnReady(hooks ...Hook) { a.hooks.add(PhaseReady, hooks) }

// OnStop registers hooks for PhaseStop. They run in reverse registration
// order and all of them run even if one fails.
func (a *App) OnStop(hooks ...Hook) { a.hooks.add(PhaseStop, hooks) }

type hookSet map[Phase][]Hook

func (s *hookSet) add(phase Phase, hooks []Hook) {
	if *s == nil {
		*s = make(hookSet)
	}
	(*s)[phase] = append((*s)[phase], hooks...)
}

// run executes the hooks of phase. Start and ready hooks stop at the first
// failure; stop hooks unwind like deferred calls and their errors are
// joined.
func (s hookSet) run(ctx context.Context, phase Phase) error {
	hooks := s[phase]
	if phase != PhaseStop {
		for i, h := range hooks {
			if err := h(ctx); err != nil {
				return fmt.Errorf("%s hook %d: %w", phase, i, err)
			}
		}
		return nil
	}

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s hook %d: %w", phase, i, err))
		}
	}
	return stderrors.Join(errs...)
}
