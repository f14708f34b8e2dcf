package component

import (
	"context"
	"fmt"
)

// HealthStatus is the coarse state a component reports.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// severity orders statuses; unknown values count as unhealthy.
func (s HealthStatus) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Health is a component's answer to a readiness probe.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// OK reports whether the component can serve pipelines.
func (h Health) OK() bool { return h.Status == StatusHealthy }

// String formats h as name=status(message).
func (h Health) String() string {
	if h.Message == "" {
		return fmt.Sprintf("%s=%s", h.Name, h.Status)
	}
	return fmt.Sprintf("%s=%s(%s)", h.Name, h.Status, h.Message)
}

// Healthy returns a healthy report for name. A non-empty note such as a
// queue depth is kept as the message.
func Healthy(name, note string) Health {
	return Health{Name: name, Status: StatusHealthy, Message: note}
}

// Degraded returns a report for a component that works with reduced
// guarantees, such as a looper that has not started yet.
func Degraded(name, reason string) Health {
	return Health{Name: name, Status: StatusDegraded, Message: reason}
}

// Unhealthy returns a report for a component that cannot serve.
func Unhealthy(name, reason string) Health {
	return Health{Name: name, Status: StatusUnhealthy, Message: reason}
}

// Worst returns the most severe status in hs, or StatusHealthy if hs is
// empty.
func Worst(hs []Health) HealthStatus {
	worst := StatusHealthy
	for _, h := range hs {
		if h.Status.severity() > worst.severity() {
			worst = h.Status
		}
	}
	return worst
}

// Component is a long-lived part of a metatrack host: a dispatch looper,
// a Redis connection. The registry starts components before any pipeline
// runs and stops them after the last one returns.
type Component interface {
	// Name is unique within a registry.
	Name() string
	Start(ctx context.Context) error
	// Stop releases resources. It honors the deadline of ctx.
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}
