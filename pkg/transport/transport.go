package transport

import (
	"context"
	"errors"
)

// ErrNoStatus is returned by a StatusFunc that has nothing to report yet.
var ErrNoStatus = errors.New("no status available yet")

// StatusFunc returns the JSON-encoded latest cycle report for /status.
// Using []byte keeps this package free of probe types.
type StatusFunc func(ctx context.Context) ([]byte, error)

// HealthFunc reports whether the ensemble looked healthy in the latest cycle.
type HealthFunc func() bool

// Handlers are the callbacks a management server exposes.
type Handlers struct {
	Status StatusFunc
	// Health is optional; without it the endpoint reports serving as long as it runs.
	Health HealthFunc
}

// Server exposes the prober's management endpoints (status, health, metrics).
type Server interface {
	Start(ctx context.Context, h Handlers) error
	Addr() string
	Stop(ctx context.Context) error
}

// Client fetches the latest status from a running prober.
type Client interface {
	GetStatus(ctx context.Context, addr string) ([]byte, error)
}
