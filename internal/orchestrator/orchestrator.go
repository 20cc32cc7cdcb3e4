// Package orchestrator launches, supervises, and terminates AI-assistant CLI
// subprocesses. It owns the registry of process records and publishes
// output, exit, error, and timeout notifications on an event bus; it never
// blocks a caller and never raises errors for expected conditions such as
// unknown ids or kills against already-finished processes.
package orchestrator

import (
	"sync"
	"time"

	"agentherd.dev/internal/events"
)

// DefaultGracePeriod is how long a graceful kill waits before escalating to
// a forced kill when the caller does not specify a delay.
const DefaultGracePeriod = 5 * time.Second

// Config carries orchestrator tuning. The zero value is usable.
type Config struct {
	// Binaries overrides or extends the model → executable mapping.
	Binaries map[string]string
	// GracePeriod is the default delay between the graceful and forced
	// termination signals. Zero means DefaultGracePeriod.
	GracePeriod time.Duration
}

// Orchestrator supervises a set of agent subprocesses. Construct one per
// application (or per test) with New; there is no process-wide instance.
type Orchestrator struct {
	mu    sync.Mutex
	procs map[string]*record
	bus   *events.Bus
	cfg   Config
}

// New creates an orchestrator that publishes on bus.
func New(cfg Config, bus *events.Bus) *Orchestrator {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	return &Orchestrator{
		procs: make(map[string]*record),
		bus:   bus,
		cfg:   cfg,
	}
}

// Bus returns the event bus this orchestrator publishes on.
func (o *Orchestrator) Bus() *events.Bus {
	return o.bus
}
