package orchestrator

import (
	"syscall"
	"time"

	"agentherd.dev/internal/events"
)

// Kill requests a graceful stop: SIGTERM now, SIGKILL after forceAfter if
// the process has not exited by then. forceAfter <= 0 selects the configured
// grace period.
//
// Killing an unknown id returns false. Killing an already-terminal record is
// an idempotent no-op and returns true. Otherwise the return value reports
// whether the graceful signal was delivered; the forced escalation is only
// scheduled when delivery succeeded.
func (o *Orchestrator) Kill(id string, forceAfter time.Duration) bool {
	if forceAfter <= 0 {
		forceAfter = o.cfg.GracePeriod
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	rec, ok := o.procs[id]
	if !ok {
		return false
	}
	if rec.status.Terminal() {
		return true
	}

	rec.status = StatusStopping
	rec.clearTimer()

	if rec.cmd == nil || rec.cmd.Process == nil {
		return false
	}
	if err := rec.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return false
	}

	rec.timer = time.AfterFunc(forceAfter, func() {
		// The exit handler and this timer race; check status at fire time
		// rather than relying on having been cancelled.
		o.mu.Lock()
		stillStopping := rec.status == StatusStopping
		o.mu.Unlock()
		if stillStopping {
			o.ForceKill(id)
		}
	})

	return true
}

// ForceKill sends the non-ignorable termination signal. It does not set a
// terminal status itself; the exit handler does that once the OS confirms
// death. Unknown id returns false, already-terminal returns true.
func (o *Orchestrator) ForceKill(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	rec, ok := o.procs[id]
	if !ok {
		return false
	}
	if rec.status.Terminal() {
		return true
	}

	rec.clearTimer()

	if rec.cmd == nil || rec.cmd.Process == nil {
		return false
	}
	return rec.cmd.Process.Signal(syscall.SIGKILL) == nil
}

// KillAll issues a graceful kill against every non-terminal record.
// Used at shutdown.
func (o *Orchestrator) KillAll() {
	o.mu.Lock()
	ids := make([]string, 0, len(o.procs))
	for id, rec := range o.procs {
		if !rec.status.Terminal() {
			ids = append(ids, id)
		}
	}
	o.mu.Unlock()

	for _, id := range ids {
		o.Kill(id, 0)
	}
}

// scheduleWatchdog arms the idle/overall timeout for a freshly spawned
// record. When it fires against a record that is still starting or running,
// it publishes a timeout event and issues a graceful kill; against any other
// state it is a no-op, because exit-driven cancellation and timer firing are
// not ordered with respect to each other.
func (o *Orchestrator) scheduleWatchdog(rec *record, timeout time.Duration) {
	id := rec.id
	o.mu.Lock()
	defer o.mu.Unlock()

	if rec.status != StatusStarting && rec.status != StatusRunning {
		return
	}
	rec.timer = time.AfterFunc(timeout, func() {
		// The status check and the publish must share one critical section:
		// the exit handler publishes its terminal event under the same lock,
		// so a timeout can never be published after the exit for this id.
		o.mu.Lock()
		fire := rec.status == StatusStarting || rec.status == StatusRunning
		if fire {
			o.bus.Publish(events.Event{
				Type:      events.ProcessTimeout,
				ProcessID: id,
			})
		}
		o.mu.Unlock()
		if !fire {
			return
		}

		o.Kill(id, 0)
	})
}
