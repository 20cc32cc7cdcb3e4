package orchestrator

import (
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a supervised process.
type Status string

const (
	// StatusIdle is reserved; the spawn path never produces it.
	StatusIdle Status = "idle"
	// StatusStarting means the process was launched but has not yet produced stdout.
	StatusStarting Status = "starting"
	// StatusRunning means at least one stdout chunk has been observed.
	StatusRunning Status = "running"
	// StatusPaused is reserved for future pause support.
	StatusPaused Status = "paused"
	// StatusStopping means a graceful kill was requested and the process has not exited yet.
	StatusStopping Status = "stopping"
	// StatusStopped is terminal: zero-code exit or exit after a requested stop.
	StatusStopped Status = "stopped"
	// StatusError is terminal: spawn failure, abnormal exit, or an unrecognized signal.
	StatusError Status = "error"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusStopped || s == StatusError
}

// ProcessInfo is an immutable snapshot of one supervised process, safe to
// hand to callers. Live records never leave the orchestrator's lock.
type ProcessInfo struct {
	ID           string     `json:"id"`
	PID          int        `json:"pid,omitempty"`
	Status       Status     `json:"status"`
	Model        string     `json:"model"`
	Cwd          string     `json:"cwd"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	SessionID    string     `json:"session_id,omitempty"`
	CLISessionID string     `json:"cli_session_id,omitempty"`
	ExitCode     *int       `json:"exit_code,omitempty"`
}

// record is the authoritative in-memory state of one supervised process.
// Every field is guarded by the owning Orchestrator's mutex.
type record struct {
	id           string
	status       Status
	model        string
	cwd          string
	startedAt    time.Time
	endedAt      *time.Time
	sessionID    string
	cliSessionID string
	exitCode     *int

	// timer is the single pending scheduled cancellation for this record:
	// the watchdog while starting/running, the force-kill escalation while
	// stopping. Cleared on every transition away from those states.
	timer *time.Timer

	stdout strings.Builder
	stderr strings.Builder

	cmd         *exec.Cmd
	stdin       io.WriteCloser
	stdinClosed bool
}

// clearTimer cancels the pending scheduled cancellation, if any.
// Stopping an already-fired timer is a benign race, not an error.
func (r *record) clearTimer() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *record) snapshot() ProcessInfo {
	info := ProcessInfo{
		ID:           r.id,
		Status:       r.status,
		Model:        r.model,
		Cwd:          r.cwd,
		StartedAt:    r.startedAt,
		SessionID:    r.sessionID,
		CLISessionID: r.cliSessionID,
	}
	if r.endedAt != nil {
		t := *r.endedAt
		info.EndedAt = &t
	}
	if r.exitCode != nil {
		c := *r.exitCode
		info.ExitCode = &c
	}
	if r.cmd != nil && r.cmd.Process != nil {
		info.PID = r.cmd.Process.Pid
	}
	return info
}

// newProcessID generates a registry-unique id: millisecond timestamp plus a
// random suffix. Uniqueness is the only requirement, not unguessability.
func newProcessID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
