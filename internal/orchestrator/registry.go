package orchestrator

import (
	"io"
	"sort"
)

// Get returns a snapshot of one record.
func (o *Orchestrator) Get(id string) (ProcessInfo, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec, ok := o.procs[id]
	if !ok {
		return ProcessInfo{}, false
	}
	return rec.snapshot(), true
}

// Status returns the current status of one record.
func (o *Orchestrator) Status(id string) (Status, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec, ok := o.procs[id]
	if !ok {
		return "", false
	}
	return rec.status, true
}

// IsRunning reports whether the record exists and is starting or running.
func (o *Orchestrator) IsRunning(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec, ok := o.procs[id]
	return ok && (rec.status == StatusStarting || rec.status == StatusRunning)
}

// List returns snapshots of every record, oldest first.
func (o *Orchestrator) List() []ProcessInfo {
	o.mu.Lock()
	defer o.mu.Unlock()
	infos := make([]ProcessInfo, 0, len(o.procs))
	for _, rec := range o.procs {
		infos = append(infos, rec.snapshot())
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].StartedAt.Equal(infos[j].StartedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].StartedAt.Before(infos[j].StartedAt)
	})
	return infos
}

// CountRunning returns how many records are starting or running.
func (o *Orchestrator) CountRunning() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, rec := range o.procs {
		if rec.status == StatusStarting || rec.status == StatusRunning {
			n++
		}
	}
	return n
}

// GetBySessionID finds the record associated with a chat session.
// A linear scan is fine at this scale.
func (o *Orchestrator) GetBySessionID(sessionID string) (ProcessInfo, bool) {
	if sessionID == "" {
		return ProcessInfo{}, false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, rec := range o.procs {
		if rec.sessionID == sessionID {
			return rec.snapshot(), true
		}
	}
	return ProcessInfo{}, false
}

// SetSessionID associates a record with its owning chat session.
// The value is stored, not validated. Unknown id returns false.
func (o *Orchestrator) SetSessionID(id, sessionID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec, ok := o.procs[id]
	if !ok {
		return false
	}
	rec.sessionID = sessionID
	return true
}

// SetCLISessionID stores the session identifier emitted by the subprocess
// itself, used for a later resume. Unknown id returns false.
func (o *Orchestrator) SetCLISessionID(id, cliSessionID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec, ok := o.procs[id]
	if !ok {
		return false
	}
	rec.cliSessionID = cliSessionID
	return true
}

// GetOutput returns the accumulated stdout buffer. The second result
// distinguishes an unknown process from a silent one.
func (o *Orchestrator) GetOutput(id string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec, ok := o.procs[id]
	if !ok {
		return "", false
	}
	return rec.stdout.String(), true
}

// GetStderr returns the accumulated stderr buffer.
func (o *Orchestrator) GetStderr(id string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec, ok := o.procs[id]
	if !ok {
		return "", false
	}
	return rec.stderr.String(), true
}

// ClearOutput empties the stdout buffer. The orchestrator itself never
// truncates buffers; this is the caller's release valve.
func (o *Orchestrator) ClearOutput(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec, ok := o.procs[id]
	if !ok {
		return false
	}
	rec.stdout.Reset()
	return true
}

// WriteStdin writes data to the process's open stdin stream. Returns false
// for unknown ids, terminal records, and closed stdin.
func (o *Orchestrator) WriteStdin(id, data string) bool {
	o.mu.Lock()
	rec, ok := o.procs[id]
	if !ok || rec.status.Terminal() || rec.stdinClosed || rec.stdin == nil {
		o.mu.Unlock()
		return false
	}
	stdin := rec.stdin
	o.mu.Unlock()

	_, err := io.WriteString(stdin, data)
	return err == nil
}

// CloseStdin signals EOF to the subprocess. Idempotent; unknown id returns
// false.
func (o *Orchestrator) CloseStdin(id string) bool {
	o.mu.Lock()
	rec, ok := o.procs[id]
	if !ok {
		o.mu.Unlock()
		return false
	}
	if rec.stdinClosed || rec.stdin == nil {
		o.mu.Unlock()
		return true
	}
	rec.stdinClosed = true
	stdin := rec.stdin
	o.mu.Unlock()

	stdin.Close()
	return true
}

// CleanupFinished removes every terminal record and returns how many were
// removed. Starting, running, and stopping records are untouched.
func (o *Orchestrator) CleanupFinished() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	removed := 0
	for id, rec := range o.procs {
		if rec.status.Terminal() {
			rec.clearTimer()
			delete(o.procs, id)
			removed++
		}
	}
	return removed
}

// Remove deletes a single record from the registry regardless of status.
// The OS process, if still alive, is not touched.
func (o *Orchestrator) Remove(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec, ok := o.procs[id]
	if !ok {
		return false
	}
	rec.clearTimer()
	delete(o.procs, id)
	return true
}

// ClearAll kills everything and empties the registry. Intended for shutdown
// and test teardown only: it discards terminal records that would otherwise
// stay queryable.
func (o *Orchestrator) ClearAll() {
	o.KillAll()

	o.mu.Lock()
	defer o.mu.Unlock()
	for id, rec := range o.procs {
		rec.clearTimer()
		delete(o.procs, id)
	}
}
