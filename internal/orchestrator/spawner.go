package orchestrator

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"agentherd.dev/internal/events"
)

// Spawn launches one agent subprocess and returns a snapshot of its record.
//
// The record is registered with status "starting" before the process starts,
// so an immediate exit always finds it. All further activity is asynchronous:
// output, exit, error, and timeout notifications arrive on the event bus, and
// the record stays queryable (terminal status, buffers) until a caller
// removes it.
//
// A launch failure (binary missing or unexecutable) is not a Go error: the
// record transitions to "error" and a process_error event is published,
// matching how a failure after a successful launch surfaces. Spawn only
// returns an error for malformed options, currently an unknown model.
func (o *Orchestrator) Spawn(opts SpawnOptions) (ProcessInfo, error) {
	bin, err := ResolveBinary(opts.Model, o.cfg.Binaries)
	if err != nil {
		return ProcessInfo{}, err
	}

	cmd := exec.Command(bin, BuildArgs(opts)...)
	cmd.Dir = opts.Cwd
	cmd.Env = BuildEnv(os.Environ(), opts.Env)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return ProcessInfo{}, fmt.Errorf("failed to open stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return ProcessInfo{}, fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return ProcessInfo{}, fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	rec := &record{
		id:        newProcessID(),
		status:    StatusStarting,
		model:     opts.Model,
		cwd:       opts.Cwd,
		startedAt: time.Now(),
		cmd:       cmd,
		stdin:     stdin,
	}

	o.mu.Lock()
	o.procs[rec.id] = rec
	o.mu.Unlock()

	if err := cmd.Start(); err != nil {
		stdin.Close()
		o.failSpawn(rec, err)
		o.mu.Lock()
		defer o.mu.Unlock()
		return rec.snapshot(), nil
	}

	var readers sync.WaitGroup
	readers.Add(2)
	go o.relay(rec, stdout, "stdout", &readers)
	go o.relay(rec, stderr, "stderr", &readers)
	go o.await(rec, &readers)

	if opts.Timeout > 0 {
		o.scheduleWatchdog(rec, opts.Timeout)
	}

	if opts.Prompt != "" {
		// Single-shot mode: the prompt writer owns stdin, so it is closed to
		// other callers immediately. The write itself runs off the spawn
		// path; a prompt larger than the pipe buffer must not stall Spawn
		// on a child that is slow to read.
		o.mu.Lock()
		rec.stdinClosed = true
		o.mu.Unlock()
		go func() {
			if _, err := io.WriteString(stdin, opts.Prompt); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to write prompt to %s: %v\n", rec.id, err)
			}
			stdin.Close()
		}()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	return rec.snapshot(), nil
}

// failSpawn marks a record that never launched as terminal and publishes the
// process-level error.
func (o *Orchestrator) failSpawn(rec *record, cause error) {
	o.mu.Lock()
	now := time.Now()
	rec.status = StatusError
	rec.endedAt = &now
	rec.stdinClosed = true
	rec.clearTimer()
	id := rec.id
	o.mu.Unlock()

	o.bus.Publish(events.Event{
		Type:      events.ProcessError,
		ProcessID: id,
		Err:       cause.Error(),
	})
}

// relay accumulates one output stream into the record's buffer and
// republishes each chunk. The first stdout chunk flips starting → running;
// stderr activity never changes status.
func (o *Orchestrator) relay(rec *record, r io.Reader, stream string, readers *sync.WaitGroup) {
	defer readers.Done()
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			o.mu.Lock()
			if stream == "stdout" {
				rec.stdout.WriteString(chunk)
				if rec.status == StatusStarting {
					rec.status = StatusRunning
				}
			} else {
				rec.stderr.WriteString(chunk)
			}
			o.mu.Unlock()

			o.bus.Publish(events.Event{
				Type:      events.ProcessOutput,
				ProcessID: rec.id,
				Stream:    stream,
				Chunk:     chunk,
			})
		}
		if err != nil {
			return
		}
	}
}

// await reaps the process once both output streams are drained, so the exit
// event is guaranteed to be the last event published for this id.
func (o *Orchestrator) await(rec *record, readers *sync.WaitGroup) {
	readers.Wait()
	waitErr := rec.cmd.Wait()

	code := 0
	var signaled bool
	var sig syscall.Signal
	if state := rec.cmd.ProcessState; state != nil {
		code = state.ExitCode()
		if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			signaled = true
			sig = ws.Signal()
		}
	} else if waitErr != nil {
		code = -1
	}

	// An exit by SIGTERM counts as a requested stop even when the signal
	// came from outside this orchestrator.
	var status Status
	switch {
	case signaled && sig == syscall.SIGTERM:
		status = StatusStopped
	case signaled:
		status = StatusError
	case code == 0:
		status = StatusStopped
	default:
		status = StatusError
	}

	// The terminal transition and the exit publish share one critical
	// section so that the watchdog, which publishes under the same lock
	// after checking status, can never emit a timeout after this event.
	// Publish never blocks, so holding the lock here is safe.
	o.mu.Lock()
	now := time.Now()
	rec.endedAt = &now
	rec.exitCode = &code
	rec.clearTimer()
	rec.status = status
	o.bus.Publish(events.Event{
		Type:      events.ProcessExited,
		ProcessID: rec.id,
		ExitCode:  &code,
		Signal:    signalName(signaled, sig),
		Status:    string(status),
	})
	o.mu.Unlock()
}

func signalName(signaled bool, sig syscall.Signal) string {
	if !signaled {
		return ""
	}
	switch sig {
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGKILL:
		return "SIGKILL"
	case syscall.SIGINT:
		return "SIGINT"
	default:
		return fmt.Sprintf("SIG%d", int(sig))
	}
}
