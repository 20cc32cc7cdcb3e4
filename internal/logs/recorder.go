package logs

import (
	"fmt"
	"os"
	"sync"
	"time"

	"agentherd.dev/internal/events"
	"agentherd.dev/internal/orchestrator"
)

// Recorder subscribes to the orchestrator's event bus and persists each
// supervised process's output and metadata to a per-session directory.
// It is the collaborator that gives terminal records a durable copy; the
// orchestrator's in-memory buffers remain the live view.
type Recorder struct {
	orch *orchestrator.Orchestrator
	sub  *events.Subscription

	mu    sync.Mutex
	open  map[string]*sessionFiles
	donec chan struct{}
}

type sessionFiles struct {
	output *os.File
	stderr *os.File
}

// NewRecorder starts recording events published by orch. Callers must Close
// the recorder to flush and release open log files.
func NewRecorder(orch *orchestrator.Orchestrator) *Recorder {
	r := &Recorder{
		orch:  orch,
		sub:   orch.Bus().Subscribe(),
		open:  make(map[string]*sessionFiles),
		donec: make(chan struct{}),
	}
	go r.loop()
	return r
}

// Close detaches from the bus and closes any open log files.
func (r *Recorder) Close() {
	r.sub.Close()
	<-r.donec
}

func (r *Recorder) loop() {
	defer close(r.donec)
	for ev := range r.sub.C {
		switch ev.Type {
		case events.ProcessOutput:
			r.recordOutput(ev)
		case events.ProcessExited:
			r.finalize(ev)
		case events.ProcessError:
			r.finalize(ev)
		case events.ProcessTimeout:
			r.markTimedOut(ev.ProcessID)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, files := range r.open {
		files.close()
		delete(r.open, id)
	}
}

func (sf *sessionFiles) close() {
	if sf.output != nil {
		sf.output.Close()
	}
	if sf.stderr != nil {
		sf.stderr.Close()
	}
}

// ensure opens the session directory and log files for a process the first
// time it is seen, writing the initial metadata from a registry snapshot.
func (r *Recorder) ensure(processID string) (*sessionFiles, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if files, ok := r.open[processID]; ok {
		return files, nil
	}

	if err := CreateSessionDirectory(processID); err != nil {
		return nil, err
	}

	metadata := &SessionMetadata{
		ProcessID: processID,
		StartTime: time.Now(),
		Status:    string(orchestrator.StatusStarting),
	}
	if info, ok := r.orch.Get(processID); ok {
		metadata.Model = info.Model
		metadata.WorkingDir = info.Cwd
		metadata.StartTime = info.StartedAt
		metadata.Status = string(info.Status)
	}
	if err := WriteSessionMetadata(processID, metadata); err != nil {
		return nil, err
	}

	output, err := os.OpenFile(GetOutputLogPath(processID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output log: %w", err)
	}
	stderr, err := os.OpenFile(GetStderrLogPath(processID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		output.Close()
		return nil, fmt.Errorf("failed to open stderr log: %w", err)
	}

	files := &sessionFiles{output: output, stderr: stderr}
	r.open[processID] = files
	return files, nil
}

func (r *Recorder) recordOutput(ev events.Event) {
	files, err := r.ensure(ev.ProcessID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to open session log for %s: %v\n", ev.ProcessID, err)
		return
	}

	dst := files.output
	if ev.Stream == "stderr" {
		dst = files.stderr
	}
	if _, err := dst.WriteString(ev.Chunk); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to write session log for %s: %v\n", ev.ProcessID, err)
	}
}

// finalize closes the session's log files and writes terminal metadata.
// The exit event is the last event for an id, so nothing reopens the files.
func (r *Recorder) finalize(ev events.Event) {
	if _, err := r.ensure(ev.ProcessID); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to open session log for %s: %v\n", ev.ProcessID, err)
		return
	}

	metadata, err := ReadSessionMetadata(ev.ProcessID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to read session metadata for %s: %v\n", ev.ProcessID, err)
		return
	}

	end := ev.Timestamp
	metadata.EndTime = &end
	if ev.Type == events.ProcessError {
		metadata.Status = string(orchestrator.StatusError)
		metadata.Error = ev.Err
	} else {
		metadata.Status = ev.Status
		metadata.ExitCode = ev.ExitCode
		metadata.Signal = ev.Signal
	}
	if info, ok := r.orch.Get(ev.ProcessID); ok {
		metadata.SessionID = info.SessionID
		metadata.CLISessionID = info.CLISessionID
	}

	if err := WriteSessionMetadata(ev.ProcessID, metadata); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to write session metadata for %s: %v\n", ev.ProcessID, err)
	}

	r.mu.Lock()
	if files, ok := r.open[ev.ProcessID]; ok {
		files.close()
		delete(r.open, ev.ProcessID)
	}
	r.mu.Unlock()
}

func (r *Recorder) markTimedOut(processID string) {
	if _, err := r.ensure(processID); err != nil {
		return
	}
	metadata, err := ReadSessionMetadata(processID)
	if err != nil {
		return
	}
	metadata.TimedOut = true
	if err := WriteSessionMetadata(processID, metadata); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to write session metadata for %s: %v\n", processID, err)
	}
}
