package orchestrator

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// SpawnOptions describes one requested agent subprocess.
type SpawnOptions struct {
	// Model selects which AI provider binary to invoke (e.g. "claude").
	Model string
	// Cwd is the working directory the subprocess runs in.
	Cwd string
	// Prompt, when non-empty, is written to stdin once and stdin is closed
	// (single-shot mode). Otherwise stdin stays open for later writes.
	Prompt string
	// SystemPrompt, when non-empty, is passed via --system-prompt.
	SystemPrompt string
	// ResumeSessionID, when non-empty, resumes a prior CLI session via -r.
	ResumeSessionID string
	// MaxTurns, when positive, caps the agent's turns via --max-turns.
	MaxTurns int
	// SkipPermissions passes --dangerously-skip-permissions. It is an
	// explicit, named escape hatch and is never implied by another option.
	SkipPermissions bool
	// Timeout, when positive, schedules a watchdog that kills the process
	// if it is still starting or running when the timeout elapses.
	Timeout time.Duration
	// Env is an overlay applied on top of the host environment; the caller
	// wins on key collisions.
	Env map[string]string
}

// defaultBinaries maps a model provider to the executable it is served by.
var defaultBinaries = map[string]string{
	"claude": "claude",
	"gemini": "gemini",
	"codex":  "codex",
}

// ResolveBinary returns the executable for a model provider. Overrides
// (typically from settings) take precedence over the built-in mapping and
// may introduce new providers.
func ResolveBinary(model string, overrides map[string]string) (string, error) {
	if bin, ok := overrides[model]; ok && bin != "" {
		return bin, nil
	}
	if bin, ok := defaultBinaries[model]; ok {
		return bin, nil
	}
	return "", fmt.Errorf("unknown model %q", model)
}

// BuildArgs converts spawn options into the agent CLI's argument vector.
// The invocation is always non-interactive with line-delimited JSON output;
// each stdout line is an independently parseable JSON record that this
// orchestrator treats as opaque text.
func BuildArgs(opts SpawnOptions) []string {
	args := []string{"--print", "--output-format", "stream-json", "--verbose"}

	if opts.ResumeSessionID != "" {
		args = append(args, "-r", opts.ResumeSessionID)
	}
	if opts.MaxTurns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(opts.MaxTurns))
	}
	if opts.SystemPrompt != "" {
		args = append(args, "--system-prompt", opts.SystemPrompt)
	}
	if opts.SkipPermissions {
		args = append(args, "--dangerously-skip-permissions")
	}

	return args
}

// BuildEnv layers the process environment: base (normally os.Environ()),
// then forced color suppression, then the caller overlay. Later entries win
// on key collisions, which is how os/exec resolves duplicates.
func BuildEnv(base []string, overlay map[string]string) []string {
	env := make([]string, 0, len(base)+len(overlay)+2)
	env = append(env, base...)
	env = append(env, "NO_COLOR=1", "FORCE_COLOR=0")

	keys := make([]string, 0, len(overlay))
	for k := range overlay {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+overlay[k])
	}

	return env
}
