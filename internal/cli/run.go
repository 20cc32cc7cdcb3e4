package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"agentherd.dev/internal/events"
	"agentherd.dev/internal/orchestrator"
)

func newRunCmd() *cobra.Command {
	var (
		model           string
		cwd             string
		prompt          string
		systemPrompt    string
		resume          string
		maxTurns        int
		skipPermissions bool
		timeoutSecs     int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Spawn one agent and stream its output until it exits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, orch, recorder, err := bootstrap()
			if err != nil {
				return err
			}
			defer recorder.Close()

			opts := orchestrator.SpawnOptions{
				Model:           model,
				Cwd:             cwd,
				Prompt:          prompt,
				SystemPrompt:    systemPrompt,
				ResumeSessionID: resume,
				MaxTurns:        maxTurns,
				SkipPermissions: skipPermissions,
				Timeout:         settings.DefaultTimeout(),
				Env:             settings.Env,
			}
			if opts.MaxTurns == 0 {
				opts.MaxTurns = settings.DefaultMaxTurns
			}
			if timeoutSecs > 0 {
				opts.Timeout = time.Duration(timeoutSecs) * time.Second
			}

			// Subscribe before spawning so no event is missed.
			sub := orch.Bus().Subscribe()
			defer sub.Close()

			info, err := orch.Spawn(opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "spawned %s (model=%s)\n", info.ID, info.Model)

			// Ctrl+C stops the agent gracefully; the exit event still ends
			// the stream below.
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)
			go func() {
				<-sigChan
				orch.Kill(info.ID, 0)
			}()

			code := streamUntilExit(sub, info.ID)
			if code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "claude", "AI provider to invoke")
	cmd.Flags().StringVar(&cwd, "cwd", "", "Working directory for the agent")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Initial prompt (written to stdin once)")
	cmd.Flags().StringVar(&systemPrompt, "system-prompt", "", "System prompt")
	cmd.Flags().StringVar(&resume, "resume", "", "CLI session id to resume")
	cmd.Flags().IntVar(&maxTurns, "max-turns", 0, "Maximum agent turns (0 = provider default)")
	cmd.Flags().BoolVar(&skipPermissions, "skip-permissions", false, "Pass the dangerous skip-permissions flag")
	cmd.Flags().IntVar(&timeoutSecs, "timeout", 0, "Watchdog timeout in seconds (0 = settings default)")

	return cmd
}

// streamUntilExit relays one process's events to stdout/stderr and returns
// the exit code to report: the agent's own code for an error exit, zero for
// a stop.
func streamUntilExit(sub *events.Subscription, processID string) int {
	for ev := range sub.C {
		if ev.ProcessID != processID {
			continue
		}
		switch ev.Type {
		case events.ProcessOutput:
			if ev.Stream == "stderr" {
				fmt.Fprint(os.Stderr, ev.Chunk)
			} else {
				fmt.Print(ev.Chunk)
			}
		case events.ProcessTimeout:
			fmt.Fprintf(os.Stderr, "agent %s timed out; stopping\n", processID)
		case events.ProcessError:
			fmt.Fprintf(os.Stderr, "agent %s failed: %s\n", processID, ev.Err)
			return 1
		case events.ProcessExited:
			if ev.Status == string(orchestrator.StatusStopped) {
				return 0
			}
			if ev.ExitCode != nil && *ev.ExitCode > 0 {
				return *ev.ExitCode
			}
			return 1
		}
	}
	return 1
}
