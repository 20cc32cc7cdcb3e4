// Package cli implements the agentherd command-line interface.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"agentherd.dev/internal/config"
	"agentherd.dev/internal/events"
	"agentherd.dev/internal/logs"
	"agentherd.dev/internal/orchestrator"
)

var globalConfig string

// Execute dispatches the CLI and returns the process exit code.
// args should be os.Args[1:].
func Execute(version string, args []string) int {
	root := &cobra.Command{
		Use:           "agentherd",
		Short:         "Supervise AI-assistant CLI agent processes",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&globalConfig, "config", "", "Path to settings file")

	root.AddCommand(
		newServeCmd(version),
		newRunCmd(),
		newSessionsCmd(),
		newLogsCmd(),
	)

	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		return 1
	}
	return 0
}

// exitError carries a specific exit code out of a cobra RunE.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

// bootstrap loads settings and creates the orchestrator plus its recorder,
// mirroring the serve path's setup.
func bootstrap() (*config.Settings, *orchestrator.Orchestrator, *logs.Recorder, error) {
	if err := logs.Setup(); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to setup logs: %w", err)
	}

	settings, loaded, err := config.LoadSettings(globalConfig)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if !loaded && globalConfig != "" {
		return nil, nil, nil, fmt.Errorf("settings file not found: %s", globalConfig)
	}

	bus := events.NewBus()
	orch := orchestrator.New(orchestrator.Config{
		Binaries:    settings.Binaries,
		GracePeriod: settings.GracePeriod(),
	}, bus)
	recorder := logs.NewRecorder(orch)

	return settings, orch, recorder, nil
}
