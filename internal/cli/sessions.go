package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"agentherd.dev/internal/logs"
)

func newSessionsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded agent sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := logs.ListSessions(limit)
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			if len(sessions) == 0 {
				fmt.Println("No recorded sessions.")
				return nil
			}

			for _, s := range sessions {
				fmt.Printf("%-30s  %-8s  %-8s  %s\n",
					s.ProcessID, s.Model, s.Status, s.StartTime.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of sessions to list (0 = all)")

	return cmd
}
