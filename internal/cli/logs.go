package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"agentherd.dev/internal/logs"
)

func newLogsCmd() *cobra.Command {
	var (
		lines  int
		filter string
		stderr bool
	)

	cmd := &cobra.Command{
		Use:   "logs <process-id>",
		Short: "Read the recorded output of an agent session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logLines, err := logs.ReadLog(args[0], logs.ReadOptions{
				Lines:  lines,
				Filter: filter,
				Stderr: stderr,
			})
			if err != nil {
				return fmt.Errorf("failed to read log: %w", err)
			}

			for _, line := range logLines {
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&lines, "lines", 100, "Number of lines to tail (0 = all)")
	cmd.Flags().StringVar(&filter, "filter", "", "Regex pattern to filter lines")
	cmd.Flags().BoolVar(&stderr, "stderr", false, "Read the stderr log instead of stdout")

	return cmd
}
