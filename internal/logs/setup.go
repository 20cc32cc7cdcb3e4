package logs

import (
	"fmt"
	"os"
	"path/filepath"

	"agentherd.dev/internal/dirs"
)

// LogDir is the directory where recorded agent sessions are stored.
const LogDir = dirs.StateDir + "/logs"

// Setup initializes the log directory structure.
// Creates the log directory and a .gitignore file to ignore logs.
func Setup() error {
	if err := os.MkdirAll(LogDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	stateDir := filepath.Dir(LogDir)
	gitignorePath := filepath.Join(stateDir, ".gitignore")

	if _, err := os.Stat(gitignorePath); os.IsNotExist(err) {
		content := "logs/\n"
		if err := os.WriteFile(gitignorePath, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to create .gitignore: %w", err)
		}
	}

	return nil
}
