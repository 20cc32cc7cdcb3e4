package logs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// SessionMetadata holds metadata about one recorded agent process.
type SessionMetadata struct {
	ProcessID    string     `json:"process_id"`
	Model        string     `json:"model"`
	WorkingDir   string     `json:"working_dir,omitempty"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	Status       string     `json:"status"`
	ExitCode     *int       `json:"exit_code,omitempty"`
	Signal       string     `json:"signal,omitempty"`
	TimedOut     bool       `json:"timed_out"`
	Error        string     `json:"error,omitempty"`
	SessionID    string     `json:"session_id,omitempty"`
	CLISessionID string     `json:"cli_session_id,omitempty"`
}

// SessionInfo holds basic information about a recorded session.
type SessionInfo struct {
	ProcessID string    `json:"process_id"`
	Model     string    `json:"model"`
	Status    string    `json:"status"`
	StartTime time.Time `json:"start_time"`
	LogPath   string    `json:"log_path"`
}

// GetSessionDirectory returns the directory path for a recorded process.
func GetSessionDirectory(processID string) string {
	return filepath.Join(LogDir, "sessions", processID)
}

// GetOutputLogPath returns the path to a process's stdout log.
func GetOutputLogPath(processID string) string {
	return filepath.Join(GetSessionDirectory(processID), "output.log")
}

// GetStderrLogPath returns the path to a process's stderr log.
func GetStderrLogPath(processID string) string {
	return filepath.Join(GetSessionDirectory(processID), "stderr.log")
}

// GetSessionMetadataPath returns the path to a process's metadata file.
func GetSessionMetadataPath(processID string) string {
	return filepath.Join(GetSessionDirectory(processID), "metadata.json")
}

// CreateSessionDirectory creates the directory structure for a recording.
func CreateSessionDirectory(processID string) error {
	if err := os.MkdirAll(GetSessionDirectory(processID), 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	return nil
}

// WriteSessionMetadata writes session metadata to its JSON file.
func WriteSessionMetadata(processID string, metadata *SessionMetadata) error {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := os.WriteFile(GetSessionMetadataPath(processID), data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}

	return nil
}

// ReadSessionMetadata reads session metadata from its JSON file.
func ReadSessionMetadata(processID string) (*SessionMetadata, error) {
	data, err := os.ReadFile(GetSessionMetadataPath(processID))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var metadata SessionMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	return &metadata, nil
}

// ListSessions lists recorded sessions, newest first.
func ListSessions(limit int) ([]SessionInfo, error) {
	sessionsDir := filepath.Join(LogDir, "sessions")

	entries, err := os.ReadDir(sessionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SessionInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var sessions []SessionInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		processID := entry.Name()
		metadata, err := ReadSessionMetadata(processID)
		if err != nil {
			// Skip sessions with missing or invalid metadata
			continue
		}

		sessions = append(sessions, SessionInfo{
			ProcessID: processID,
			Model:     metadata.Model,
			Status:    metadata.Status,
			StartTime: metadata.StartTime,
			LogPath:   GetOutputLogPath(processID),
		})
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartTime.After(sessions[j].StartTime)
	})

	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}

	return sessions, nil
}
