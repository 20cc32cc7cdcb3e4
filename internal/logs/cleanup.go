package logs

import (
	"fmt"
	"os"
	"sort"
	"time"
)

// SessionRetention defines retention policies for recorded session cleanup.
type SessionRetention struct {
	MaxSessions int           // Maximum number of sessions to keep (0 = unlimited)
	MaxAge      time.Duration // Maximum age of sessions to keep (0 = unlimited)
}

// DefaultRetention provides the default retention policy.
var DefaultRetention = SessionRetention{
	MaxSessions: 100,
	MaxAge:      7 * 24 * time.Hour,
}

// CleanupOldSessions removes recorded sessions according to the retention
// policy. Returns the number of sessions deleted.
func CleanupOldSessions(retention SessionRetention) (int, error) {
	sessions, err := ListSessions(0)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		return 0, nil
	}

	// Oldest first
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartTime.Before(sessions[j].StartTime)
	})

	toDelete := make(map[string]bool)
	now := time.Now()

	if retention.MaxAge > 0 {
		for _, session := range sessions {
			if now.Sub(session.StartTime) > retention.MaxAge {
				toDelete[session.ProcessID] = true
			}
		}
	}

	if retention.MaxSessions > 0 && len(sessions) > retention.MaxSessions {
		for _, session := range sessions[:len(sessions)-retention.MaxSessions] {
			toDelete[session.ProcessID] = true
		}
	}

	deleted := 0
	for processID := range toDelete {
		if err := os.RemoveAll(GetSessionDirectory(processID)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to delete session %s: %v\n", processID, err)
		} else {
			deleted++
		}
	}

	return deleted, nil
}
