package logs

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
)

// ReadOptions contains options for reading recorded session logs.
type ReadOptions struct {
	Lines  int    // Number of lines to tail (0 means all)
	Filter string // Regex pattern to filter lines (empty means no filter)
	Stderr bool   // Read the stderr log instead of stdout
}

// ReadLog reads a recorded process's log with optional tailing and filtering.
// A process that was recorded but produced no output yields an empty slice.
func ReadLog(processID string, opts ReadOptions) ([]string, error) {
	logPath := GetOutputLogPath(processID)
	if opts.Stderr {
		logPath = GetStderrLogPath(processID)
	}

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		return []string{}, nil
	}

	file, err := os.Open(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	if opts.Filter != "" {
		lines, err = filterLines(lines, opts.Filter)
		if err != nil {
			return nil, fmt.Errorf("failed to filter lines: %w", err)
		}
	}

	if opts.Lines > 0 && len(lines) > opts.Lines {
		lines = lines[len(lines)-opts.Lines:]
	}

	return lines, nil
}

// TailLog returns the last N lines from a process's stdout log.
func TailLog(processID string, lines int) ([]string, error) {
	return ReadLog(processID, ReadOptions{Lines: lines})
}

// filterLines filters lines using a regex pattern.
func filterLines(lines []string, pattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}

	var filtered []string
	for _, line := range lines {
		if re.MatchString(line) {
			filtered = append(filtered, line)
		}
	}

	return filtered, nil
}
