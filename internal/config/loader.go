package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"agentherd.dev/internal/dirs"
)

// LoadSettings loads agentherd settings, searching in priority order:
// 1. Custom path (if provided)
// 2. ./agentherd.yaml (project root)
// 3. ./.agentherd/config.yaml (hidden directory)
// The boolean reports whether a file was found; when none is, the returned
// defaults are still usable.
func LoadSettings(customPath string) (*Settings, bool, error) {
	searchPaths := []string{
		customPath,
		dirs.ConfigFile,
		filepath.Join(dirs.ConfigDir, "config.yaml"),
	}

	for _, path := range searchPaths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}

		settings, err := ParseSettings(path)
		if err != nil {
			return nil, false, fmt.Errorf("failed to parse settings at %s: %w", path, err)
		}
		if err := Validate(settings); err != nil {
			return nil, false, fmt.Errorf("invalid settings at %s: %w", path, err)
		}
		return settings, true, nil
	}

	return Default(), false, nil
}

// ParseSettings reads one YAML settings file, layering it over the defaults.
func ParseSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	settings := Default()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	return settings, nil
}

// Validate rejects settings that would misconfigure the orchestrator.
func Validate(s *Settings) error {
	if s.GracePeriodSeconds < 0 {
		return fmt.Errorf("grace_period must not be negative (got %d)", s.GracePeriodSeconds)
	}
	if s.DefaultTimeoutSeconds < 0 {
		return fmt.Errorf("default_timeout must not be negative (got %d)", s.DefaultTimeoutSeconds)
	}
	if s.DefaultMaxTurns < 0 {
		return fmt.Errorf("default_max_turns must not be negative (got %d)", s.DefaultMaxTurns)
	}
	for model, bin := range s.Binaries {
		if model == "" {
			return fmt.Errorf("binaries contains an empty model name")
		}
		if bin == "" {
			return fmt.Errorf("binaries entry %q has an empty executable", model)
		}
	}
	if s.Retention.MaxSessions < 0 || s.Retention.MaxAgeDays < 0 {
		return fmt.Errorf("retention bounds must not be negative")
	}
	return nil
}
