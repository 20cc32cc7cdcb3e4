package config

import "time"

// Settings is the complete agentherd configuration.
type Settings struct {
	// Binaries overrides or extends the model → executable mapping,
	// e.g. binaries: {claude: /usr/local/bin/claude}.
	Binaries map[string]string `yaml:"binaries"`
	// GracePeriodSeconds is the delay between the graceful and forced
	// termination signals when stopping an agent.
	GracePeriodSeconds int `yaml:"grace_period"`
	// DefaultTimeoutSeconds, when positive, is applied to spawns that do
	// not request their own watchdog timeout. Zero disables the default.
	DefaultTimeoutSeconds int `yaml:"default_timeout"`
	// DefaultMaxTurns is applied to spawns that do not set max turns.
	// Zero leaves the agent unbounded.
	DefaultMaxTurns int `yaml:"default_max_turns"`
	// Env is an environment overlay applied to every spawned agent,
	// beneath any per-spawn overlay.
	Env map[string]string `yaml:"env"`
	// Retention bounds the recorded session directories.
	Retention Retention `yaml:"retention"`
}

// Retention defines how recorded sessions are pruned.
type Retention struct {
	MaxSessions int `yaml:"max_sessions"`
	MaxAgeDays  int `yaml:"max_age_days"`
}

// Default returns the settings used when no config file is present.
func Default() *Settings {
	return &Settings{
		GracePeriodSeconds: 5,
		Retention: Retention{
			MaxSessions: 100,
			MaxAgeDays:  7,
		},
	}
}

// GracePeriod returns the configured grace period as a duration.
func (s *Settings) GracePeriod() time.Duration {
	return time.Duration(s.GracePeriodSeconds) * time.Second
}

// DefaultTimeout returns the configured default watchdog timeout,
// zero if disabled.
func (s *Settings) DefaultTimeout() time.Duration {
	return time.Duration(s.DefaultTimeoutSeconds) * time.Second
}

// MaxAge returns the retention age bound, zero if unlimited.
func (r Retention) MaxAge() time.Duration {
	return time.Duration(r.MaxAgeDays) * 24 * time.Hour
}
