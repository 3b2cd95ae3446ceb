package cleanup

import "time"

// SessionRetentionConfig bounds the retention GC. Any of the three limits
// set to 0 disables that policy. Grounded in the teacher's
// pkg/config/retention.go RetentionConfig shape (day/count/size knobs,
// DefaultRetentionConfig), retargeted from soft-deleting agent sessions to
// deleting closed terminal sessions per spec.md §6's field names/defaults.
type SessionRetentionConfig struct {
	MaxAgeDays           int `yaml:"max_age_days"`
	MaxClosedSessions    int `yaml:"max_closed_sessions"`
	MaxTotalSizeMB       int `yaml:"max_total_size_mb"`
	CleanupIntervalHours int `yaml:"cleanup_interval_hours"`
}

// DefaultSessionRetentionConfig returns spec.md §6's documented defaults.
func DefaultSessionRetentionConfig() SessionRetentionConfig {
	return SessionRetentionConfig{
		MaxAgeDays:           30,
		MaxClosedSessions:    50,
		MaxTotalSizeMB:       500,
		CleanupIntervalHours: 24,
	}
}

// Interval returns the configured cleanup interval as a time.Duration.
func (c SessionRetentionConfig) Interval() time.Duration {
	if c.CleanupIntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.CleanupIntervalHours) * time.Hour
}
