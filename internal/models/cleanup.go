package models

import (
	"time"
)

// CleanupRun is one completed sweep of the cleanup scheduler.
// Kept in a bounded in-process history only, never persisted
type CleanupRun struct {
	Timestamp                 time.Time     `json:"timestamp"`
	RefreshTokensDeleted      int64         `json:"refresh_tokens_deleted"`
	VerificationTokensExpired int64         `json:"verification_tokens_expired"`
	ResetTokensExpired        int64         `json:"reset_tokens_expired"`
	Duration                  time.Duration `json:"-"`
	DurationMS                int64         `json:"duration_ms"`
}

// Total is the number of rows affected across all three sweeps
func (r CleanupRun) Total() int64 {
	return r.RefreshTokensDeleted + r.VerificationTokensExpired + r.ResetTokensExpired
}

// CleanupStatus is the operational snapshot exposed to admin tooling
type CleanupStatus struct {
	IsRunning        bool       `json:"is_running"`
	SchedulerEnabled bool       `json:"scheduler_enabled"`
	LastCleanup      *time.Time `json:"last_cleanup"`
	HistoryEntries   int        `json:"history_entries"`
	Environment      string     `json:"environment"`
}

// CleanupHealth reports scheduler staleness for monitoring systems
type CleanupHealth struct {
	Healthy       bool    `json:"healthy"`
	HoursSinceRun float64 `json:"hours_since_last_cleanup"`
	Issue         string  `json:"issue,omitempty"`
}
