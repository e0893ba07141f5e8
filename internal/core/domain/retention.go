package domain

import "time"

// Retention defaults.
const (
	DefaultRetentionDays = 30
	DefaultSweepInterval = 7 * 24 * time.Hour
)

// RetentionPolicy controls how long chat messages are kept.
type RetentionPolicy struct {
	// Days is how many days of messages survive a sweep.
	Days int

	// MinInterval is the minimum gap between two effective sweeps.
	MinInterval time.Duration
}

// DefaultRetentionPolicy returns a 30 day window swept at most weekly.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		Days:        DefaultRetentionDays,
		MinInterval: DefaultSweepInterval,
	}
}

// Cutoff returns the instant before which messages are expired.
func (p RetentionPolicy) Cutoff(now time.Time) time.Time {
	days := p.Days
	if days <= 0 {
		days = DefaultRetentionDays
	}
	return now.Add(-time.Duration(days) * 24 * time.Hour)
}

// Due reports whether a sweep may run given the last run time.
func (p RetentionPolicy) Due(lastRun, now time.Time) bool {
	if lastRun.IsZero() {
		return true
	}
	interval := p.MinInterval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return now.Sub(lastRun) >= interval
}

// SweepReport summarises one retention run.
type SweepReport struct {
	// Skipped is true when the throttle prevented the run.
	Skipped bool

	// LastRunAt is the sentinel value after the call.
	LastRunAt time.Time

	// SessionsScanned counts single-file and workspace sessions visited.
	SessionsScanned int

	// MessagesPruned counts removed chat messages.
	MessagesPruned int
}
