// Package quota enforces the per-day quiz-attempt limit keyed by
// subscription tier. The counter is date-keyed per UTC day, so the daily
// reset is the absence of today's row rather than a scheduled job.
package quota

import (
	"time"

	"skillpath/backend/models"
)

const (
	FreeDailyAttempts = 1
	ProDailyAttempts  = 5
)

// Store is the slice of the progress store the quota manager needs.
type Store interface {
	GetDailyQuizCount(userID uint, day string) (int, error)
	IncrementDailyQuizCount(userID uint, day string) (int, error)
}

type Manager struct {
	store Store
	now   func() time.Time
}

func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// NewManagerAt builds a manager with a fixed clock, for tests.
func NewManagerAt(store Store, now func() time.Time) *Manager {
	return &Manager{store: store, now: now}
}

// MaxAttemptsFor returns the daily quiz-attempt cap for a tier. Unknown
// tiers fall back to the free cap.
func MaxAttemptsFor(tier string) int {
	switch tier {
	case models.TierPro, models.TierEnterprise:
		return ProDailyAttempts
	default:
		return FreeDailyAttempts
	}
}

// Today returns the current UTC day key.
func (m *Manager) Today() string {
	return m.now().UTC().Format("2006-01-02")
}

// ResetsAt returns the next UTC midnight, when today's counter stops
// applying.
func (m *Manager) ResetsAt() time.Time {
	day := m.now().UTC().Truncate(24 * time.Hour)
	return day.Add(24 * time.Hour)
}

// CanAttempt reports whether the user has attempts left today for their
// tier. A stale counter from a previous day reads as zero.
func (m *Manager) CanAttempt(userID uint, tier string) (bool, error) {
	count, err := m.store.GetDailyQuizCount(userID, m.Today())
	if err != nil {
		return false, err
	}
	return count < MaxAttemptsFor(tier), nil
}

// RecordAttempt consumes one attempt for today. Not idempotent: callers
// must invoke it exactly once per genuine attempt start, and never roll
// it back afterwards.
func (m *Manager) RecordAttempt(userID uint) (int, error) {
	return m.store.IncrementDailyQuizCount(userID, m.Today())
}
