package quota

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a user has no quota record.
var ErrNotFound = errors.New("quota record not found")

// Record is a user's persisted quota state.
type Record struct {
	UserID        uuid.UUID `json:"user_id"`
	RemainingUses int       `json:"remaining_uses"`
	LastResetAt   time.Time `json:"last_reset_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	// ObservedAt is the store clock at the time the record was read.
	ObservedAt time.Time `json:"-"`
}

// Decision is the outcome of a single consume attempt.
type Decision struct {
	Allowed       bool
	RemainingUses int
	// NextResetAt is set on denial.
	NextResetAt time.Time
	// Reset reports that the window had elapsed and the allowance was refilled.
	Reset bool
}

// Status is the read-only view served to clients for the reset countdown.
type Status struct {
	RemainingUses int       `json:"remaining_uses"`
	MaxDailyUses  int       `json:"max_daily_uses"`
	LastResetAt   time.Time `json:"last_reset_at"`
	NextResetAt   time.Time `json:"next_reset_at"`
	Exhausted     bool      `json:"exhausted"`
}

// Limits are the allowance parameters shared by every store.
type Limits struct {
	MaxDailyUses int
	Window       time.Duration
}
