package quota

import (
	"context"

	"github.com/google/uuid"
)

// Store persists quota records. Consume and Refund must each be a single
// atomic read-check-write on the store side and must measure elapsed time
// with the store's own clock.
type Store interface {
	// Provision creates the record with initial remaining uses. Existing
	// records are left untouched.
	Provision(ctx context.Context, userID uuid.UUID, initial int) error
	// Consume takes one use, refilling the allowance first when the record
	// is exhausted and its window has elapsed.
	Consume(ctx context.Context, userID uuid.UUID) (Decision, error)
	// Refund returns one use, capped at the daily maximum, and reports the
	// resulting remaining uses.
	Refund(ctx context.Context, userID uuid.UUID) (int, error)
	Get(ctx context.Context, userID uuid.UUID) (*Record, error)
}
