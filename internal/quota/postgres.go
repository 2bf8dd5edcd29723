package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresStore struct {
	pool   *pgxpool.Pool
	limits Limits
}

// NewPostgresStore returns a Store backed by the quota_records table.
func NewPostgresStore(pool *pgxpool.Pool, limits Limits) Store {
	return &postgresStore{pool: pool, limits: limits}
}

func (s *postgresStore) Provision(ctx context.Context, userID uuid.UUID, initial int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO quota_records (user_id, remaining_uses, last_reset_at, updated_at)
		 VALUES ($1, $2, NOW(), NOW())
		 ON CONFLICT (user_id) DO NOTHING`, userID, initial)
	if err != nil {
		return fmt.Errorf("provisioning quota record: %w", err)
	}
	return nil
}

// Consume relies on the row lock taken by UPDATE: a concurrent transaction
// blocked on the same row re-evaluates the WHERE clause against the
// committed values, so only as many callers as there are remaining uses win.
func (s *postgresStore) Consume(ctx context.Context, userID uuid.UUID) (Decision, error) {
	var (
		remaining int
		lastReset time.Time
		reset     bool
	)
	err := s.pool.QueryRow(ctx,
		`UPDATE quota_records
		 SET remaining_uses = CASE WHEN remaining_uses > 0 THEN remaining_uses - 1 ELSE $2 - 1 END,
		     last_reset_at  = CASE WHEN remaining_uses > 0 THEN last_reset_at ELSE NOW() END,
		     updated_at     = NOW()
		 WHERE user_id = $1
		   AND (remaining_uses > 0 OR last_reset_at <= NOW() - make_interval(secs => $3))
		 RETURNING remaining_uses, last_reset_at, last_reset_at = NOW()`,
		userID, s.limits.MaxDailyUses, s.limits.Window.Seconds(),
	).Scan(&remaining, &lastReset, &reset)
	if err == nil {
		return Decision{Allowed: true, RemainingUses: remaining, Reset: reset}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Decision{}, fmt.Errorf("consuming quota: %w", err)
	}

	// Nothing updated: either the record is missing or the user is exhausted.
	rec, err := s.Get(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:       false,
		RemainingUses: rec.RemainingUses,
		NextResetAt:   rec.LastResetAt.Add(s.limits.Window),
	}, nil
}

func (s *postgresStore) Refund(ctx context.Context, userID uuid.UUID) (int, error) {
	var remaining int
	err := s.pool.QueryRow(ctx,
		`UPDATE quota_records
		 SET remaining_uses = LEAST(remaining_uses + 1, $2),
		     updated_at     = NOW()
		 WHERE user_id = $1
		 RETURNING remaining_uses`, userID, s.limits.MaxDailyUses,
	).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("refunding quota: %w", err)
	}
	return remaining, nil
}

func (s *postgresStore) Get(ctx context.Context, userID uuid.UUID) (*Record, error) {
	rec := &Record{}
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, remaining_uses, last_reset_at, updated_at, NOW()
		 FROM quota_records WHERE user_id = $1`, userID,
	).Scan(&rec.UserID, &rec.RemainingUses, &rec.LastResetAt, &rec.UpdatedAt, &rec.ObservedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetching quota record: %w", err)
	}
	return rec, nil
}
