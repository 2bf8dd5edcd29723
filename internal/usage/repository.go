package usage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notewise-app/notewise/internal/events"
)

// Repository handles usage_events PostgreSQL operations.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores e. Redelivered events with an already stored id are ignored.
func (r *Repository) Insert(ctx context.Context, e *Entry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO usage_events (id, user_id, operation, outcome, kind, remaining_uses, note_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO NOTHING`,
		e.ID, e.UserID, e.Operation, string(e.Outcome), e.Kind, e.RemainingUses, e.NoteID, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting usage event: %w", err)
	}
	return nil
}

// ListByUser returns the user's history, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, params ListParams) ([]Entry, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	conditions := []string{"user_id = $1"}
	args := []any{userID}

	if params.Operation != "" {
		args = append(args, params.Operation)
		conditions = append(conditions, fmt.Sprintf("operation = $%d", len(args)))
	}
	if params.Outcome != "" {
		args = append(args, params.Outcome)
		conditions = append(conditions, fmt.Sprintf("outcome = $%d", len(args)))
	}
	if params.From != nil {
		args = append(args, *params.From)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if params.To != nil {
		args = append(args, *params.To)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	where := strings.Join(conditions, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM usage_events WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting usage events: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	query := fmt.Sprintf(
		`SELECT id, user_id, operation, outcome, kind, remaining_uses, note_id, created_at
		 FROM usage_events WHERE %s
		 ORDER BY created_at DESC
		 LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying usage events: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var outcome string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Operation, &outcome, &e.Kind,
			&e.RemainingUses, &e.NoteID, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning usage event: %w", err)
		}
		e.Outcome = events.Outcome(outcome)
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
