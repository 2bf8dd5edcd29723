package notes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, row *NoteRow) error
	GetByID(ctx context.Context, id uuid.UUID) (*NoteRow, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*NoteRow, error)
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
	Update(ctx context.Context, row *NoteRow) error
	SaveSummary(ctx context.Context, id uuid.UUID, summary string, at time.Time) error
	SaveFlashcards(ctx context.Context, id uuid.UUID, flashcards []byte, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const noteColumns = `id, owner_user_id, title, content, summary, flashcards, created_at, updated_at`

func scanNote(row pgx.Row) (*NoteRow, error) {
	n := &NoteRow{}
	err := row.Scan(&n.ID, &n.OwnerUserID, &n.Title, &n.Content,
		&n.Summary, &n.Flashcards, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}

func (r *postgresRepository) Create(ctx context.Context, row *NoteRow) error {
	query := `
		INSERT INTO notes (` + noteColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		row.ID, row.OwnerUserID, row.Title, row.Content,
		row.Summary, row.Flashcards, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting note: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*NoteRow, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE id = $1`

	row, err := scanNote(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying note by id: %w", err)
	}
	return row, nil
}

func (r *postgresRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*NoteRow, error) {
	query := `
		SELECT ` + noteColumns + `
		FROM notes
		WHERE owner_user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	defer rows.Close()

	var notes []*NoteRow
	for rows.Next() {
		row, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning note row: %w", err)
		}
		notes = append(notes, row)
	}
	return notes, rows.Err()
}

func (r *postgresRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notes WHERE owner_user_id = $1`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting notes: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) Update(ctx context.Context, row *NoteRow) error {
	query := `UPDATE notes SET title = $2, content = $3, updated_at = $4 WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, row.ID, row.Title, row.Content, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating note: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) SaveSummary(ctx context.Context, id uuid.UUID, summary string, at time.Time) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE notes SET summary = $2, updated_at = $3 WHERE id = $1`, id, summary, at)
	if err != nil {
		return fmt.Errorf("saving note summary: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) SaveFlashcards(ctx context.Context, id uuid.UUID, flashcards []byte, at time.Time) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE notes SET flashcards = $2, updated_at = $3 WHERE id = $1`, id, flashcards, at)
	if err != nil {
		return fmt.Errorf("saving note flashcards: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting note: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
