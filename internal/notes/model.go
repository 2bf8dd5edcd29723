package notes

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/notewise-app/notewise/internal/generation"
)

const DefaultTitle = "Untitled Note"

var ErrNotFound = errors.New("note not found")

type Note struct {
	ID          uuid.UUID              `json:"id"`
	OwnerUserID uuid.UUID              `json:"owner_user_id"`
	Title       string                 `json:"title"`
	Content     string                 `json:"content"`
	Summary     string                 `json:"summary"`
	Flashcards  []generation.Flashcard `json:"flashcards"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// NoteRow is the database representation with the JSONB column as raw bytes.
type NoteRow struct {
	ID          uuid.UUID
	OwnerUserID uuid.UUID
	Title       string
	Content     string
	Summary     string
	Flashcards  []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CreateNoteRequest struct {
	Title   string `json:"title" validate:"max=255"`
	Content string `json:"content" validate:"max=200000"`
}

type UpdateNoteRequest struct {
	Title   *string `json:"title" validate:"omitempty,min=1,max=255"`
	Content *string `json:"content" validate:"omitempty,max=200000"`
}

// ArtifactResponse is returned after generating into a note.
type ArtifactResponse struct {
	Note          *Note `json:"note"`
	RemainingUses int   `json:"remaining_uses"`
}

type ListNotesParams struct {
	Page     int
	PageSize int
}

func DefaultListParams() ListNotesParams {
	return ListNotesParams{
		Page:     1,
		PageSize: 20,
	}
}
