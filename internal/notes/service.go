package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/notewise-app/notewise/internal/generation"
)

// Generator runs the generation pipeline.
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (*generation.Result, error)
}

type Service struct {
	repo Repository
	gen  Generator
}

func NewService(repo Repository, gen Generator) *Service {
	return &Service{repo: repo, gen: gen}
}

func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req *CreateNoteRequest) (*Note, error) {
	now := time.Now().UTC()
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = DefaultTitle
	}

	row := &NoteRow{
		ID:          uuid.New(),
		OwnerUserID: ownerID,
		Title:       title,
		Content:     req.Content,
		Flashcards:  []byte("[]"),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, err
	}
	return rowToNote(row)
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Note, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return rowToNote(row)
}

func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID, params ListNotesParams) ([]*Note, int64, error) {
	offset := (params.Page - 1) * params.PageSize

	rows, err := s.repo.ListByOwner(ctx, ownerID, params.PageSize, offset)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.repo.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, 0, err
	}

	notes := make([]*Note, 0, len(rows))
	for _, row := range rows {
		note, err := rowToNote(row)
		if err != nil {
			return nil, 0, err
		}
		notes = append(notes, note)
	}
	return notes, count, nil
}

func (s *Service) Update(ctx context.Context, note *Note, req *UpdateNoteRequest) (*Note, error) {
	updated := *note
	if req.Title != nil {
		updated.Title = strings.TrimSpace(*req.Title)
		if updated.Title == "" {
			updated.Title = DefaultTitle
		}
	}
	if req.Content != nil {
		updated.Content = *req.Content
	}
	updated.UpdatedAt = time.Now().UTC()

	row := &NoteRow{
		ID:        updated.ID,
		Title:     updated.Title,
		Content:   updated.Content,
		UpdatedAt: updated.UpdatedAt,
	}
	if err := s.repo.Update(ctx, row); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Generate runs op on the note's content and overwrites the matching
// artifact on the note. The returned note reflects the stored state.
func (s *Service) Generate(ctx context.Context, note *Note, op generation.Operation) (*Note, int, error) {
	updated := *note
	res, err := s.gen.Generate(ctx, generation.Request{
		Operation: op,
		Content:   note.Content,
		UserID:    note.OwnerUserID,
		NoteID:    note.ID,
		Save: func(ctx context.Context, res *generation.Result) error {
			updated.UpdatedAt = time.Now().UTC()
			switch res.Operation {
			case generation.OpFlashcards:
				cards, err := json.Marshal(res.Flashcards)
				if err != nil {
					return fmt.Errorf("marshaling flashcards: %w", err)
				}
				updated.Flashcards = res.Flashcards
				return s.repo.SaveFlashcards(ctx, note.ID, cards, updated.UpdatedAt)
			default:
				updated.Summary = res.Summary
				return s.repo.SaveSummary(ctx, note.ID, res.Summary, updated.UpdatedAt)
			}
		},
	})
	if err != nil {
		return nil, 0, err
	}
	return &updated, res.RemainingUses, nil
}

func rowToNote(row *NoteRow) (*Note, error) {
	cards := []generation.Flashcard{}
	if len(row.Flashcards) > 0 {
		if err := json.Unmarshal(row.Flashcards, &cards); err != nil {
			return nil, fmt.Errorf("unmarshaling flashcards: %w", err)
		}
	}

	return &Note{
		ID:          row.ID,
		OwnerUserID: row.OwnerUserID,
		Title:       row.Title,
		Content:     row.Content,
		Summary:     row.Summary,
		Flashcards:  cards,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}
