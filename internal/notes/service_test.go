package notes

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewise-app/notewise/internal/generation"
)

type memoryRepository struct {
	mu    sync.Mutex
	notes map[uuid.UUID]NoteRow
	err   error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{notes: make(map[uuid.UUID]NoteRow)}
}

func (m *memoryRepository) Create(ctx context.Context, row *NoteRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.notes[row.ID] = *row
	return nil
}

func (m *memoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*NoteRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	row, ok := m.notes[id]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (m *memoryRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*NoteRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []*NoteRow
	for _, row := range m.notes {
		if row.OwnerUserID == ownerID {
			r := row
			rows = append(rows, &r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].UpdatedAt.After(rows[j].UpdatedAt) })
	if offset >= len(rows) {
		return nil, nil
	}
	end := min(offset+limit, len(rows))
	return rows[offset:end], nil
}

func (m *memoryRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, row := range m.notes {
		if row.OwnerUserID == ownerID {
			n++
		}
	}
	return n, nil
}

func (m *memoryRepository) mutate(id uuid.UUID, fn func(*NoteRow)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	row, ok := m.notes[id]
	if !ok {
		return ErrNotFound
	}
	fn(&row)
	m.notes[id] = row
	return nil
}

func (m *memoryRepository) Update(ctx context.Context, row *NoteRow) error {
	return m.mutate(row.ID, func(n *NoteRow) {
		n.Title, n.Content, n.UpdatedAt = row.Title, row.Content, row.UpdatedAt
	})
}

func (m *memoryRepository) SaveSummary(ctx context.Context, id uuid.UUID, summary string, at time.Time) error {
	return m.mutate(id, func(n *NoteRow) { n.Summary, n.UpdatedAt = summary, at })
}

func (m *memoryRepository) SaveFlashcards(ctx context.Context, id uuid.UUID, flashcards []byte, at time.Time) error {
	return m.mutate(id, func(n *NoteRow) { n.Flashcards, n.UpdatedAt = flashcards, at })
}

func (m *memoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[id]; !ok {
		return ErrNotFound
	}
	delete(m.notes, id)
	return nil
}

// fakeGenerator mimics the pipeline: it produces a fixed result and runs Save.
type fakeGenerator struct {
	result *generation.Result
	err    error
	reqs   []generation.Request
}

func (g *fakeGenerator) Generate(ctx context.Context, req generation.Request) (*generation.Result, error) {
	g.reqs = append(g.reqs, req)
	if g.err != nil {
		return nil, g.err
	}
	res := *g.result
	res.Operation = req.Operation
	if req.Save != nil {
		if err := req.Save(ctx, &res); err != nil {
			return nil, err
		}
	}
	return &res, nil
}

func newTestService() (*Service, *memoryRepository, *fakeGenerator) {
	repo := newMemoryRepository()
	gen := &fakeGenerator{result: &generation.Result{
		Summary: "Cells make ATP.",
		Flashcards: []generation.Flashcard{
			{Question: "What makes ATP?", Answer: "Mitochondria"},
		},
		RemainingUses: 3,
	}}
	return NewService(repo, gen), repo, gen
}

func TestService_CreateDefaults(t *testing.T) {
	svc, _, _ := newTestService()
	ownerID := uuid.New()

	note, err := svc.Create(context.Background(), ownerID, &CreateNoteRequest{Title: "   "})
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, note.Title)
	assert.Equal(t, ownerID, note.OwnerUserID)
	assert.Empty(t, note.Summary)
	assert.NotNil(t, note.Flashcards)
	assert.Empty(t, note.Flashcards)

	got, err := svc.GetByID(context.Background(), note.ID)
	require.NoError(t, err)
	assert.Equal(t, note.ID, got.ID)
}

func TestService_GetMissing(t *testing.T) {
	svc, _, _ := newTestService()

	note, err := svc.GetByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, note)
}

func TestService_ListOrderedByUpdate(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	ownerID := uuid.New()

	first, err := svc.Create(ctx, ownerID, &CreateNoteRequest{Title: "first"})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = svc.Create(ctx, ownerID, &CreateNoteRequest{Title: "second"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, uuid.New(), &CreateNoteRequest{Title: "someone else"})
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	title := "first, edited"
	_, err = svc.Update(ctx, first, &UpdateNoteRequest{Title: &title})
	require.NoError(t, err)

	notes, total, err := svc.ListByOwner(ctx, ownerID, DefaultListParams())
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, notes, 2)
	assert.Equal(t, "first, edited", notes[0].Title)
	assert.Equal(t, "second", notes[1].Title)
}

func TestService_UpdateKeepsUnsetFields(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	note, err := svc.Create(ctx, uuid.New(), &CreateNoteRequest{Title: "Biology", Content: "cells"})
	require.NoError(t, err)

	content := "mitochondria"
	updated, err := svc.Update(ctx, note, &UpdateNoteRequest{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, "Biology", updated.Title)
	assert.Equal(t, "mitochondria", updated.Content)
	assert.Equal(t, "cells", note.Content)
}

func TestService_GenerateSummaryPersists(t *testing.T) {
	svc, _, gen := newTestService()
	ctx := context.Background()
	note, err := svc.Create(ctx, uuid.New(), &CreateNoteRequest{Content: "<p>notes</p>"})
	require.NoError(t, err)

	updated, remaining, err := svc.Generate(ctx, note, generation.OpSummary)
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)
	assert.Equal(t, "Cells make ATP.", updated.Summary)

	require.Len(t, gen.reqs, 1)
	assert.Equal(t, note.OwnerUserID, gen.reqs[0].UserID)
	assert.Equal(t, note.ID, gen.reqs[0].NoteID)
	assert.Equal(t, "<p>notes</p>", gen.reqs[0].Content)

	stored, err := svc.GetByID(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cells make ATP.", stored.Summary)
	assert.Empty(t, stored.Flashcards)
}

func TestService_GenerateFlashcardsOverwrites(t *testing.T) {
	svc, _, gen := newTestService()
	ctx := context.Background()
	note, err := svc.Create(ctx, uuid.New(), &CreateNoteRequest{Content: "notes"})
	require.NoError(t, err)

	_, _, err = svc.Generate(ctx, note, generation.OpFlashcards)
	require.NoError(t, err)

	gen.result.Flashcards = []generation.Flashcard{{Question: "Q2", Answer: "A2"}}
	_, _, err = svc.Generate(ctx, note, generation.OpFlashcards)
	require.NoError(t, err)

	stored, err := svc.GetByID(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, []generation.Flashcard{{Question: "Q2", Answer: "A2"}}, stored.Flashcards)
	assert.Empty(t, stored.Summary)
}

func TestService_GenerateFailureLeavesNote(t *testing.T) {
	svc, _, gen := newTestService()
	ctx := context.Background()
	note, err := svc.Create(ctx, uuid.New(), &CreateNoteRequest{Content: "notes"})
	require.NoError(t, err)

	gen.err = &generation.Error{Kind: generation.KindInvalidArgument, Message: "Notes must be 50+ words long"}
	_, _, err = svc.Generate(ctx, note, generation.OpSummary)
	require.Error(t, err)

	stored, err := svc.GetByID(ctx, note.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Summary)
}

func TestService_GenerateForDeletedNote(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	note, err := svc.Create(ctx, uuid.New(), &CreateNoteRequest{Content: "notes"})
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, note.ID))

	_, _, err = svc.Generate(ctx, note, generation.OpSummary)
	assert.True(t, errors.Is(err, ErrNotFound))
}
