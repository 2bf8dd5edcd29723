package usage

import (
	"time"

	"github.com/google/uuid"

	"github.com/notewise-app/notewise/internal/events"
)

// Entry matches the usage_events table schema.
type Entry struct {
	ID            uuid.UUID      `json:"id"`
	UserID        uuid.UUID      `json:"user_id"`
	Operation     string         `json:"operation"`
	Outcome       events.Outcome `json:"outcome"`
	Kind          string         `json:"kind,omitempty"`
	RemainingUses *int           `json:"remaining_uses,omitempty"`
	NoteID        *uuid.UUID     `json:"note_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// FromEvent converts a stream event into a table row.
func FromEvent(ev events.UsageEvent) *Entry {
	e := &Entry{
		ID:            ev.ID,
		UserID:        ev.UserID,
		Operation:     ev.Operation,
		Outcome:       ev.Outcome,
		Kind:          ev.Kind,
		RemainingUses: ev.RemainingUses,
		NoteID:        ev.NoteID,
		CreatedAt:     ev.Timestamp,
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return e
}

type ListParams struct {
	Operation string
	Outcome   string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

func DefaultListParams() ListParams {
	return ListParams{
		Page:     1,
		PageSize: 20,
	}
}
