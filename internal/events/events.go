package events

import (
	"time"

	"github.com/google/uuid"
)

// FetchTimeout bounds a single batch fetch from a consumer.
const FetchTimeout = 2 * time.Second

const StreamUsage = "NOTEWISE_EVENTS"

const SubjectUsage = "notewise.events.usage"

// Outcome is what happened to a generation request.
type Outcome string

const (
	// OutcomeGenerated: an artifact was produced and one use was spent.
	OutcomeGenerated Outcome = "generated"
	// OutcomeDenied: the user had no uses left.
	OutcomeDenied Outcome = "denied"
	// OutcomeRejected: the request failed before any use was spent.
	OutcomeRejected Outcome = "rejected"
	// OutcomeRefunded: generation failed after consumption and the use was returned.
	OutcomeRefunded Outcome = "refunded"
	// OutcomeFailed: generation failed after consumption and the refund failed too.
	OutcomeFailed Outcome = "failed"
)

// UsageEvent records one generation attempt.
type UsageEvent struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	Operation     string     `json:"operation"`
	Outcome       Outcome    `json:"outcome"`
	Kind          string     `json:"kind,omitempty"`
	RemainingUses *int       `json:"remaining_uses,omitempty"`
	NoteID        *uuid.UUID `json:"note_id,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
}
