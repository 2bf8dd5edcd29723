package usage

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/notewise-app/notewise/internal/api"
	"github.com/notewise-app/notewise/internal/auth"
	"github.com/notewise-app/notewise/internal/events"
)

// Lister reads a user's usage history.
type Lister interface {
	ListByUser(ctx context.Context, userID uuid.UUID, params ListParams) ([]Entry, int64, error)
}

type Handler struct {
	repo Lister
}

func NewHandler(repo Lister) *Handler {
	return &Handler{repo: repo}
}

// List returns the authenticated user's paginated usage history.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == uuid.Nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	params, err := parseListParams(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	entries, total, err := h.repo.ListByUser(r.Context(), userID, params)
	if err != nil {
		slog.Error("listing usage events", "error", err, "user_id", userID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, entries, total, params.Page, params.PageSize)
}

func parseListParams(r *http.Request) (ListParams, error) {
	params := DefaultListParams()
	q := r.URL.Query()

	if op := q.Get("operation"); op != "" {
		if op != "summary" && op != "flashcards" {
			return params, api.NewBadRequestError("operation must be summary or flashcards")
		}
		params.Operation = op
	}
	if oc := q.Get("outcome"); oc != "" {
		switch events.Outcome(oc) {
		case events.OutcomeGenerated, events.OutcomeDenied, events.OutcomeRejected,
			events.OutcomeRefunded, events.OutcomeFailed:
			params.Outcome = oc
		default:
			return params, api.NewBadRequestError("unknown outcome " + strconv.Quote(oc))
		}
	}
	if p := q.Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil && page > 0 {
			params.Page = page
		}
	}
	if ps := q.Get("page_size"); ps != "" {
		if pageSize, err := strconv.Atoi(ps); err == nil && pageSize > 0 && pageSize <= 100 {
			params.PageSize = pageSize
		}
	}
	if from := q.Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return params, api.NewBadRequestError("from must be an RFC3339 timestamp")
		}
		params.From = &t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return params, api.NewBadRequestError("to must be an RFC3339 timestamp")
		}
		params.To = &t
	}

	return params, nil
}
