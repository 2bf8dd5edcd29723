package quota

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/notewise-app/notewise/internal/api"
	"github.com/notewise-app/notewise/internal/auth"
)

// Handler provides the HTTP handler for the quota status endpoint.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// GetStatus returns the authenticated user's remaining uses and reset time.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == uuid.Nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	status, err := h.svc.Status(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			api.HandleError(w, api.NewNotFoundError("quota record not found"))
			return
		}
		slog.Error("getting quota status", "error", err, "user_id", userID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, status)
}
