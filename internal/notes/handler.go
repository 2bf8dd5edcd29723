package notes

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/notewise-app/notewise/internal/api"
	"github.com/notewise-app/notewise/internal/auth"
	"github.com/notewise-app/notewise/internal/generation"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.UserID(r.Context())
	if ownerID == uuid.Nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req CreateNoteRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	note, err := h.svc.Create(r.Context(), ownerID, &req)
	if err != nil {
		slog.Error("creating note", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusCreated, note)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.UserID(r.Context())
	if ownerID == uuid.Nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	params := DefaultListParams()
	if p := r.URL.Query().Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil && page > 0 {
			params.Page = page
		}
	}
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if pageSize, err := strconv.Atoi(ps); err == nil && pageSize > 0 && pageSize <= 100 {
			params.PageSize = pageSize
		}
	}

	notes, totalCount, err := h.svc.ListByOwner(r.Context(), ownerID, params)
	if err != nil {
		slog.Error("listing notes", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, notes, totalCount, params.Page, params.PageSize)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	note := GetNoteFromContext(r.Context())
	if note == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	api.JSON(w, http.StatusOK, note)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	note := GetNoteFromContext(r.Context())
	if note == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	var req UpdateNoteRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	updated, err := h.svc.Update(r.Context(), note, &req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			api.HandleError(w, api.NewNotFoundError("note not found"))
			return
		}
		slog.Error("updating note", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	note := GetNoteFromContext(r.Context())
	if note == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	if err := h.svc.Delete(r.Context(), note.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			api.HandleError(w, api.NewNotFoundError("note not found"))
			return
		}
		slog.Error("deleting note", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONMessage(w, http.StatusOK, "note deleted successfully")
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, generation.OpSummary)
}

func (h *Handler) Flashcards(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, generation.OpFlashcards)
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request, op generation.Operation) {
	note := GetNoteFromContext(r.Context())
	if note == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	updated, remaining, err := h.svc.Generate(r.Context(), note, op)
	if err != nil {
		generation.WriteError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, ArtifactResponse{Note: updated, RemainingUses: remaining})
}

// OwnershipMiddleware loads the note named in the URL and rejects requests
// from anyone but its owner.
func (h *Handler) OwnershipMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		if userID == uuid.Nil {
			api.HandleError(w, api.ErrUnauthorized)
			return
		}

		noteID, err := uuid.Parse(chi.URLParam(r, "noteID"))
		if err != nil {
			api.HandleError(w, api.NewBadRequestError("invalid note ID"))
			return
		}

		note, err := h.svc.GetByID(r.Context(), noteID)
		if err != nil {
			slog.Error("fetching note for ownership check", "error", err)
			api.HandleError(w, api.ErrInternalServer)
			return
		}
		if note == nil {
			api.HandleError(w, api.NewNotFoundError("note not found"))
			return
		}

		if note.OwnerUserID != userID {
			slog.Warn("ownership violation attempt",
				"note_id", noteID,
				"note_owner", note.OwnerUserID,
				"requester", userID,
				"path", r.URL.Path,
				"method", r.Method,
			)
			api.HandleError(w, api.ErrOwnershipViolation)
			return
		}

		ctx := SetNoteInContext(r.Context(), note)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
