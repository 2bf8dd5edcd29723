package generation

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/notewise-app/notewise/internal/api"
	"github.com/notewise-app/notewise/internal/auth"
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

type GenerateRequest struct {
	Content string `json:"content" validate:"max=200000"`
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, OpSummary)
}

func (h *Handler) Flashcards(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, OpFlashcards)
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request, op Operation) {
	var req GenerateRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	res, err := h.svc.Generate(r.Context(), Request{
		Operation: op,
		Content:   req.Content,
		UserID:    auth.UserID(r.Context()),
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, res)
}

// WriteError renders a pipeline failure. Internal details and provider
// output stay in the logs.
func WriteError(w http.ResponseWriter, err error) {
	e := Classify(err)
	appErr := &api.AppError{Message: e.Message, Kind: e.Kind.String()}

	switch e.Kind {
	case KindUnauthenticated:
		appErr.Code = http.StatusUnauthorized
	case KindNotFound:
		appErr.Code = http.StatusNotFound
	case KindInvalidArgument:
		appErr.Code = http.StatusBadRequest
		appErr.MinWords = e.MinWords
	case KindResourceExhausted:
		appErr.Code = http.StatusTooManyRequests
		resetAt := e.NextResetAt.UTC()
		appErr.ResetAt = &resetAt
	case KindInternal:
		slog.Error("generation failed", "error", e.Err, "message", e.Message)
		appErr.Code = http.StatusInternalServerError
	}

	api.HandleError(w, appErr)
}
