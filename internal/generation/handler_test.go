package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewise-app/notewise/internal/auth"
)

type errorBody struct {
	Error    string     `json:"error"`
	Code     string     `json:"code"`
	ResetAt  *time.Time `json:"reset_at"`
	MinWords int        `json:"min_words"`
}

func postAs(userID uuid.UUID, path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID == uuid.Nil {
		return req
	}
	claims := &auth.AccessClaims{UserID: userID.String()}
	return req.WithContext(context.WithValue(req.Context(), auth.UserClaimsKey, claims))
}

func contentBody(t *testing.T, content string) string {
	t.Helper()
	b, err := json.Marshal(GenerateRequest{Content: content})
	require.NoError(t, err)
	return string(b)
}

func TestHandler_Summary(t *testing.T) {
	f := setup(t)
	h := NewHandler(f.svc)
	userID := f.newUser(t)

	rec := httptest.NewRecorder()
	h.Summary(rec, postAs(userID, "/api/v1/generate/summary", contentBody(t, words(60))))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "A short summary.", body.Data["summary"])
	assert.EqualValues(t, 4, body.Data["remaining_uses"])
	assert.NotContains(t, body.Data, "flashcards")
}

func TestHandler_Flashcards(t *testing.T) {
	f := setup(t)
	f.llm.reply = validFlashcards
	h := NewHandler(f.svc)
	userID := f.newUser(t)

	rec := httptest.NewRecorder()
	h.Flashcards(rec, postAs(userID, "/api/v1/generate/flashcards", contentBody(t, words(80))))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data Result `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Len(t, body.Data.Flashcards, 2)
	assert.Equal(t, 4, body.Data.RemainingUses)
}

func TestHandler_ShortContent(t *testing.T) {
	f := setup(t)
	h := NewHandler(f.svc)
	userID := f.newUser(t)

	rec := httptest.NewRecorder()
	h.Flashcards(rec, postAs(userID, "/api/v1/generate/flashcards", contentBody(t, words(40))))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "invalid-argument", body.Code)
	assert.Equal(t, "Notes must be 70+ words long", body.Error)
	assert.Equal(t, 70, body.MinWords)
}

func TestHandler_EmptyBody(t *testing.T) {
	f := setup(t)
	h := NewHandler(f.svc)

	rec := httptest.NewRecorder()
	h.Summary(rec, postAs(f.newUser(t), "/api/v1/generate/summary", ""))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Must send notes", body.Error)
}

func TestHandler_MalformedJSON(t *testing.T) {
	f := setup(t)
	h := NewHandler(f.svc)

	rec := httptest.NewRecorder()
	h.Summary(rec, postAs(f.newUser(t), "/api/v1/generate/summary", "{not json"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, f.llm.callCount())
}

func TestHandler_Unauthenticated(t *testing.T) {
	f := setup(t)
	h := NewHandler(f.svc)

	rec := httptest.NewRecorder()
	h.Summary(rec, postAs(uuid.Nil, "/api/v1/generate/summary", contentBody(t, words(60))))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "unauthenticated", body.Code)
}

func TestHandler_Exhausted(t *testing.T) {
	f := setup(t)
	h := NewHandler(f.svc)
	userID := f.newUser(t)
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.Summary(rec, postAs(userID, "/api/v1/generate/summary", contentBody(t, words(60))))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.Summary(rec, postAs(userID, "/api/v1/generate/summary", contentBody(t, words(60))))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	retryAfter, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, retryAfter, 0)

	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "resource-exhausted", body.Code)
	require.NotNil(t, body.ResetAt)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), *body.ResetAt, time.Minute)
}

func TestHandler_InternalErrorHidesDiagnostic(t *testing.T) {
	f := setup(t)
	f.llm.reply = "secret provider output"
	h := NewHandler(f.svc)

	rec := httptest.NewRecorder()
	h.Flashcards(rec, postAs(f.newUser(t), "/api/v1/generate/flashcards", contentBody(t, words(80))))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret provider output")

	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "internal", body.Code)
	assert.Equal(t, "failed to parse flashcards", body.Error)
}

func TestWriteError_UnknownError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}
