package usage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewise-app/notewise/internal/auth"
	"github.com/notewise-app/notewise/internal/events"
)

type fakeLister struct {
	userID  uuid.UUID
	params  ListParams
	entries []Entry
}

func (f *fakeLister) ListByUser(ctx context.Context, userID uuid.UUID, params ListParams) ([]Entry, int64, error) {
	f.userID = userID
	f.params = params
	return f.entries, int64(len(f.entries)), nil
}

func getAs(userID uuid.UUID, target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	claims := &auth.AccessClaims{UserID: userID.String()}
	return req.WithContext(context.WithValue(req.Context(), auth.UserClaimsKey, claims))
}

func TestHandler_List(t *testing.T) {
	userID := uuid.New()
	repo := &fakeLister{entries: []Entry{
		{ID: uuid.New(), UserID: userID, Operation: "summary", Outcome: events.OutcomeGenerated, CreatedAt: time.Now()},
	}}
	h := NewHandler(repo)

	rec := httptest.NewRecorder()
	h.List(rec, getAs(userID, "/api/v1/usage?operation=summary&outcome=generated&page=2&page_size=5&from=2026-01-01T00:00:00Z"))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, userID, repo.userID)
	assert.Equal(t, "summary", repo.params.Operation)
	assert.Equal(t, "generated", repo.params.Outcome)
	assert.Equal(t, 2, repo.params.Page)
	assert.Equal(t, 5, repo.params.PageSize)
	require.NotNil(t, repo.params.From)
	assert.Equal(t, 2026, repo.params.From.Year())

	var body struct {
		Data       []Entry `json:"data"`
		TotalCount int64   `json:"total_count"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.EqualValues(t, 1, body.TotalCount)
	require.Len(t, body.Data, 1)
	assert.Equal(t, events.OutcomeGenerated, body.Data[0].Outcome)
}

func TestHandler_ListRejectsBadFilters(t *testing.T) {
	h := NewHandler(&fakeLister{})

	for _, target := range []string{
		"/api/v1/usage?operation=quiz",
		"/api/v1/usage?outcome=maybe",
		"/api/v1/usage?from=yesterday",
	} {
		rec := httptest.NewRecorder()
		h.List(rec, getAs(uuid.New(), target))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestHandler_ListUnauthenticated(t *testing.T) {
	h := NewHandler(&fakeLister{})

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/usage", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
