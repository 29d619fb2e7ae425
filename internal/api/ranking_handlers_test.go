package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagetrail/pagetrail-server/internal/domain"
)

func TestTopReviewers(t *testing.T) {
	ts := setupTestServer(t)
	b1 := ts.createBook(t, "One")
	b2 := ts.createBook(t, "Two")
	ada := ts.createUser(t, "ada")
	grace := ts.createUser(t, "grace")

	ts.createReview(t, b1.ID, ada.ID, 4)
	ts.createReview(t, b2.ID, ada.ID, 5)
	ts.createReview(t, b1.ID, grace.ID, 3)

	resp := ts.api.Get("/api/v1/rankings/top-reviewers?limit=1")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	reviewers := decodeEnvelope[TopReviewersResponse](t, resp).Data.Reviewers
	require.Len(t, reviewers, 1)
	assert.Equal(t, ada.ID, reviewers[0].UserID)
	assert.Equal(t, 2, reviewers[0].ReviewCount)
	assert.Equal(t, 1, reviewers[0].Rank)

	// Deleted accounts stay ranked under a placeholder name.
	require.Equal(t, http.StatusOK, ts.api.Delete("/api/v1/users/"+grace.ID).Code)

	resp = ts.api.Get("/api/v1/rankings/top-reviewers")
	require.Equal(t, http.StatusOK, resp.Code)
	reviewers = decodeEnvelope[TopReviewersResponse](t, resp).Data.Reviewers
	require.Len(t, reviewers, 2)
	assert.Equal(t, domain.UnknownUsername, reviewers[1].Username)
}

func TestTopReviewers_NegativeLimit(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/rankings/top-reviewers?limit=-1")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestFastestReaders(t *testing.T) {
	ts := setupTestServer(t)
	b1 := ts.createBook(t, "One")
	b2 := ts.createBook(t, "Two")
	ada := ts.createUser(t, "ada")
	grace := ts.createUser(t, "grace")

	for _, body := range []map[string]any{
		{"user_id": ada.ID, "book_id": b1.ID, "status": "completed", "start_date": "2025-01-01T00:00:00Z", "finish_date": "2025-01-04T00:00:00Z"},
		{"user_id": grace.ID, "book_id": b1.ID, "status": "completed", "start_date": "2025-01-01T00:00:00Z", "finish_date": "2025-01-11T00:00:00Z"},
		{"user_id": grace.ID, "book_id": b2.ID, "status": "completed", "finish_date": "2025-02-01T00:00:00Z"},
	} {
		resp := ts.api.Post("/api/v1/readings", body)
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	}

	resp := ts.api.Get("/api/v1/rankings/fastest-readers")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	ranking := decodeEnvelope[domain.ReadingSpeedRanking](t, resp).Data
	require.Len(t, ranking.Readers, 2)
	assert.Equal(t, ada.ID, ranking.Readers[0].UserID)
	assert.Equal(t, "3d", ranking.Readers[0].AverageDuration)
	assert.Equal(t, grace.ID, ranking.Readers[1].UserID)
	assert.Equal(t, 1, ranking.Readers[1].CompletedBooks)

	require.Len(t, ranking.Excluded, 1)
	assert.Equal(t, domain.ExclusionMissingStart, ranking.Excluded[0].Reason)
	assert.Equal(t, b2.ID, ranking.Excluded[0].BookID)
}
