package api

import (
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagetrail/pagetrail-server/internal/domain"
	"github.com/pagetrail/pagetrail-server/internal/service"
)

func TestCreateReview_RefreshesBook(t *testing.T) {
	ts := setupTestServer(t)
	book := ts.createBook(t, "Dune")
	ada := ts.createUser(t, "ada")
	grace := ts.createUser(t, "grace")

	first := ts.createReview(t, book.ID, ada.ID, 5)
	assert.Equal(t, 1, first.Book.ReviewCount)
	require.NotNil(t, first.Book.AverageRating)
	assert.InDelta(t, 5.0, *first.Book.AverageRating, 1e-9)

	second := ts.createReview(t, book.ID, grace.ID, 2)
	assert.Equal(t, 2, second.Book.ReviewCount)
	assert.InDelta(t, 3.5, *second.Book.AverageRating, 1e-9)

	resp := ts.api.Get("/api/v1/books/" + book.ID + "/reviews")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decodeEnvelope[ReviewsResponse](t, resp).Data.Reviews, 2)
}

func TestCreateReview_Errors(t *testing.T) {
	ts := setupTestServer(t)
	book := ts.createBook(t, "Dune")
	ada := ts.createUser(t, "ada")
	ts.createReview(t, book.ID, ada.ID, 4)

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
		wantCode   string
	}{
		{"rating too high", map[string]any{"book_id": book.ID, "user_id": ada.ID, "rating": 6}, http.StatusBadRequest, "VALIDATION"},
		{"missing rating", map[string]any{"book_id": book.ID, "user_id": ada.ID}, http.StatusBadRequest, "VALIDATION"},
		{"unknown book", map[string]any{"book_id": "book-missing", "user_id": ada.ID, "rating": 3}, http.StatusNotFound, "NOT_FOUND"},
		{"duplicate", map[string]any{"book_id": book.ID, "user_id": ada.ID, "rating": 3}, http.StatusConflict, "ALREADY_EXISTS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Post("/api/v1/reviews", tt.body)
			assert.Equal(t, tt.wantStatus, resp.Code, resp.Body.String())
			assert.Equal(t, tt.wantCode, decodeEnvelope[any](t, resp).Code)
		})
	}

	resp := ts.api.Get("/api/v1/books/" + book.ID)
	assert.Equal(t, 1, decodeEnvelope[*domain.Book](t, resp).Data.ReviewCount)
}

func TestUpdateAndDeleteReview(t *testing.T) {
	ts := setupTestServer(t)
	book := ts.createBook(t, "Dune")
	ada := ts.createUser(t, "ada")
	created := ts.createReview(t, book.ID, ada.ID, 2)

	resp := ts.api.Patch("/api/v1/reviews/"+created.Review.ID, map[string]any{"rating": 4})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	updated := decodeEnvelope[*service.ReviewResult](t, resp).Data
	assert.Equal(t, 4, updated.Review.Rating)
	assert.InDelta(t, 4.0, *updated.Book.AverageRating, 1e-9)

	resp = ts.api.Delete("/api/v1/reviews/" + created.Review.ID)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	deleted := decodeEnvelope[DeleteReviewResponse](t, resp).Data
	assert.Equal(t, 0, deleted.Book.ReviewCount)
	assert.Nil(t, deleted.Book.AverageRating)

	assert.Equal(t, http.StatusNotFound, ts.api.Delete("/api/v1/reviews/"+created.Review.ID).Code)
}

func TestCreateReview_ConcurrentRequests(t *testing.T) {
	ts := setupTestServer(t)
	book := ts.createBook(t, "Dune")

	const n = 10
	users := make([]*domain.User, n)
	for i := range users {
		users[i] = ts.createUser(t, "reader"+string(rune('a'+i)))
	}

	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := range users {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp := ts.api.Post("/api/v1/reviews", map[string]any{
				"book_id": book.ID,
				"user_id": users[i].ID,
				"rating":  i%5 + 1,
			})
			codes[i] = resp.Code
		}(i)
	}
	wg.Wait()

	for i, code := range codes {
		assert.Equal(t, http.StatusCreated, code, "request %d", i)
	}

	resp := ts.api.Get("/api/v1/books/" + book.ID)
	got := decodeEnvelope[*domain.Book](t, resp).Data
	assert.Equal(t, n, got.ReviewCount)
	require.NotNil(t, got.AverageRating)
	assert.InDelta(t, 3.0, *got.AverageRating, 1e-9)
}
