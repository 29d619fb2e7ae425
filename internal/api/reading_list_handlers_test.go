package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagetrail/pagetrail-server/internal/domain"
)

func TestAddReading_CountsOnce(t *testing.T) {
	ts := setupTestServer(t)
	book := ts.createBook(t, "Emma")
	ada := ts.createUser(t, "ada")

	resp := ts.api.Post("/api/v1/readings", map[string]any{"user_id": ada.ID, "book_id": book.ID})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	entry := decodeEnvelope[*domain.ReadingListEntry](t, resp).Data
	assert.Equal(t, domain.ReadingStatusWantToRead, entry.Status)

	resp = ts.api.Post("/api/v1/readings", map[string]any{"user_id": ada.ID, "book_id": book.ID})
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "ALREADY_EXISTS", decodeEnvelope[any](t, resp).Code)

	resp = ts.api.Get("/api/v1/books/" + book.ID)
	assert.Equal(t, 1, decodeEnvelope[*domain.Book](t, resp).Data.AddedToListCount)
}

func TestAddReading_Invalid(t *testing.T) {
	ts := setupTestServer(t)
	book := ts.createBook(t, "Emma")
	ada := ts.createUser(t, "ada")

	resp := ts.api.Post("/api/v1/readings", map[string]any{
		"user_id": ada.ID,
		"book_id": book.ID,
		"status":  "completed",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

	resp = ts.api.Post("/api/v1/readings", map[string]any{
		"user_id":     ada.ID,
		"book_id":     book.ID,
		"status":      "completed",
		"start_date":  "2025-05-10T00:00:00Z",
		"finish_date": "2025-05-01T00:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

	resp = ts.api.Post("/api/v1/readings", map[string]any{
		"user_id": ada.ID,
		"book_id": book.ID,
		"status":  "paused",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestReadingLifecycle(t *testing.T) {
	ts := setupTestServer(t)
	book := ts.createBook(t, "Emma")
	ada := ts.createUser(t, "ada")
	key := "/api/v1/readings/" + ada.ID + "/" + book.ID

	resp := ts.api.Post("/api/v1/readings", map[string]any{"user_id": ada.ID, "book_id": book.ID})
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = ts.api.Patch(key + "/start")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	started := decodeEnvelope[*domain.ReadingListEntry](t, resp).Data
	assert.Equal(t, domain.ReadingStatusReading, started.Status)
	require.NotNil(t, started.StartDate)

	resp = ts.api.Patch(key + "/finish")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	finished := decodeEnvelope[*domain.ReadingListEntry](t, resp).Data
	assert.Equal(t, domain.ReadingStatusCompleted, finished.Status)
	require.NotNil(t, finished.FinishDate)

	resp = ts.api.Put(key, map[string]any{
		"status":      "completed",
		"start_date":  "2025-05-01T00:00:00Z",
		"finish_date": "2025-05-04T00:00:00Z",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Get(key)
	require.Equal(t, http.StatusOK, resp.Code)
	entry := decodeEnvelope[*domain.ReadingListEntry](t, resp).Data
	assert.Equal(t, "2025-05-04T00:00:00Z", entry.FinishDate.UTC().Format("2006-01-02T15:04:05Z07:00"))

	resp = ts.api.Get("/api/v1/readings/" + ada.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decodeEnvelope[ReadingsResponse](t, resp).Data.Entries, 1)

	resp = ts.api.Delete(key)
	require.Equal(t, http.StatusOK, resp.Code)

	// Removing the entry leaves the lifetime counter alone.
	resp = ts.api.Get("/api/v1/books/" + book.ID)
	assert.Equal(t, 1, decodeEnvelope[*domain.Book](t, resp).Data.AddedToListCount)

	resp = ts.api.Get("/api/v1/readings")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, decodeEnvelope[ReadingsResponse](t, resp).Data.Entries)
}

func TestReadings_UnknownUser(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/readings/usr-missing")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Patch("/api/v1/readings/usr-missing/book-missing/start")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
