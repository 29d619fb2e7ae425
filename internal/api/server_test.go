package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagetrail/pagetrail-server/internal/domain"
	"github.com/pagetrail/pagetrail-server/internal/service"
	"github.com/pagetrail/pagetrail-server/internal/store/sqlite"
)

// testEnvelope mirrors the response envelope with typed data.
type testEnvelope[T any] struct {
	Version int            `json:"v"`
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

type testServer struct {
	*Server
	api   humatest.TestAPI
	store *sqlite.Store
}

func setupTestServer(t *testing.T) *testServer {
	return setupTestServerWithOptions(t, Options{RequestsPerMinute: 6000, Burst: 1000})
}

func setupTestServerWithOptions(t *testing.T, opts Options) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	aggregates := service.NewAggregateService(st, service.AggregateOptions{MaxAttempts: 3, RetryBackoff: time.Millisecond}, logger)
	limits := service.RankingOptions{DefaultLimit: 10, MaxLimit: 50}
	services := &Services{
		Aggregates:  aggregates,
		Books:       service.NewBookService(st, aggregates, limits, logger),
		Reviews:     service.NewReviewService(st, aggregates, logger),
		ReadingList: service.NewReadingListService(st, aggregates, logger),
		Users:       service.NewUserService(st, aggregates, logger),
		Categories:  service.NewCategoryService(st, aggregates, logger),
		Rankings:    service.NewRankingService(st, limits, logger),
	}

	s := NewServer(st, services, opts, logger)
	t.Cleanup(s.Close)

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.API()),
		store:  st,
	}
}

func decodeEnvelope[T any](t *testing.T, resp *httptest.ResponseRecorder) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), "body: %s", resp.Body.String())
	return env
}

func (ts *testServer) createUser(t *testing.T, username string) *domain.User {
	t.Helper()
	resp := ts.api.Post("/api/v1/users", map[string]any{
		"username": username,
		"email":    username + "@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decodeEnvelope[*domain.User](t, resp).Data
}

func (ts *testServer) createBook(t *testing.T, title string) *domain.Book {
	t.Helper()
	resp := ts.api.Post("/api/v1/books", map[string]any{"title": title, "author": "Test Author"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decodeEnvelope[*domain.Book](t, resp).Data
}

func (ts *testServer) createReview(t *testing.T, bookID, userID string, rating int) *service.ReviewResult {
	t.Helper()
	resp := ts.api.Post("/api/v1/reviews", map[string]any{
		"book_id": bookID,
		"user_id": userID,
		"rating":  rating,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decodeEnvelope[*service.ReviewResult](t, resp).Data
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decodeEnvelope[HealthResponse](t, resp)
	assert.Equal(t, 1, env.Version)
	assert.True(t, env.Success)
	assert.Equal(t, "healthy", env.Data.Status)
	assert.Equal(t, "healthy", env.Data.Components["database"].Status)
}

func TestHealthCheck_ClosedStore(t *testing.T) {
	ts := setupTestServer(t)
	require.NoError(t, ts.store.Close())

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decodeEnvelope[HealthResponse](t, resp)
	assert.Equal(t, "unhealthy", env.Data.Status)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	book := ts.createBook(t, "Dune")
	ts.api.Post("/api/v1/books/" + book.ID + "/list-count")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	ts.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pagetrail_aggregate_mutations_total")
}

func TestUnknownRoute(t *testing.T) {
	ts := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	w := httptest.NewRecorder()
	ts.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	env := decodeEnvelope[any](t, w)
	assert.False(t, env.Success)
	assert.Equal(t, "NOT_FOUND", env.Code)
}

func TestRateLimit_OnlyMutations(t *testing.T) {
	ts := setupTestServerWithOptions(t, Options{RequestsPerMinute: 1, Burst: 2})

	send := func(method, path, body string) int {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "203.0.113.7:5555"
		w := httptest.NewRecorder()
		ts.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusCreated, send(http.MethodPost, "/api/v1/books", `{"title":"One"}`))
	assert.Equal(t, http.StatusCreated, send(http.MethodPost, "/api/v1/books", `{"title":"Two"}`))
	assert.Equal(t, http.StatusTooManyRequests, send(http.MethodPost, "/api/v1/books", `{"title":"Three"}`))

	// Reads stay available.
	assert.Equal(t, http.StatusOK, send(http.MethodGet, "/api/v1/books", ""))
}

func TestCORS_Preflight(t *testing.T) {
	ts := setupTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/books", nil)
	req.Header.Set("Origin", "https://reader.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	ts.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
