package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagetrail/pagetrail-server/internal/domain"
)

func (ts *testServer) createCategory(t *testing.T, name string) *domain.Category {
	t.Helper()
	resp := ts.api.Post("/api/v1/categories", map[string]any{"name": name})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decodeEnvelope[*domain.Category](t, resp).Data
}

func TestCategoryCRUD(t *testing.T) {
	ts := setupTestServer(t)

	sf := ts.createCategory(t, "Science Fiction")
	assert.Contains(t, sf.ID, "cat-")

	resp := ts.api.Post("/api/v1/categories", map[string]any{"name": "science fiction"})
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "ALREADY_EXISTS", decodeEnvelope[any](t, resp).Code)

	resp = ts.api.Post("/api/v1/categories", map[string]any{"name": ""})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	ts.createCategory(t, "Classics")
	resp = ts.api.Get("/api/v1/categories")
	require.Equal(t, http.StatusOK, resp.Code)
	list := decodeEnvelope[CategoriesResponse](t, resp).Data.Categories
	require.Len(t, list, 2)
	assert.Equal(t, "Classics", list[0].Name)

	resp = ts.api.Put("/api/v1/categories/"+sf.ID, map[string]any{"name": "SF"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "SF", decodeEnvelope[*domain.Category](t, resp).Data.Name)

	resp = ts.api.Delete("/api/v1/categories/" + sf.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, http.StatusNotFound, ts.api.Get("/api/v1/categories/"+sf.ID).Code)
}

func TestBookCategoryRoutes(t *testing.T) {
	ts := setupTestServer(t)

	book := ts.createBook(t, "Dune")
	sf := ts.createCategory(t, "Science Fiction")

	resp := ts.api.Post("/api/v1/books/"+book.ID+"/categories", map[string]any{"category_id": sf.ID})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	cats := decodeEnvelope[CategoriesResponse](t, resp).Data.Categories
	require.Len(t, cats, 1)
	assert.Equal(t, sf.ID, cats[0].ID)

	resp = ts.api.Get("/api/v1/books/" + book.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	got := decodeEnvelope[*domain.Book](t, resp).Data
	require.Len(t, got.Categories, 1)
	assert.Equal(t, "Science Fiction", got.Categories[0].Name)

	resp = ts.api.Get("/api/v1/categories/" + sf.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	withBooks := decodeEnvelope[*domain.Category](t, resp).Data
	require.Len(t, withBooks.Books, 1)
	assert.Equal(t, book.ID, withBooks.Books[0].ID)

	resp = ts.api.Post("/api/v1/books/"+book.ID+"/categories", map[string]any{"category_id": "cat-missing"})
	assert.Equal(t, http.StatusNotFound, resp.Code)
	resp = ts.api.Post("/api/v1/books/book-missing/categories", map[string]any{"category_id": sf.ID})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Delete("/api/v1/books/" + book.ID + "/categories/" + sf.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, decodeEnvelope[CategoriesResponse](t, resp).Data.Categories)

	resp = ts.api.Get("/api/v1/books/" + book.ID + "/categories")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, decodeEnvelope[CategoriesResponse](t, resp).Data.Categories)

	assert.Equal(t, http.StatusNotFound, ts.api.Get("/api/v1/books/book-missing/categories").Code)
}

func TestCreateBook_WithCategoryIDs(t *testing.T) {
	ts := setupTestServer(t)

	sf := ts.createCategory(t, "Science Fiction")

	resp := ts.api.Post("/api/v1/books", map[string]any{
		"title":        "Dune",
		"category_ids": []string{sf.ID},
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	book := decodeEnvelope[*domain.Book](t, resp).Data
	require.Len(t, book.Categories, 1)

	resp = ts.api.Put("/api/v1/books/"+book.ID, map[string]any{
		"title":        "Dune",
		"category_ids": []string{},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Empty(t, decodeEnvelope[*domain.Book](t, resp).Data.Categories)
}
