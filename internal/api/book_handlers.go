package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pagetrail/pagetrail-server/internal/domain"
	"github.com/pagetrail/pagetrail-server/internal/service"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/books",
		Summary:       "Create book",
		Description:   "Adds a book to the catalog with zeroed counters",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Lists books filtered by title prefix, author prefix and publish year",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "topBooksByListCount",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/top",
		Summary:     "Most listed books",
		Description: "Returns the books added to reading lists most often",
		Tags:        []string{"Books"},
	}, s.handleTopBooksByListCount)

	huma.Register(s.api, huma.Operation{
		OperationID: "topRatedBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/top-rated",
		Summary:     "Top rated books",
		Description: "Returns books by average rating; unrated books sort last",
		Tags:        []string{"Books"},
	}, s.handleTopRatedBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBook",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}",
		Summary:     "Update book",
		Description: "Replaces the descriptive fields of a book. Counters cannot be set.",
		Tags:        []string{"Books"},
	}, s.handleUpdateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteBook",
		Method:      http.MethodDelete,
		Path:        "/api/v1/books/{id}",
		Summary:     "Delete book",
		Description: "Deletes a book together with its reviews and reading-list entries",
		Tags:        []string{"Books"},
	}, s.handleDeleteBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "incrementBookListCount",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/{id}/list-count",
		Summary:     "Count a list addition",
		Description: "Adds one to added_to_list_count",
		Tags:        []string{"Books"},
	}, s.handleIncrementListCount)

	huma.Register(s.api, huma.Operation{
		OperationID: "refreshBookRating",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/{id}/refresh",
		Summary:     "Refresh rating aggregate",
		Description: "Recomputes review_count and average_rating from the book's reviews",
		Tags:        []string{"Books"},
	}, s.handleRefreshBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBookReviews",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}/reviews",
		Summary:     "List book reviews",
		Tags:        []string{"Books", "Reviews"},
	}, s.handleListBookReviews)
}

// === DTOs ===

// BookRequest is the request body for creating or replacing a book.
type BookRequest struct {
	Title       string   `json:"title" minLength:"1" maxLength:"500" doc:"Book title"`
	Author      string   `json:"author,omitempty" maxLength:"300" doc:"Author name"`
	PublishYear *int     `json:"publish_year,omitempty" minimum:"0" maximum:"3000" doc:"Year of first publication"`
	Description string   `json:"description,omitempty" maxLength:"10000" doc:"Long description"`
	Summary     string   `json:"summary,omitempty" maxLength:"2000" doc:"Short summary"`
	CategoryIDs []string `json:"category_ids,omitempty" maxItems:"50" doc:"Categories to file the book under; on update, omit to keep the current set"`
}

func (r BookRequest) toService() service.BookRequest {
	return service.BookRequest{
		Title:       r.Title,
		Author:      r.Author,
		PublishYear: r.PublishYear,
		Description: r.Description,
		Summary:     r.Summary,
		CategoryIDs: r.CategoryIDs,
	}
}

// CreateBookInput wraps the create book request for Huma.
type CreateBookInput struct {
	Body BookRequest
}

// UpdateBookInput wraps the update book request for Huma.
type UpdateBookInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body BookRequest
}

// BookIDInput identifies a book.
type BookIDInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// ListBooksInput contains listing filters.
type ListBooksInput struct {
	Title       string `query:"title" doc:"Case-insensitive title prefix"`
	Author      string `query:"author" doc:"Case-insensitive author prefix"`
	PublishYear int    `query:"publish_year" minimum:"0" doc:"Exact publish year; 0 for any"`
}

// LimitInput bounds a top-N listing.
type LimitInput struct {
	Limit int `query:"limit" minimum:"0" doc:"Maximum entries; 0 uses the server default"`
}

// BookOutput wraps a book for Huma.
type BookOutput struct {
	Body *domain.Book
}

// BooksResponse contains a list of books.
type BooksResponse struct {
	Books []*domain.Book `json:"books" doc:"Books"`
}

// BooksOutput wraps a list of books for Huma.
type BooksOutput struct {
	Body BooksResponse
}

// ReviewsResponse contains a list of reviews.
type ReviewsResponse struct {
	Reviews []*domain.Review `json:"reviews" doc:"Reviews"`
}

// ReviewsOutput wraps a list of reviews for Huma.
type ReviewsOutput struct {
	Body ReviewsResponse
}

// === Handlers ===

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	book, err := s.services.Books.Create(ctx, input.Body.toService())
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleListBooks(ctx context.Context, input *ListBooksInput) (*BooksOutput, error) {
	req := service.ListBooksRequest{Title: input.Title, Author: input.Author}
	if input.PublishYear > 0 {
		year := input.PublishYear
		req.PublishYear = &year
	}

	books, err := s.services.Books.List(ctx, req)
	if err != nil {
		return nil, err
	}
	return &BooksOutput{Body: BooksResponse{Books: books}}, nil
}

func (s *Server) handleTopBooksByListCount(ctx context.Context, input *LimitInput) (*BooksOutput, error) {
	books, err := s.services.Books.TopByListCount(ctx, input.Limit)
	if err != nil {
		return nil, err
	}
	return &BooksOutput{Body: BooksResponse{Books: books}}, nil
}

func (s *Server) handleTopRatedBooks(ctx context.Context, input *LimitInput) (*BooksOutput, error) {
	books, err := s.services.Books.TopRated(ctx, input.Limit)
	if err != nil {
		return nil, err
	}
	return &BooksOutput{Body: BooksResponse{Books: books}}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *BookIDInput) (*BookOutput, error) {
	book, err := s.services.Books.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *UpdateBookInput) (*BookOutput, error) {
	book, err := s.services.Books.Update(ctx, input.ID, input.Body.toService())
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *BookIDInput) (*MessageOutput, error) {
	if err := s.services.Books.Delete(ctx, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Book deleted"}}, nil
}

func (s *Server) handleIncrementListCount(ctx context.Context, input *BookIDInput) (*BookOutput, error) {
	book, err := s.services.Aggregates.Increment(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleRefreshBook(ctx context.Context, input *BookIDInput) (*BookOutput, error) {
	book, err := s.services.Aggregates.Refresh(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleListBookReviews(ctx context.Context, input *BookIDInput) (*ReviewsOutput, error) {
	reviews, err := s.services.Reviews.ListByBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &ReviewsOutput{Body: ReviewsResponse{Reviews: reviews}}, nil
}
