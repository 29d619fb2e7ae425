package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pagetrail/pagetrail-server/internal/domain"
	"github.com/pagetrail/pagetrail-server/internal/service"
)

func (s *Server) registerCategoryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createCategory",
		Method:        http.MethodPost,
		Path:          "/api/v1/categories",
		Summary:       "Create category",
		Description:   "Adds a category. Names are unique ignoring case.",
		Tags:          []string{"Categories"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateCategory)

	huma.Register(s.api, huma.Operation{
		OperationID: "listCategories",
		Method:      http.MethodGet,
		Path:        "/api/v1/categories",
		Summary:     "List categories",
		Tags:        []string{"Categories"},
	}, s.handleListCategories)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCategory",
		Method:      http.MethodGet,
		Path:        "/api/v1/categories/{id}",
		Summary:     "Get category",
		Description: "Returns a category with the books filed under it",
		Tags:        []string{"Categories"},
	}, s.handleGetCategory)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateCategory",
		Method:      http.MethodPut,
		Path:        "/api/v1/categories/{id}",
		Summary:     "Rename category",
		Tags:        []string{"Categories"},
	}, s.handleUpdateCategory)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteCategory",
		Method:      http.MethodDelete,
		Path:        "/api/v1/categories/{id}",
		Summary:     "Delete category",
		Description: "Deletes a category and unlinks its books. The books are kept.",
		Tags:        []string{"Categories"},
	}, s.handleDeleteCategory)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBookCategories",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}/categories",
		Summary:     "List book categories",
		Tags:        []string{"Books", "Categories"},
	}, s.handleListBookCategories)

	huma.Register(s.api, huma.Operation{
		OperationID: "addBookCategory",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/{id}/categories",
		Summary:     "Add book to category",
		Tags:        []string{"Books", "Categories"},
	}, s.handleAddBookCategory)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeBookCategory",
		Method:      http.MethodDelete,
		Path:        "/api/v1/books/{id}/categories/{categoryID}",
		Summary:     "Remove book from category",
		Tags:        []string{"Books", "Categories"},
	}, s.handleRemoveBookCategory)
}

// === DTOs ===

// CategoryRequest is the request body for creating or renaming a category.
type CategoryRequest struct {
	Name string `json:"name" minLength:"1" maxLength:"100" doc:"Category name"`
}

// CreateCategoryInput wraps the create category request for Huma.
type CreateCategoryInput struct {
	Body CategoryRequest
}

// UpdateCategoryInput wraps the rename request for Huma.
type UpdateCategoryInput struct {
	ID   string `path:"id" doc:"Category ID"`
	Body CategoryRequest
}

// CategoryIDInput identifies a category.
type CategoryIDInput struct {
	ID string `path:"id" doc:"Category ID"`
}

// CategoryOutput wraps a category for Huma.
type CategoryOutput struct {
	Body *domain.Category
}

// CategoriesResponse contains a list of categories.
type CategoriesResponse struct {
	Categories []*domain.Category `json:"categories" doc:"Categories"`
}

// CategoriesOutput wraps a list of categories for Huma.
type CategoriesOutput struct {
	Body CategoriesResponse
}

// AddBookCategoryInput links a book to a category.
type AddBookCategoryInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body struct {
		CategoryID string `json:"category_id" minLength:"1" doc:"Category to add the book to"`
	}
}

// BookCategoryInput identifies one book-category link.
type BookCategoryInput struct {
	ID         string `path:"id" doc:"Book ID"`
	CategoryID string `path:"categoryID" doc:"Category ID"`
}

// === Handlers ===

func (s *Server) handleCreateCategory(ctx context.Context, input *CreateCategoryInput) (*CategoryOutput, error) {
	category, err := s.services.Categories.Create(ctx, service.CategoryRequest{Name: input.Body.Name})
	if err != nil {
		return nil, err
	}
	return &CategoryOutput{Body: category}, nil
}

func (s *Server) handleListCategories(ctx context.Context, _ *struct{}) (*CategoriesOutput, error) {
	categories, err := s.services.Categories.List(ctx)
	if err != nil {
		return nil, err
	}
	return &CategoriesOutput{Body: CategoriesResponse{Categories: categories}}, nil
}

func (s *Server) handleGetCategory(ctx context.Context, input *CategoryIDInput) (*CategoryOutput, error) {
	category, err := s.services.Categories.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &CategoryOutput{Body: category}, nil
}

func (s *Server) handleUpdateCategory(ctx context.Context, input *UpdateCategoryInput) (*CategoryOutput, error) {
	category, err := s.services.Categories.Update(ctx, input.ID, service.CategoryRequest{Name: input.Body.Name})
	if err != nil {
		return nil, err
	}
	return &CategoryOutput{Body: category}, nil
}

func (s *Server) handleDeleteCategory(ctx context.Context, input *CategoryIDInput) (*MessageOutput, error) {
	if err := s.services.Categories.Delete(ctx, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Category deleted"}}, nil
}

func (s *Server) handleListBookCategories(ctx context.Context, input *BookIDInput) (*CategoriesOutput, error) {
	categories, err := s.services.Categories.ListForBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &CategoriesOutput{Body: CategoriesResponse{Categories: categories}}, nil
}

func (s *Server) handleAddBookCategory(ctx context.Context, input *AddBookCategoryInput) (*CategoriesOutput, error) {
	categories, err := s.services.Categories.AddToBook(ctx, input.ID, input.Body.CategoryID)
	if err != nil {
		return nil, err
	}
	return &CategoriesOutput{Body: CategoriesResponse{Categories: categories}}, nil
}

func (s *Server) handleRemoveBookCategory(ctx context.Context, input *BookCategoryInput) (*CategoriesOutput, error) {
	categories, err := s.services.Categories.RemoveFromBook(ctx, input.ID, input.CategoryID)
	if err != nil {
		return nil, err
	}
	return &CategoriesOutput{Body: CategoriesResponse{Categories: categories}}, nil
}
