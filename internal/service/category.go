package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pagetrail/pagetrail-server/internal/domain"
	"github.com/pagetrail/pagetrail-server/internal/id"
	"github.com/pagetrail/pagetrail-server/internal/store"
	"github.com/pagetrail/pagetrail-server/internal/validation"
)

// CategoryService manages categories and their links to books.
type CategoryService struct {
	store      store.Store
	aggregates *AggregateService
	logger     *slog.Logger
	validator  *validation.Validator
}

// NewCategoryService creates a new category service. Link changes run under
// the book's lock through aggregates; category writes share its conflict retry.
func NewCategoryService(store store.Store, aggregates *AggregateService, logger *slog.Logger) *CategoryService {
	return &CategoryService{
		store:      store,
		aggregates: aggregates,
		logger:     logger,
		validator:  validation.New(),
	}
}

// CategoryRequest contains the fields of a category.
type CategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// Create adds a category. Names are unique ignoring case.
func (s *CategoryService) Create(ctx context.Context, req CategoryRequest) (*domain.Category, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	categoryID, err := id.Generate(id.PrefixCategory)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	category := &domain.Category{
		ID:        categoryID,
		Name:      strings.TrimSpace(req.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := category.Validate(); err != nil {
		return nil, translate(err)
	}

	err = s.aggregates.Write(ctx, OpCategoryWrite, func(tx store.Queries) error {
		return tx.CreateCategory(ctx, category)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("category created", "category_id", categoryID, "name", category.Name)
	return category, nil
}

// Get returns a category together with its books.
func (s *CategoryService) Get(ctx context.Context, categoryID string) (*domain.Category, error) {
	category, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, translate(err)
	}
	books, err := s.store.ListBooksInCategory(ctx, categoryID)
	if err != nil {
		return nil, translate(err)
	}
	if books == nil {
		books = []*domain.Book{}
	}
	category.Books = books
	return category, nil
}

// List returns every category ordered by name.
func (s *CategoryService) List(ctx context.Context) ([]*domain.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, translate(err)
	}
	if categories == nil {
		categories = []*domain.Category{}
	}
	return categories, nil
}

// Update renames a category.
func (s *CategoryService) Update(ctx context.Context, categoryID string, req CategoryRequest) (*domain.Category, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var category *domain.Category
	err := s.aggregates.Write(ctx, OpCategoryWrite, func(tx store.Queries) error {
		c, err := tx.GetCategory(ctx, categoryID)
		if err != nil {
			return err
		}
		c.Name = strings.TrimSpace(req.Name)
		c.UpdatedAt = time.Now()
		if err := c.Validate(); err != nil {
			return err
		}
		if err := tx.UpdateCategory(ctx, c); err != nil {
			return err
		}
		category = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("category updated", "category_id", categoryID, "name", category.Name)
	return category, nil
}

// Delete removes a category and its book links. The books are kept.
func (s *CategoryService) Delete(ctx context.Context, categoryID string) error {
	err := s.aggregates.Write(ctx, OpCategoryWrite, func(tx store.Queries) error {
		return tx.DeleteCategory(ctx, categoryID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("category deleted", "category_id", categoryID)
	return nil
}

// ListForBook returns a book's categories ordered by name.
func (s *CategoryService) ListForBook(ctx context.Context, bookID string) ([]*domain.Category, error) {
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		return nil, translate(err)
	}
	categories, err := categoriesOf(ctx, s.store, bookID)
	if err != nil {
		return nil, translate(err)
	}
	return categories, nil
}

// AddToBook links a category to a book and returns the book's categories.
func (s *CategoryService) AddToBook(ctx context.Context, bookID, categoryID string) ([]*domain.Category, error) {
	var categories []*domain.Category
	err := s.aggregates.Mutate(ctx, OpBookCategories, bookID, func(tx store.Queries) error {
		if _, err := tx.GetBook(ctx, bookID); err != nil {
			return err
		}
		if _, err := tx.GetCategory(ctx, categoryID); err != nil {
			return err
		}
		if err := tx.AddBookCategory(ctx, bookID, categoryID, time.Now()); err != nil {
			return err
		}
		var err error
		categories, err = categoriesOf(ctx, tx, bookID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("book categorized", "book_id", bookID, "category_id", categoryID)
	return categories, nil
}

// RemoveFromBook unlinks a category from a book and returns the remaining ones.
func (s *CategoryService) RemoveFromBook(ctx context.Context, bookID, categoryID string) ([]*domain.Category, error) {
	var categories []*domain.Category
	err := s.aggregates.Mutate(ctx, OpBookCategories, bookID, func(tx store.Queries) error {
		if err := tx.RemoveBookCategory(ctx, bookID, categoryID); err != nil {
			return err
		}
		var err error
		categories, err = categoriesOf(ctx, tx, bookID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("book uncategorized", "book_id", bookID, "category_id", categoryID)
	return categories, nil
}

// categoriesOf returns bookID's categories, never nil.
func categoriesOf(ctx context.Context, q store.Queries, bookID string) ([]*domain.Category, error) {
	byBook, err := q.ListCategoriesForBooks(ctx, []string{bookID})
	if err != nil {
		return nil, err
	}
	if categories := byBook[bookID]; categories != nil {
		return categories, nil
	}
	return []*domain.Category{}, nil
}

// attachCategories fills in the Categories of each book with one query.
func attachCategories(ctx context.Context, q store.Queries, books []*domain.Book) error {
	if len(books) == 0 {
		return nil
	}
	ids := make([]string, len(books))
	for i, b := range books {
		ids[i] = b.ID
	}
	byBook, err := q.ListCategoriesForBooks(ctx, ids)
	if err != nil {
		return err
	}
	for _, b := range books {
		b.Categories = byBook[b.ID]
	}
	return nil
}
