package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/pagetrail/pagetrail-server/internal/domain"
	domainerrors "github.com/pagetrail/pagetrail-server/internal/errors"
	"github.com/pagetrail/pagetrail-server/internal/id"
	"github.com/pagetrail/pagetrail-server/internal/store"
	"github.com/pagetrail/pagetrail-server/internal/validation"
)

// BookService manages the catalog. Aggregate counters are read-only here.
type BookService struct {
	store      store.Store
	aggregates *AggregateService
	logger     *slog.Logger
	validator  *validation.Validator
	limits     RankingOptions
}

// NewBookService creates a new book service. limits bound the top-N listings.
func NewBookService(store store.Store, aggregates *AggregateService, limits RankingOptions, logger *slog.Logger) *BookService {
	return &BookService{
		store:      store,
		aggregates: aggregates,
		logger:     logger,
		validator:  validation.New(),
		limits:     limits,
	}
}

// BookRequest contains the descriptive fields of a book.
type BookRequest struct {
	Title       string   `json:"title" validate:"required,max=500"`
	Author      string   `json:"author" validate:"max=300"`
	PublishYear *int     `json:"publish_year" validate:"omitempty,gte=0,lte=3000"`
	Description string   `json:"description" validate:"max=10000"`
	Summary     string   `json:"summary" validate:"max=2000"`
	// CategoryIDs replaces the book's categories when non-nil. An empty,
	// non-nil slice clears them.
	CategoryIDs []string `json:"category_ids" validate:"omitempty,max=50,dive,required"`
}

// ListBooksRequest filters a listing.
type ListBooksRequest struct {
	Title       string
	Author      string
	PublishYear *int
}

// Create adds a book with zeroed aggregates.
func (s *BookService) Create(ctx context.Context, req BookRequest) (*domain.Book, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	bookID, err := id.Generate(id.PrefixBook)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	book := &domain.Book{
		ID:          bookID,
		Title:       strings.TrimSpace(req.Title),
		Author:      strings.TrimSpace(req.Author),
		PublishYear: req.PublishYear,
		Description: req.Description,
		Summary:     req.Summary,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := book.Validate(); err != nil {
		return nil, translate(err)
	}

	categoryIDs := uniqueIDs(req.CategoryIDs)
	err = s.aggregates.Mutate(ctx, OpBookCreate, bookID, func(tx store.Queries) error {
		if err := tx.CreateBook(ctx, book); err != nil {
			return err
		}
		if len(categoryIDs) == 0 {
			return nil
		}
		return setCategories(ctx, tx, book, categoryIDs)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("book created", "book_id", bookID, "title", book.Title)
	return book, nil
}

// Get returns a book by ID.
func (s *BookService) Get(ctx context.Context, bookID string) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, translate(err)
	}
	if err := attachCategories(ctx, s.store, []*domain.Book{book}); err != nil {
		return nil, translate(err)
	}
	return book, nil
}

// List returns books matching the prefix and year filters.
func (s *BookService) List(ctx context.Context, req ListBooksRequest) ([]*domain.Book, error) {
	books, err := s.store.ListBooks(ctx, store.BookFilter{
		TitlePrefix:  strings.TrimSpace(req.Title),
		AuthorPrefix: strings.TrimSpace(req.Author),
		PublishYear:  req.PublishYear,
	})
	if err != nil {
		return nil, translate(err)
	}
	if books == nil {
		books = []*domain.Book{}
	}
	if err := attachCategories(ctx, s.store, books); err != nil {
		return nil, translate(err)
	}
	return books, nil
}

// Update replaces the descriptive fields of a book and, when
// req.CategoryIDs is set, its categories. It runs under the book's lock so a
// busy database is retried like every other book write.
func (s *BookService) Update(ctx context.Context, bookID string, req BookRequest) (*domain.Book, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var book *domain.Book
	err := s.aggregates.Mutate(ctx, OpBookUpdate, bookID, func(tx store.Queries) error {
		b, err := tx.GetBook(ctx, bookID)
		if err != nil {
			return err
		}
		b.Title = strings.TrimSpace(req.Title)
		b.Author = strings.TrimSpace(req.Author)
		b.PublishYear = req.PublishYear
		b.Description = req.Description
		b.Summary = req.Summary
		b.UpdatedAt = time.Now()
		if err := b.Validate(); err != nil {
			return err
		}
		if err := tx.UpdateBookDetails(ctx, b); err != nil {
			return err
		}
		if req.CategoryIDs != nil {
			if err := setCategories(ctx, tx, b, uniqueIDs(req.CategoryIDs)); err != nil {
				return err
			}
		} else if err := attachCategories(ctx, tx, []*domain.Book{b}); err != nil {
			return err
		}
		book = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("book updated", "book_id", bookID)
	return book, nil
}

// Delete removes a book. Its reviews are bulk-deleted and the rating
// aggregate refreshed before the row goes, all in one unit of work.
func (s *BookService) Delete(ctx context.Context, bookID string) error {
	var removed int64
	err := s.aggregates.Mutate(ctx, OpBookDelete, bookID, func(tx store.Queries) error {
		var err error
		if removed, err = tx.DeleteReviewsByBook(ctx, bookID); err != nil {
			return err
		}
		if _, err := s.aggregates.RefreshInTx(ctx, tx, bookID); err != nil {
			return err
		}
		return tx.DeleteBook(ctx, bookID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("book deleted", "book_id", bookID, "reviews_removed", removed)
	return nil
}

// TopByListCount returns the books added to reading lists most often.
func (s *BookService) TopByListCount(ctx context.Context, limit int) ([]*domain.Book, error) {
	books, err := s.store.TopBooksByListCount(ctx, s.limits.clamp(limit))
	if err != nil {
		return nil, translate(err)
	}
	if books == nil {
		books = []*domain.Book{}
	}
	return books, nil
}

// TopRated returns books by average rating, unrated books last.
func (s *BookService) TopRated(ctx context.Context, limit int) ([]*domain.Book, error) {
	books, err := s.store.TopRatedBooks(ctx, s.limits.clamp(limit))
	if err != nil {
		return nil, translate(err)
	}
	if books == nil {
		books = []*domain.Book{}
	}
	return books, nil
}

// setCategories replaces book's categories with categoryIDs inside tx. Each
// category is looked up first so a missing one is reported by ID.
func setCategories(ctx context.Context, tx store.Queries, book *domain.Book, categoryIDs []string) error {
	for _, categoryID := range categoryIDs {
		if _, err := tx.GetCategory(ctx, categoryID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domainerrors.NotFoundf("category %s not found", categoryID)
			}
			return err
		}
	}
	if err := tx.ReplaceBookCategories(ctx, book.ID, categoryIDs, book.UpdatedAt); err != nil {
		return err
	}
	return attachCategories(ctx, tx, []*domain.Book{book})
}

// uniqueIDs trims ids and drops blanks and repeats, keeping first-seen order.
func uniqueIDs(ids []string) []string {
	if ids == nil {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, raw := range ids {
		v := strings.TrimSpace(raw)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
