package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/pagetrail/pagetrail-server/internal/domain"
	"github.com/pagetrail/pagetrail-server/internal/id"
	"github.com/pagetrail/pagetrail-server/internal/store"
	"github.com/pagetrail/pagetrail-server/internal/validation"
)

// ReviewService manages reviews. Every mutation refreshes the reviewed
// book's rating aggregate in the same transaction.
type ReviewService struct {
	store      store.Store
	aggregates *AggregateService
	logger     *slog.Logger
	validator  *validation.Validator
}

// NewReviewService creates a new review service.
func NewReviewService(store store.Store, aggregates *AggregateService, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		store:      store,
		aggregates: aggregates,
		logger:     logger,
		validator:  validation.New(),
	}
}

// CreateReviewRequest contains fields for creating a review.
type CreateReviewRequest struct {
	BookID  string `json:"book_id" validate:"required"`
	UserID  string `json:"user_id" validate:"required"`
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Comment string `json:"comment" validate:"max=5000"`
}

// UpdateReviewRequest contains the fields of a review that may change.
// Nil fields are left as they are.
type UpdateReviewRequest struct {
	Rating  *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,max=5000"`
}

// ReviewResult is a review together with its book's refreshed aggregates.
type ReviewResult struct {
	Review *domain.Review `json:"review"`
	Book   *domain.Book   `json:"book"`
}

// Create posts a review. A user may review a book once; a second review of
// the same book fails with AlreadyExists.
func (s *ReviewService) Create(ctx context.Context, req CreateReviewRequest) (*ReviewResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	reviewID, err := id.Generate(id.PrefixReview)
	if err != nil {
		return nil, err
	}

	result := &ReviewResult{}
	err = s.aggregates.Mutate(ctx, OpReviewCreate, req.BookID, func(tx store.Queries) error {
		if _, err := tx.GetUser(ctx, req.UserID); err != nil {
			return err
		}

		now := time.Now()
		review := &domain.Review{
			ID:         reviewID,
			BookID:     req.BookID,
			UserID:     req.UserID,
			Rating:     req.Rating,
			Comment:    req.Comment,
			ReviewDate: now,
			UpdatedAt:  now,
		}
		if err := review.Validate(); err != nil {
			return err
		}

		// Checked first so a missing book reports "book not found".
		if _, err := tx.GetBook(ctx, req.BookID); err != nil {
			return err
		}
		if err := tx.CreateReview(ctx, review); err != nil {
			return err
		}

		book, err := s.aggregates.RefreshInTx(ctx, tx, req.BookID)
		if err != nil {
			return err
		}
		result.Review, result.Book = review, book
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("review created",
		"review_id", reviewID, "book_id", req.BookID, "user_id", req.UserID, "rating", req.Rating)
	return result, nil
}

// Get returns a review by ID.
func (s *ReviewService) Get(ctx context.Context, reviewID string) (*domain.Review, error) {
	review, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		return nil, translate(err)
	}
	return review, nil
}

// ListByBook returns a book's reviews.
func (s *ReviewService) ListByBook(ctx context.Context, bookID string) ([]*domain.Review, error) {
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		return nil, translate(err)
	}
	reviews, err := s.store.ListReviewsByBook(ctx, bookID)
	if err != nil {
		return nil, translate(err)
	}
	if reviews == nil {
		reviews = []*domain.Review{}
	}
	return reviews, nil
}

// Update changes a review's rating or comment and refreshes the book.
func (s *ReviewService) Update(ctx context.Context, reviewID string, req UpdateReviewRequest) (*ReviewResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	// The book is fixed for the life of a review, so it can be read outside the lock.
	existing, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		return nil, translate(err)
	}

	result := &ReviewResult{}
	err = s.aggregates.Mutate(ctx, OpReviewUpdate, existing.BookID, func(tx store.Queries) error {
		review, err := tx.GetReview(ctx, reviewID)
		if err != nil {
			return err
		}
		if req.Rating != nil {
			review.Rating = *req.Rating
		}
		if req.Comment != nil {
			review.Comment = *req.Comment
		}
		if err := review.Validate(); err != nil {
			return err
		}
		review.UpdatedAt = time.Now()

		if err := tx.UpdateReview(ctx, review); err != nil {
			return err
		}
		book, err := s.aggregates.RefreshInTx(ctx, tx, review.BookID)
		if err != nil {
			return err
		}
		result.Review, result.Book = review, book
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("review updated", "review_id", reviewID, "book_id", existing.BookID)
	return result, nil
}

// Delete removes a review and refreshes the book. Deleting the last review
// leaves the book unrated.
func (s *ReviewService) Delete(ctx context.Context, reviewID string) (*domain.Book, error) {
	existing, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		return nil, translate(err)
	}

	var book *domain.Book
	err = s.aggregates.Mutate(ctx, OpReviewDelete, existing.BookID, func(tx store.Queries) error {
		if err := tx.DeleteReview(ctx, reviewID); err != nil {
			return err
		}
		var err error
		book, err = s.aggregates.RefreshInTx(ctx, tx, existing.BookID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("review deleted", "review_id", reviewID, "book_id", existing.BookID)
	return book, nil
}
