package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pagetrail/pagetrail-server/internal/domain"
	domainerrors "github.com/pagetrail/pagetrail-server/internal/errors"
	"github.com/pagetrail/pagetrail-server/internal/metrics"
	"github.com/pagetrail/pagetrail-server/internal/store"
)

// Operation names a unit of work that touches a book's aggregates.
type Operation string

const (
	OpReviewCreate      Operation = "review_create"
	OpReviewUpdate      Operation = "review_update"
	OpReviewDelete      Operation = "review_delete"
	OpBookCreate        Operation = "book_create"
	OpBookUpdate        Operation = "book_update"
	OpBookDelete        Operation = "book_delete"
	OpBookCategories    Operation = "book_categories"
	OpCategoryWrite     Operation = "category_write"
	OpUserWrite         Operation = "user_write"
	OpRefresh           Operation = "refresh"
	OpReconcile         Operation = "reconcile"
	OpReadingListAdd    Operation = "reading_list_add"
	OpReadingListUpdate Operation = "reading_list_update"
	OpListIncrement     Operation = "list_increment"
)

// Defaults for AggregateOptions.
const (
	DefaultMaxAttempts  = 5
	DefaultRetryBackoff = 20 * time.Millisecond
)

// AggregateOptions tune conflict handling.
type AggregateOptions struct {
	// MaxAttempts bounds how often a unit of work runs when it keeps losing
	// the write lock to other connections.
	MaxAttempts int
	// RetryBackoff is multiplied by the attempt number between retries.
	RetryBackoff time.Duration
}

// AggregateService keeps each book's derived counters consistent with the
// rows they are derived from.
//
// Every change to a book's reviews or reading-list entries runs through
// Mutate: the book's in-process lock is taken, then one write transaction
// carries the row change together with the counter update. Readers never
// see one without the other. review_count and average_rating are always
// recomputed from the full review set; added_to_list_count only ever grows.
type AggregateService struct {
	store       store.Store
	locks       *bookLocks
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewAggregateService creates a new aggregate service.
func NewAggregateService(store store.Store, opts AggregateOptions, logger *slog.Logger) *AggregateService {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RetryBackoff < 0 {
		opts.RetryBackoff = DefaultRetryBackoff
	}
	return &AggregateService{
		store:       store,
		locks:       newBookLocks(),
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.RetryBackoff,
		logger:      logger,
		now:         time.Now,
	}
}

// Mutate runs fn in a write transaction while holding bookID's lock.
//
// fn must do all of its reads and writes through the tx it is given and must
// be safe to run again: a transaction that loses the database lock is rolled
// back and fn is re-run, up to the configured number of attempts. Any error
// from fn, or cancellation of ctx before commit, rolls the whole unit back.
func (s *AggregateService) Mutate(ctx context.Context, op Operation, bookID string, fn func(tx store.Queries) error) error {
	start := time.Now()

	unlock, err := s.locks.Lock(ctx, bookID)
	if err != nil {
		metrics.RecordMutation(string(op), metrics.OutcomeCanceled, time.Since(start))
		return err
	}
	defer unlock()

	return s.runWithRetry(ctx, op, start, fmt.Sprintf("book %s is busy, retry the request", bookID),
		[]any{"operation", op, "book_id", bookID}, fn)
}

// Write runs fn in a write transaction with the same bounded conflict retry
// as Mutate, without taking a book lock. It serves writes that never touch
// book counters, such as category changes.
func (s *AggregateService) Write(ctx context.Context, op Operation, fn func(tx store.Queries) error) error {
	return s.runWithRetry(ctx, op, time.Now(), "store is busy, retry the request",
		[]any{"operation", op}, fn)
}

func (s *AggregateService) runWithRetry(ctx context.Context, op Operation, start time.Time, busyMsg string, logAttrs []any, fn func(tx store.Queries) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = s.store.WithTx(ctx, fn)
		if err == nil {
			metrics.RecordMutation(string(op), metrics.OutcomeCommitted, time.Since(start))
			return nil
		}
		if !errors.Is(err, store.ErrConflict) {
			break
		}
		if attempt >= s.maxAttempts {
			metrics.RecordMutation(string(op), metrics.OutcomeExhausted, time.Since(start))
			s.logger.Error("write gave up after conflicts",
				append(logAttrs, "attempts", attempt, "error", err)...)
			return domainerrors.Wrap(err, domainerrors.CodeConflict, busyMsg)
		}

		metrics.RecordRetry(string(op))
		s.logger.Warn("write conflict, retrying",
			append(logAttrs, "attempt", attempt, "error", err)...)

		if werr := s.wait(ctx, attempt); werr != nil {
			err = werr
			break
		}
	}

	outcome := metrics.OutcomeFailed
	if ctx.Err() != nil {
		outcome = metrics.OutcomeCanceled
	}
	metrics.RecordMutation(string(op), outcome, time.Since(start))
	return translate(err)
}

func (s *AggregateService) wait(ctx context.Context, attempt int) error {
	d := s.backoff * time.Duration(attempt)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RefreshInTx recomputes review_count and average_rating for bookID from its
// current reviews and writes both in a single row update. It must run inside
// a transaction started by Mutate.
func (s *AggregateService) RefreshInTx(ctx context.Context, tx store.Queries, bookID string) (*domain.Book, error) {
	book, err := tx.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	ratings, err := tx.ListRatingsForBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	agg := domain.ComputeRatingAggregate(ratings)
	now := s.now()
	if err := tx.SetBookRating(ctx, bookID, agg, now); err != nil {
		return nil, err
	}

	book.ReviewCount = agg.ReviewCount
	book.AverageRating = agg.AverageRating
	book.UpdatedAt = now

	s.logger.Debug("rating aggregate refreshed",
		"book_id", bookID, "review_count", agg.ReviewCount, "average_rating", agg.AverageRating)
	return book, nil
}

// Refresh recomputes a book's rating aggregate in its own unit of work.
func (s *AggregateService) Refresh(ctx context.Context, bookID string) (*domain.Book, error) {
	var book *domain.Book
	err := s.Mutate(ctx, OpRefresh, bookID, func(tx store.Queries) error {
		var err error
		book, err = s.RefreshInTx(ctx, tx, bookID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

// OnAddedInTx counts one new reading-list entry for bookID. It must run in
// the transaction that created the entry, so a failed insert never counts.
func (s *AggregateService) OnAddedInTx(ctx context.Context, tx store.Queries, bookID string) error {
	return tx.IncrementListCount(ctx, bookID, s.now())
}

// Increment adds one to a book's added_to_list_count. Every call counts.
func (s *AggregateService) Increment(ctx context.Context, bookID string) (*domain.Book, error) {
	var book *domain.Book
	err := s.Mutate(ctx, OpListIncrement, bookID, func(tx store.Queries) error {
		if err := tx.IncrementListCount(ctx, bookID, s.now()); err != nil {
			return err
		}
		var err error
		book, err = tx.GetBook(ctx, bookID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

// ReconcileResult summarizes a ReconcileAll run.
type ReconcileResult struct {
	Checked   int `json:"checked"`
	Corrected int `json:"corrected"`
}

// ReconcileAll recomputes the rating aggregate of every book and rewrites
// those that differ from their reviews.
func (s *AggregateService) ReconcileAll(ctx context.Context) (*ReconcileResult, error) {
	ids, err := s.store.ListBookIDs(ctx)
	if err != nil {
		return nil, translate(err)
	}

	result := &ReconcileResult{}
	for _, bookID := range ids {
		corrected := false
		err := s.Mutate(ctx, OpReconcile, bookID, func(tx store.Queries) error {
			corrected = false
			book, err := tx.GetBook(ctx, bookID)
			if err != nil {
				return err
			}
			ratings, err := tx.ListRatingsForBook(ctx, bookID)
			if err != nil {
				return err
			}

			stored := domain.RatingAggregate{ReviewCount: book.ReviewCount, AverageRating: book.AverageRating}
			computed := domain.ComputeRatingAggregate(ratings)
			if stored.Equal(computed) {
				return nil
			}

			corrected = true
			return tx.SetBookRating(ctx, bookID, computed, s.now())
		})
		if errors.Is(err, domainerrors.ErrNotFound) {
			// Deleted since the ID list was read.
			continue
		}
		if err != nil {
			return result, err
		}

		result.Checked++
		if corrected {
			result.Corrected++
			s.logger.Warn("corrected drifted aggregate", "book_id", bookID)
		}
	}

	metrics.RecordDrift(result.Corrected)
	s.logger.Info("aggregates reconciled", "checked", result.Checked, "corrected", result.Corrected)
	return result, nil
}
