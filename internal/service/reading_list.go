package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/pagetrail/pagetrail-server/internal/domain"
	"github.com/pagetrail/pagetrail-server/internal/store"
	"github.com/pagetrail/pagetrail-server/internal/validation"
)

// ReadingListService manages users' reading-list entries.
// Creating an entry counts toward the book's added_to_list_count; nothing
// else here touches the counter.
type ReadingListService struct {
	store      store.Store
	aggregates *AggregateService
	logger     *slog.Logger
	validator  *validation.Validator
	now        func() time.Time
}

// NewReadingListService creates a new reading list service.
func NewReadingListService(store store.Store, aggregates *AggregateService, logger *slog.Logger) *ReadingListService {
	return &ReadingListService{
		store:      store,
		aggregates: aggregates,
		logger:     logger,
		validator:  validation.New(),
		now:        time.Now,
	}
}

// AddReadingListRequest contains fields for adding a book to a reading list.
type AddReadingListRequest struct {
	UserID     string     `json:"user_id" validate:"required"`
	BookID     string     `json:"book_id" validate:"required"`
	Status     string     `json:"status" validate:"omitempty,oneof=want_to_read reading completed"`
	StartDate  *time.Time `json:"start_date"`
	FinishDate *time.Time `json:"finish_date"`
}

// UpdateReadingListRequest replaces the status and dates of an entry.
type UpdateReadingListRequest struct {
	Status     string     `json:"status" validate:"required,oneof=want_to_read reading completed"`
	StartDate  *time.Time `json:"start_date"`
	FinishDate *time.Time `json:"finish_date"`
}

// Add creates an entry and counts it on the book in the same transaction.
// Adding a book the user already listed fails with AlreadyExists and does
// not count.
func (s *ReadingListService) Add(ctx context.Context, req AddReadingListRequest) (*domain.ReadingListEntry, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	status := domain.ReadingStatus(req.Status)
	if status == "" {
		status = domain.ReadingStatusWantToRead
	}
	now := s.now()
	entry := &domain.ReadingListEntry{
		UserID:     req.UserID,
		BookID:     req.BookID,
		Status:     status,
		StartDate:  req.StartDate,
		FinishDate: req.FinishDate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := entry.Validate(); err != nil {
		return nil, translate(err)
	}

	err := s.aggregates.Mutate(ctx, OpReadingListAdd, req.BookID, func(tx store.Queries) error {
		if _, err := tx.GetUser(ctx, req.UserID); err != nil {
			return err
		}
		if _, err := tx.GetBook(ctx, req.BookID); err != nil {
			return err
		}
		if err := tx.CreateReadingListEntry(ctx, entry); err != nil {
			return err
		}
		return s.aggregates.OnAddedInTx(ctx, tx, req.BookID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("book added to reading list", "user_id", req.UserID, "book_id", req.BookID, "status", status)
	return entry, nil
}

// Get returns one entry.
func (s *ReadingListService) Get(ctx context.Context, userID, bookID string) (*domain.ReadingListEntry, error) {
	entry, err := s.store.GetReadingListEntry(ctx, userID, bookID)
	if err != nil {
		return nil, translate(err)
	}
	return entry, nil
}

// ListByUser returns a user's entries.
func (s *ReadingListService) ListByUser(ctx context.Context, userID string) ([]*domain.ReadingListEntry, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, translate(err)
	}
	entries, err := s.store.ListReadingListByUser(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	if entries == nil {
		entries = []*domain.ReadingListEntry{}
	}
	return entries, nil
}

// ListAll returns every entry.
func (s *ReadingListService) ListAll(ctx context.Context) ([]*domain.ReadingListEntry, error) {
	entries, err := s.store.ListReadingList(ctx)
	if err != nil {
		return nil, translate(err)
	}
	if entries == nil {
		entries = []*domain.ReadingListEntry{}
	}
	return entries, nil
}

// Update replaces an entry's status and dates.
func (s *ReadingListService) Update(ctx context.Context, userID, bookID string, req UpdateReadingListRequest) (*domain.ReadingListEntry, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	return s.modify(ctx, userID, bookID, func(e *domain.ReadingListEntry, now time.Time) {
		e.Status = domain.ReadingStatus(req.Status)
		e.StartDate = req.StartDate
		e.FinishDate = req.FinishDate
		e.UpdatedAt = now
	})
}

// StartReading marks an entry as being read from now.
func (s *ReadingListService) StartReading(ctx context.Context, userID, bookID string) (*domain.ReadingListEntry, error) {
	return s.modify(ctx, userID, bookID, func(e *domain.ReadingListEntry, now time.Time) {
		e.Start(now)
	})
}

// FinishReading marks an entry completed now.
func (s *ReadingListService) FinishReading(ctx context.Context, userID, bookID string) (*domain.ReadingListEntry, error) {
	return s.modify(ctx, userID, bookID, func(e *domain.ReadingListEntry, now time.Time) {
		e.Finish(now)
	})
}

// modify applies change to an existing entry. Entry updates never touch
// book counters; Mutate is used for its conflict retry.
func (s *ReadingListService) modify(ctx context.Context, userID, bookID string, change func(*domain.ReadingListEntry, time.Time)) (*domain.ReadingListEntry, error) {
	var entry *domain.ReadingListEntry
	err := s.aggregates.Mutate(ctx, OpReadingListUpdate, bookID, func(tx store.Queries) error {
		e, err := tx.GetReadingListEntry(ctx, userID, bookID)
		if err != nil {
			return err
		}
		change(e, s.now())
		if err := e.Validate(); err != nil {
			return err
		}
		if err := tx.UpdateReadingListEntry(ctx, e); err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("reading list entry updated", "user_id", userID, "book_id", bookID, "status", entry.Status)
	return entry, nil
}

// Delete removes an entry. added_to_list_count is a lifetime counter and is
// not decremented.
func (s *ReadingListService) Delete(ctx context.Context, userID, bookID string) error {
	if err := s.store.DeleteReadingListEntry(ctx, userID, bookID); err != nil {
		return translate(err)
	}
	s.logger.Info("book removed from reading list", "user_id", userID, "book_id", bookID)
	return nil
}
