package domain

import (
	"errors"
	"time"
)

// ReadingStatus is the progress state of a reading-list entry.
type ReadingStatus string

const (
	ReadingStatusWantToRead ReadingStatus = "want_to_read"
	ReadingStatusReading    ReadingStatus = "reading"
	ReadingStatusCompleted  ReadingStatus = "completed"
)

// Valid checks if the status is one of the known values.
func (s ReadingStatus) Valid() bool {
	switch s {
	case ReadingStatusWantToRead, ReadingStatusReading, ReadingStatusCompleted:
		return true
	default:
		return false
	}
}

// Reading-list invariant violations.
var (
	ErrInvalidStatus          = errors.New("status must be want_to_read, reading or completed")
	ErrCompletedWithoutFinish = errors.New("completed entries require a finish date")
	ErrFinishBeforeStart      = errors.New("finish date must not be before start date")
)

// ReadingListEntry records one user's progress through one book.
// It is keyed by (UserID, BookID).
type ReadingListEntry struct {
	UserID     string        `json:"user_id"`
	BookID     string        `json:"book_id"`
	Status     ReadingStatus `json:"status"`
	StartDate  *time.Time    `json:"start_date,omitempty"`
	FinishDate *time.Time    `json:"finish_date,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Validate checks the status and date invariants.
func (e *ReadingListEntry) Validate() error {
	if !e.Status.Valid() {
		return ErrInvalidStatus
	}
	if e.Status == ReadingStatusCompleted && e.FinishDate == nil {
		return ErrCompletedWithoutFinish
	}
	if e.StartDate != nil && e.FinishDate != nil && e.FinishDate.Before(*e.StartDate) {
		return ErrFinishBeforeStart
	}
	return nil
}

// Start marks the entry as being read from now, clearing any earlier finish.
func (e *ReadingListEntry) Start(now time.Time) {
	e.Status = ReadingStatusReading
	e.StartDate = &now
	e.FinishDate = nil
	e.UpdatedAt = now
}

// Finish marks the entry completed at now. An entry that was never started
// keeps a nil StartDate and is later excluded from reading-speed rankings.
func (e *ReadingListEntry) Finish(now time.Time) {
	e.Status = ReadingStatusCompleted
	e.FinishDate = &now
	e.UpdatedAt = now
}

// ReadingDuration returns finish minus start. ok is false when either date is missing.
func (e *ReadingListEntry) ReadingDuration() (d time.Duration, ok bool) {
	if e.StartDate == nil || e.FinishDate == nil {
		return 0, false
	}
	return e.FinishDate.Sub(*e.StartDate), true
}
