package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pagetrail/pagetrail-server/internal/domain"
	"github.com/pagetrail/pagetrail-server/internal/store"
)

const readingListColumns = `user_id, book_id, status, start_date, finish_date, created_at, updated_at`

func scanReadingListEntry(scanner interface{ Scan(dest ...any) error }) (*domain.ReadingListEntry, error) {
	var (
		e          domain.ReadingListEntry
		status     string
		startDate  sql.NullString
		finishDate sql.NullString
		createdAt  string
		updatedAt  string
	)

	if err := scanner.Scan(&e.UserID, &e.BookID, &status, &startDate, &finishDate, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	e.Status = domain.ReadingStatus(status)

	var err error
	if e.StartDate, err = parseNullableTime(startDate); err != nil {
		return nil, err
	}
	if e.FinishDate, err = parseNullableTime(finishDate); err != nil {
		return nil, err
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (q *queries) queryReadingList(ctx context.Context, query string, args ...any) ([]*domain.ReadingListEntry, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reading list: %w", classify(err))
	}
	defer rows.Close()

	var entries []*domain.ReadingListEntry
	for rows.Next() {
		e, err := scanReadingListEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reading list entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reading list: %w", classify(err))
	}
	return entries, nil
}

// CreateReadingListEntry inserts an entry.
// Returns store.ErrAlreadyExists if the user already listed the book.
func (q *queries) CreateReadingListEntry(ctx context.Context, entry *domain.ReadingListEntry) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO reading_list (user_id, book_id, status, start_date, finish_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.UserID,
		entry.BookID,
		string(entry.Status),
		nullTimeString(entry.StartDate),
		nullTimeString(entry.FinishDate),
		formatTime(entry.CreatedAt),
		formatTime(entry.UpdatedAt),
	)
	if err != nil {
		err = classify(err)
		if errors.Is(err, store.ErrAlreadyExists) {
			return store.ErrAlreadyExists.WithMessage("book is already on the reading list")
		}
		return fmt.Errorf("insert reading list entry: %w", err)
	}
	return nil
}

// GetReadingListEntry returns the entry for (userID, bookID).
func (q *queries) GetReadingListEntry(ctx context.Context, userID, bookID string) (*domain.ReadingListEntry, error) {
	row := q.q.QueryRowContext(ctx,
		`SELECT `+readingListColumns+` FROM reading_list WHERE user_id = ? AND book_id = ?`, userID, bookID)

	e, err := scanReadingListEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound.WithMessage("reading list entry not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get reading list entry: %w", classify(err))
	}
	return e, nil
}

// UpdateReadingListEntry writes status and dates of an entry.
func (q *queries) UpdateReadingListEntry(ctx context.Context, entry *domain.ReadingListEntry) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE reading_list SET status = ?, start_date = ?, finish_date = ?, updated_at = ?
		WHERE user_id = ? AND book_id = ?`,
		string(entry.Status),
		nullTimeString(entry.StartDate),
		nullTimeString(entry.FinishDate),
		formatTime(entry.UpdatedAt),
		entry.UserID,
		entry.BookID,
	)
	if err != nil {
		return fmt.Errorf("update reading list entry: %w", classify(err))
	}
	return affectedOne(res, store.ErrNotFound.WithMessage("reading list entry not found"))
}

// DeleteReadingListEntry removes an entry.
func (q *queries) DeleteReadingListEntry(ctx context.Context, userID, bookID string) error {
	res, err := q.q.ExecContext(ctx,
		`DELETE FROM reading_list WHERE user_id = ? AND book_id = ?`, userID, bookID)
	if err != nil {
		return fmt.Errorf("delete reading list entry: %w", classify(err))
	}
	return affectedOne(res, store.ErrNotFound.WithMessage("reading list entry not found"))
}

// ListReadingListByUser returns a user's entries, most recently updated first.
func (q *queries) ListReadingListByUser(ctx context.Context, userID string) ([]*domain.ReadingListEntry, error) {
	return q.queryReadingList(ctx,
		`SELECT `+readingListColumns+` FROM reading_list WHERE user_id = ? ORDER BY updated_at DESC, book_id`, userID)
}

// ListReadingList returns every entry.
func (q *queries) ListReadingList(ctx context.Context) ([]*domain.ReadingListEntry, error) {
	return q.queryReadingList(ctx,
		`SELECT `+readingListColumns+` FROM reading_list ORDER BY user_id, book_id`)
}

// ListFinishedEntries returns every entry with a finish date, whether or not
// it has a start date.
func (q *queries) ListFinishedEntries(ctx context.Context) ([]*domain.ReadingListEntry, error) {
	return q.queryReadingList(ctx,
		`SELECT `+readingListColumns+` FROM reading_list WHERE finish_date IS NOT NULL ORDER BY user_id, book_id`)
}
