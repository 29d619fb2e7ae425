package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pagetrail/pagetrail-server/internal/domain"
	"github.com/pagetrail/pagetrail-server/internal/store"
)

// bookColumns is the ordered list of columns selected in book queries.
// Must match the scan order in scanBook.
const bookColumns = `id, title, author, publish_year, description, summary,
	review_count, average_rating, added_to_list_count, created_at, updated_at`

// prefixedBookColumns is bookColumns qualified with the "b" alias for joins.
const prefixedBookColumns = `b.id, b.title, b.author, b.publish_year, b.description, b.summary,
	b.review_count, b.average_rating, b.added_to_list_count, b.created_at, b.updated_at`

func scanBook(scanner interface{ Scan(dest ...any) error }) (*domain.Book, error) {
	var (
		b           domain.Book
		publishYear sql.NullInt64
		avgRating   sql.NullFloat64
		createdAt   string
		updatedAt   string
	)

	err := scanner.Scan(
		&b.ID,
		&b.Title,
		&b.Author,
		&publishYear,
		&b.Description,
		&b.Summary,
		&b.ReviewCount,
		&avgRating,
		&b.AddedToListCount,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if publishYear.Valid {
		y := int(publishYear.Int64)
		b.PublishYear = &y
	}
	if avgRating.Valid {
		avg := avgRating.Float64
		b.AverageRating = &avg
	}

	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (q *queries) queryBooks(ctx context.Context, query string, args ...any) ([]*domain.Book, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", classify(err))
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", classify(err))
	}
	return books, nil
}

// CreateBook inserts a book with zeroed aggregates.
func (q *queries) CreateBook(ctx context.Context, book *domain.Book) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO books (id, title, author, publish_year, description, summary,
			review_count, average_rating, added_to_list_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, NULL, 0, ?, ?)`,
		book.ID,
		book.Title,
		book.Author,
		nullableInt(book.PublishYear),
		book.Description,
		book.Summary,
		formatTime(book.CreatedAt),
		formatTime(book.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert book: %w", classify(err))
	}
	return nil
}

// GetBook returns a book by ID.
func (q *queries) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)

	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound.WithMessage("book not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", classify(err))
	}
	return b, nil
}

// ListBooks returns books matching filter ordered by title.
// Title and author match case-insensitively by prefix.
func (q *queries) ListBooks(ctx context.Context, filter store.BookFilter) ([]*domain.Book, error) {
	var (
		where []string
		args  []any
	)
	if filter.TitlePrefix != "" {
		where = append(where, `title LIKE ? ESCAPE '\'`)
		args = append(args, escapeLike(filter.TitlePrefix)+"%")
	}
	if filter.AuthorPrefix != "" {
		where = append(where, `author LIKE ? ESCAPE '\'`)
		args = append(args, escapeLike(filter.AuthorPrefix)+"%")
	}
	if filter.PublishYear != nil {
		where = append(where, `publish_year = ?`)
		args = append(args, *filter.PublishYear)
	}

	query := `SELECT ` + bookColumns + ` FROM books`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY title, id`

	return q.queryBooks(ctx, query, args...)
}

// ListBookIDs returns every book ID.
func (q *queries) ListBookIDs(ctx context.Context) ([]string, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT id FROM books ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list book ids: %w", classify(err))
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan book id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate book ids: %w", classify(err))
	}
	return ids, nil
}

// UpdateBookDetails updates the descriptive fields of a book. Aggregate
// counters are left untouched.
func (q *queries) UpdateBookDetails(ctx context.Context, book *domain.Book) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE books SET title = ?, author = ?, publish_year = ?, description = ?, summary = ?, updated_at = ?
		WHERE id = ?`,
		book.Title,
		book.Author,
		nullableInt(book.PublishYear),
		book.Description,
		book.Summary,
		formatTime(book.UpdatedAt),
		book.ID,
	)
	if err != nil {
		return fmt.Errorf("update book: %w", classify(err))
	}
	return affectedOne(res, store.ErrNotFound.WithMessage("book not found"))
}

// DeleteBook removes a book. Reading-list entries cascade.
func (q *queries) DeleteBook(ctx context.Context, id string) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", classify(err))
	}
	return affectedOne(res, store.ErrNotFound.WithMessage("book not found"))
}

// SetBookRating writes a recomputed review count and average in one update.
func (q *queries) SetBookRating(ctx context.Context, bookID string, agg domain.RatingAggregate, at time.Time) error {
	var avg sql.NullFloat64
	if agg.AverageRating != nil {
		avg = sql.NullFloat64{Float64: *agg.AverageRating, Valid: true}
	}

	res, err := q.q.ExecContext(ctx,
		`UPDATE books SET review_count = ?, average_rating = ?, updated_at = ? WHERE id = ?`,
		agg.ReviewCount, avg, formatTime(at), bookID)
	if err != nil {
		return fmt.Errorf("set book rating: %w", classify(err))
	}
	return affectedOne(res, store.ErrNotFound.WithMessage("book not found"))
}

// IncrementListCount adds one to added_to_list_count.
func (q *queries) IncrementListCount(ctx context.Context, bookID string, at time.Time) error {
	res, err := q.q.ExecContext(ctx,
		`UPDATE books SET added_to_list_count = added_to_list_count + 1, updated_at = ? WHERE id = ?`,
		formatTime(at), bookID)
	if err != nil {
		return fmt.Errorf("increment list count: %w", classify(err))
	}
	return affectedOne(res, store.ErrNotFound.WithMessage("book not found"))
}

// TopBooksByListCount returns the most-listed books.
func (q *queries) TopBooksByListCount(ctx context.Context, limit int) ([]*domain.Book, error) {
	return q.queryBooks(ctx, `SELECT `+bookColumns+` FROM books
		ORDER BY added_to_list_count DESC, review_count DESC, id ASC
		LIMIT ?`, limit)
}

// TopRatedBooks returns books by average rating. Unrated books sort last.
func (q *queries) TopRatedBooks(ctx context.Context, limit int) ([]*domain.Book, error) {
	return q.queryBooks(ctx, `SELECT `+bookColumns+` FROM books
		ORDER BY average_rating IS NULL, average_rating DESC, review_count DESC, id ASC
		LIMIT ?`, limit)
}
