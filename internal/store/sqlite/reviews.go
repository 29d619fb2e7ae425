package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pagetrail/pagetrail-server/internal/domain"
	"github.com/pagetrail/pagetrail-server/internal/store"
)

const reviewColumns = `id, book_id, user_id, rating, comment, review_date, updated_at`

func scanReview(scanner interface{ Scan(dest ...any) error }) (*domain.Review, error) {
	var (
		r          domain.Review
		comment    sql.NullString
		reviewDate string
		updatedAt  string
	)

	if err := scanner.Scan(&r.ID, &r.BookID, &r.UserID, &r.Rating, &comment, &reviewDate, &updatedAt); err != nil {
		return nil, err
	}
	r.Comment = comment.String

	var err error
	if r.ReviewDate, err = parseTime(reviewDate); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateReview inserts a review.
// Returns store.ErrAlreadyExists if the user already reviewed the book.
func (q *queries) CreateReview(ctx context.Context, review *domain.Review) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO reviews (id, book_id, user_id, rating, comment, review_date, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		review.ID,
		review.BookID,
		review.UserID,
		review.Rating,
		nullString(review.Comment),
		formatTime(review.ReviewDate),
		formatTime(review.UpdatedAt),
	)
	if err != nil {
		err = classify(err)
		if errors.Is(err, store.ErrAlreadyExists) {
			return store.ErrAlreadyExists.WithMessage("user has already reviewed this book")
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// GetReview returns a review by ID.
func (q *queries) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = ?`, id)

	r, err := scanReview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound.WithMessage("review not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get review: %w", classify(err))
	}
	return r, nil
}

// UpdateReview writes the rating and comment of a review.
func (q *queries) UpdateReview(ctx context.Context, review *domain.Review) error {
	res, err := q.q.ExecContext(ctx,
		`UPDATE reviews SET rating = ?, comment = ?, updated_at = ? WHERE id = ?`,
		review.Rating, nullString(review.Comment), formatTime(review.UpdatedAt), review.ID)
	if err != nil {
		return fmt.Errorf("update review: %w", classify(err))
	}
	return affectedOne(res, store.ErrNotFound.WithMessage("review not found"))
}

// DeleteReview removes a review by ID.
func (q *queries) DeleteReview(ctx context.Context, id string) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", classify(err))
	}
	return affectedOne(res, store.ErrNotFound.WithMessage("review not found"))
}

// DeleteReviewsByBook removes every review of a book and returns how many were removed.
func (q *queries) DeleteReviewsByBook(ctx context.Context, bookID string) (int64, error) {
	res, err := q.q.ExecContext(ctx, `DELETE FROM reviews WHERE book_id = ?`, bookID)
	if err != nil {
		return 0, fmt.Errorf("delete reviews by book: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify(err)
	}
	return n, nil
}

// ListReviewsByBook returns a book's reviews, newest first.
func (q *queries) ListReviewsByBook(ctx context.Context, bookID string) ([]*domain.Review, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE book_id = ? ORDER BY review_date DESC, id`, bookID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", classify(err))
	}
	defer rows.Close()

	var reviews []*domain.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", classify(err))
	}
	return reviews, nil
}

// ListRatingsForBook returns the rating of every review of a book.
func (q *queries) ListRatingsForBook(ctx context.Context, bookID string) ([]int, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT rating FROM reviews WHERE book_id = ?`, bookID)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", classify(err))
	}
	defer rows.Close()

	var ratings []int
	for rows.Next() {
		var r int
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", classify(err))
	}
	return ratings, nil
}

// CountReviewsByUser groups reviews by author and returns the top groups,
// highest count first with user ID ascending on ties.
func (q *queries) CountReviewsByUser(ctx context.Context, limit int) ([]store.ReviewerCount, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT user_id, COUNT(*) AS review_count
		FROM reviews
		GROUP BY user_id
		ORDER BY review_count DESC, user_id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("count reviews by user: %w", classify(err))
	}
	defer rows.Close()

	var counts []store.ReviewerCount
	for rows.Next() {
		var c store.ReviewerCount
		if err := rows.Scan(&c.UserID, &c.ReviewCount); err != nil {
			return nil, fmt.Errorf("scan reviewer count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviewer counts: %w", classify(err))
	}
	return counts, nil
}
