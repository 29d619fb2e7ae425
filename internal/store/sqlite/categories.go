package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pagetrail/pagetrail-server/internal/domain"
	"github.com/pagetrail/pagetrail-server/internal/store"
)

// categoryColumns must match the scan order in scanCategory.
const categoryColumns = `id, name, created_at, updated_at`

func scanCategory(scanner interface{ Scan(dest ...any) error }) (*domain.Category, error) {
	var (
		c         domain.Category
		createdAt string
		updatedAt string
	)
	if err := scanner.Scan(&c.ID, &c.Name, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCategory inserts a category.
// Returns store.ErrAlreadyExists if the name is taken, ignoring case.
func (q *queries) CreateCategory(ctx context.Context, category *domain.Category) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO categories (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		category.ID,
		category.Name,
		formatTime(category.CreatedAt),
		formatTime(category.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert category: %w", classify(err))
	}
	return nil
}

// GetCategory returns a category by ID without its books.
func (q *queries) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)

	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound.WithMessage("category not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", classify(err))
	}
	return c, nil
}

// ListCategories returns every category ordered by name.
func (q *queries) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", classify(err))
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", classify(err))
	}
	return categories, nil
}

// UpdateCategory renames a category.
func (q *queries) UpdateCategory(ctx context.Context, category *domain.Category) error {
	res, err := q.q.ExecContext(ctx,
		`UPDATE categories SET name = ?, updated_at = ? WHERE id = ?`,
		category.Name, formatTime(category.UpdatedAt), category.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", classify(err))
	}
	return affectedOne(res, store.ErrNotFound.WithMessage("category not found"))
}

// DeleteCategory removes a category. Its book links cascade; the books stay.
func (q *queries) DeleteCategory(ctx context.Context, id string) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", classify(err))
	}
	return affectedOne(res, store.ErrNotFound.WithMessage("category not found"))
}

// AddBookCategory links a book to a category.
// Returns store.ErrAlreadyExists if the link exists and store.ErrNotFound if
// either side is missing.
func (q *queries) AddBookCategory(ctx context.Context, bookID, categoryID string, at time.Time) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO book_categories (book_id, category_id, created_at) VALUES (?, ?, ?)`,
		bookID, categoryID, formatTime(at))
	if err != nil {
		return fmt.Errorf("add book category: %w", classify(err))
	}
	return nil
}

// RemoveBookCategory unlinks a book from a category.
func (q *queries) RemoveBookCategory(ctx context.Context, bookID, categoryID string) error {
	res, err := q.q.ExecContext(ctx,
		`DELETE FROM book_categories WHERE book_id = ? AND category_id = ?`, bookID, categoryID)
	if err != nil {
		return fmt.Errorf("remove book category: %w", classify(err))
	}
	return affectedOne(res, store.ErrNotFound.WithMessage("book is not in category"))
}

// ReplaceBookCategories sets the book's categories to exactly categoryIDs.
// Callers run it in a transaction so a missing category leaves the old set.
func (q *queries) ReplaceBookCategories(ctx context.Context, bookID string, categoryIDs []string, at time.Time) error {
	if _, err := q.q.ExecContext(ctx, `DELETE FROM book_categories WHERE book_id = ?`, bookID); err != nil {
		return fmt.Errorf("clear book categories: %w", classify(err))
	}
	for _, categoryID := range categoryIDs {
		if err := q.AddBookCategory(ctx, bookID, categoryID, at); err != nil {
			return err
		}
	}
	return nil
}

// ListCategoriesForBooks returns the categories of each book, keyed by book
// ID and ordered by name. Books without categories have no entry.
func (q *queries) ListCategoriesForBooks(ctx context.Context, bookIDs []string) (map[string][]*domain.Category, error) {
	result := make(map[string][]*domain.Category)
	if len(bookIDs) == 0 {
		return result, nil
	}

	args := make([]any, len(bookIDs))
	for i, id := range bookIDs {
		args[i] = id
	}

	rows, err := q.q.QueryContext(ctx, `
		SELECT bc.book_id, c.id, c.name, c.created_at, c.updated_at
		FROM book_categories bc
		JOIN categories c ON c.id = bc.category_id
		WHERE bc.book_id IN (`+placeholders(len(bookIDs))+`)
		ORDER BY bc.book_id, c.name, c.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list book categories: %w", classify(err))
	}
	defer rows.Close()

	for rows.Next() {
		var (
			bookID    string
			c         domain.Category
			createdAt string
			updatedAt string
		)
		if err := rows.Scan(&bookID, &c.ID, &c.Name, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan book category: %w", err)
		}
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		result[bookID] = append(result[bookID], &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate book categories: %w", classify(err))
	}
	return result, nil
}

// ListBooksInCategory returns the books linked to a category ordered by title.
func (q *queries) ListBooksInCategory(ctx context.Context, categoryID string) ([]*domain.Book, error) {
	return q.queryBooks(ctx, `SELECT `+prefixedBookColumns+` FROM books b
		JOIN book_categories bc ON bc.book_id = b.id
		WHERE bc.category_id = ?
		ORDER BY b.title, b.id`, categoryID)
}
