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

// userColumns is the ordered list of columns selected in user queries.
// Must match the scan order in scanUser.
const userColumns = `id, username, email, picture, created_at, updated_at, deleted_at`

// scanUser scans a sql.Row (or sql.Rows via its Scan method) into a domain.User.
func scanUser(scanner interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var (
		u         domain.User
		picture   sql.NullString
		createdAt string
		updatedAt string
		deletedAt sql.NullString
	)

	if err := scanner.Scan(&u.ID, &u.Username, &u.Email, &picture, &createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}

	if picture.Valid {
		u.Picture = &picture.String
	}

	var err error
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if u.DeletedAt, err = parseNullableTime(deletedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user.
// Returns store.ErrAlreadyExists if the ID, username or email is taken.
func (q *queries) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO users (id, username, email, email_lower, picture, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL)`,
		user.ID,
		user.Username,
		user.Email,
		domain.NormalizeEmail(user.Email),
		nullableString(user.Picture),
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", classify(err))
	}
	return nil
}

// GetUser returns a live user by ID. Soft-deleted users are not found.
func (q *queries) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row := q.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? AND deleted_at IS NULL`, id)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound.WithMessage("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", classify(err))
	}
	return u, nil
}

// GetUsersByIDs returns the live users among ids. Missing or deleted IDs are
// silently skipped.
func (q *queries) GetUsersByIDs(ctx context.Context, ids []string) ([]*domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := q.q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL AND id IN (`+placeholders(len(ids))+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("get users by ids: %w", classify(err))
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", classify(err))
	}
	return users, nil
}

// ListUsers returns every live user ordered by username.
func (q *queries) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY username, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", classify(err))
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", classify(err))
	}
	return users, nil
}

// UpdateUser replaces the profile fields of a live user.
// Returns store.ErrAlreadyExists if the new username or email is taken.
func (q *queries) UpdateUser(ctx context.Context, user *domain.User) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE users SET username = ?, email = ?, email_lower = ?, picture = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		user.Username,
		user.Email,
		domain.NormalizeEmail(user.Email),
		nullableString(user.Picture),
		formatTime(user.UpdatedAt),
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", classify(err))
	}
	return affectedOne(res, store.ErrNotFound.WithMessage("user not found"))
}

// SoftDeleteUser marks a live user as deleted. Their reviews and reading-list
// entries are kept.
func (q *queries) SoftDeleteUser(ctx context.Context, id string, at time.Time) error {
	ts := formatTime(at)
	res, err := q.q.ExecContext(ctx,
		`UPDATE users SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		ts, ts, id)
	if err != nil {
		return fmt.Errorf("soft delete user: %w", classify(err))
	}
	return affectedOne(res, store.ErrNotFound.WithMessage("user not found"))
}
