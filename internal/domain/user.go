package domain

import (
	"strings"
	"time"
)

// UnknownUsername decorates ranking rows whose user no longer exists.
const UnknownUsername = "Unknown"

// User is a reader account. Users are soft-deleted so their reviews keep
// contributing to book aggregates.
type User struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Picture   *string    `json:"picture"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// IsDeleted returns true if this user has been soft-deleted.
func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// MarkDeleted soft-deletes the user at now.
func (u *User) MarkDeleted(now time.Time) {
	u.DeletedAt = &now
	u.UpdatedAt = now
}

// NormalizeEmail lowercases and trims an email address for uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
