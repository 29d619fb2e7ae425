package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrCategoryNameRequired is returned when a category has a blank name.
var ErrCategoryNameRequired = errors.New("category name is required")

// Category groups books by genre or subject. Names are unique
// case-insensitively. A book may belong to any number of categories.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Books is only populated when a single category is fetched.
	Books []*Book `json:"books,omitempty"`
}

// Validate checks the caller-settable fields.
func (c *Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrCategoryNameRequired
	}
	return nil
}
