package domain

import (
	"errors"
	"time"
)

// Rating bounds, inclusive.
const (
	MinRating = 1
	MaxRating = 5
)

// ErrInvalidRating is returned when a rating is outside MinRating..MaxRating.
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// Review is one user's rating of one book. A user reviews a book at most once.
type Review struct {
	ID         string    `json:"id"`
	BookID     string    `json:"book_id"`
	UserID     string    `json:"user_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	ReviewDate time.Time `json:"review_date"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Validate checks the rating bounds.
func (r *Review) Validate() error {
	return ValidateRating(r.Rating)
}

// ValidateRating checks that rating is within bounds.
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return ErrInvalidRating
	}
	return nil
}
