// Package domain contains the core entities of the PageTrail catalog and
// reading tracker, along with the invariants they enforce on themselves.
package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrTitleRequired is returned when a book has no title.
var ErrTitleRequired = errors.New("title is required")

// Book is a catalog entry together with its derived aggregate counters.
//
// ReviewCount and AverageRating are maintained by full recomputation over the
// book's reviews. AverageRating is nil when the book has no reviews; a book
// without reviews is unrated, not rated zero. AddedToListCount is a lifetime
// counter and never decreases.
type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author,omitempty"`
	PublishYear *int      `json:"publish_year,omitempty"`
	Description string    `json:"description,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	ReviewCount      int      `json:"review_count"`
	AverageRating    *float64 `json:"average_rating"`
	AddedToListCount int      `json:"added_to_list_count"`

	// Categories is filled in by single-book reads and listings.
	Categories []*Category `json:"categories,omitempty"`
}

// Validate checks the descriptive fields a caller may set.
func (b *Book) Validate() error {
	if strings.TrimSpace(b.Title) == "" {
		return ErrTitleRequired
	}
	return nil
}

// IsRated reports whether the book has at least one review.
func (b *Book) IsRated() bool {
	return b.ReviewCount > 0 && b.AverageRating != nil
}

// RatingAggregate is the result of recomputing a book's rating counters
// from its full review set.
type RatingAggregate struct {
	ReviewCount   int
	AverageRating *float64
}

// ComputeRatingAggregate derives the review count and mean rating from ratings.
// The average is nil for an empty set.
func ComputeRatingAggregate(ratings []int) RatingAggregate {
	if len(ratings) == 0 {
		return RatingAggregate{}
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	avg := float64(sum) / float64(len(ratings))
	return RatingAggregate{ReviewCount: len(ratings), AverageRating: &avg}
}

// Equal reports whether two aggregates carry the same values.
func (a RatingAggregate) Equal(other RatingAggregate) bool {
	if a.ReviewCount != other.ReviewCount {
		return false
	}
	if a.AverageRating == nil || other.AverageRating == nil {
		return a.AverageRating == nil && other.AverageRating == nil
	}
	return *a.AverageRating == *other.AverageRating
}
