package domain

import (
	"fmt"
	"time"
)

// ReviewerRank is one row of the top-reviewers ranking.
type ReviewerRank struct {
	Rank        int     `json:"rank"`
	UserID      string  `json:"user_id"`
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	Picture     *string `json:"picture"`
	ReviewCount int     `json:"review_count"`
}

// ReaderSpeed is one row of the fastest-readers ranking.
type ReaderSpeed struct {
	Rank              int    `json:"rank"`
	UserID            string `json:"user_id"`
	Username          string `json:"username"`
	CompletedBooks    int    `json:"completed_books"`
	AverageDurationMs int64  `json:"average_duration_ms"`
	AverageDuration   string `json:"average_duration"` // Human-readable, e.g. "3d 4h"
}

// ExclusionReason explains why a finished entry was left out of the speed ranking.
type ExclusionReason string

const (
	ExclusionMissingStart     ExclusionReason = "missing_start_date"
	ExclusionNegativeDuration ExclusionReason = "negative_duration"
)

// ExcludedEntry is a finished reading-list entry whose dates cannot produce a
// valid duration. These are data-quality findings, not ranking input.
type ExcludedEntry struct {
	UserID     string          `json:"user_id"`
	BookID     string          `json:"book_id"`
	StartDate  *time.Time      `json:"start_date,omitempty"`
	FinishDate time.Time       `json:"finish_date"`
	Reason     ExclusionReason `json:"reason"`
}

// ReadingSpeedRanking is the fastest-readers result.
type ReadingSpeedRanking struct {
	Readers  []ReaderSpeed   `json:"readers"`
	Excluded []ExcludedEntry `json:"excluded"`
}

// FormatDuration renders a duration as a short label: "2d 5h", "3h 20m", "45m".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0m"
	}
	totalMinutes := int64(d / time.Minute)
	days := totalMinutes / (24 * 60)
	hours := (totalMinutes / 60) % 24
	minutes := totalMinutes % 60

	switch {
	case days > 0 && hours > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case days > 0:
		return fmt.Sprintf("%dd", days)
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
