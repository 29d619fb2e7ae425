// Package store defines the persistence interface for the PageTrail server.
package store

import (
	"context"
	"time"

	"github.com/pagetrail/pagetrail-server/internal/domain"
)

// Queries are the row operations available both on the store and inside a
// transaction. Aggregate counters on books are only written through
// SetBookRating and IncrementListCount.
type Queries interface {
	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	SoftDeleteUser(ctx context.Context, id string, at time.Time) error

	// Books
	CreateBook(ctx context.Context, book *domain.Book) error
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	ListBooks(ctx context.Context, filter BookFilter) ([]*domain.Book, error)
	ListBookIDs(ctx context.Context) ([]string, error)
	UpdateBookDetails(ctx context.Context, book *domain.Book) error
	DeleteBook(ctx context.Context, id string) error
	SetBookRating(ctx context.Context, bookID string, agg domain.RatingAggregate, at time.Time) error
	IncrementListCount(ctx context.Context, bookID string, at time.Time) error
	TopBooksByListCount(ctx context.Context, limit int) ([]*domain.Book, error)
	TopRatedBooks(ctx context.Context, limit int) ([]*domain.Book, error)

	// Categories
	CreateCategory(ctx context.Context, category *domain.Category) error
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	UpdateCategory(ctx context.Context, category *domain.Category) error
	DeleteCategory(ctx context.Context, id string) error
	AddBookCategory(ctx context.Context, bookID, categoryID string, at time.Time) error
	RemoveBookCategory(ctx context.Context, bookID, categoryID string) error
	ReplaceBookCategories(ctx context.Context, bookID string, categoryIDs []string, at time.Time) error
	ListCategoriesForBooks(ctx context.Context, bookIDs []string) (map[string][]*domain.Category, error)
	ListBooksInCategory(ctx context.Context, categoryID string) ([]*domain.Book, error)

	// Reviews
	CreateReview(ctx context.Context, review *domain.Review) error
	GetReview(ctx context.Context, id string) (*domain.Review, error)
	UpdateReview(ctx context.Context, review *domain.Review) error
	DeleteReview(ctx context.Context, id string) error
	DeleteReviewsByBook(ctx context.Context, bookID string) (int64, error)
	ListReviewsByBook(ctx context.Context, bookID string) ([]*domain.Review, error)
	ListRatingsForBook(ctx context.Context, bookID string) ([]int, error)
	CountReviewsByUser(ctx context.Context, limit int) ([]ReviewerCount, error)

	// Reading list
	CreateReadingListEntry(ctx context.Context, entry *domain.ReadingListEntry) error
	GetReadingListEntry(ctx context.Context, userID, bookID string) (*domain.ReadingListEntry, error)
	UpdateReadingListEntry(ctx context.Context, entry *domain.ReadingListEntry) error
	DeleteReadingListEntry(ctx context.Context, userID, bookID string) error
	ListReadingListByUser(ctx context.Context, userID string) ([]*domain.ReadingListEntry, error)
	ListReadingList(ctx context.Context) ([]*domain.ReadingListEntry, error)
	ListFinishedEntries(ctx context.Context) ([]*domain.ReadingListEntry, error)
}

// Store is the persistence handle. It is opened once at startup and closed
// on shutdown.
type Store interface {
	Queries

	// WithTx runs fn in a write transaction. The transaction commits when fn
	// returns nil and rolls back on error, panic or context cancellation.
	WithTx(ctx context.Context, fn func(tx Queries) error) error

	Ping(ctx context.Context) error
	Close() error
}
