package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pagetrail/pagetrail-server/internal/domain"
	"github.com/pagetrail/pagetrail-server/internal/store/sqlite"
)

type testEnv struct {
	dbPath     string
	store      *sqlite.Store
	aggregates *AggregateService
	reviews    *ReviewService
	readings   *ReadingListService
	books      *BookService
	users      *UserService
	categories *CategoryService
	rankings   *RankingService
}

func setupTestServices(t *testing.T) *testEnv {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	testStore, err := sqlite.Open(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { testStore.Close() })

	aggregates := NewAggregateService(testStore, AggregateOptions{MaxAttempts: 3, RetryBackoff: time.Millisecond}, logger)
	limits := RankingOptions{DefaultLimit: 10, MaxLimit: 50}

	return &testEnv{
		dbPath:     dbPath,
		store:      testStore,
		aggregates: aggregates,
		reviews:    NewReviewService(testStore, aggregates, logger),
		readings:   NewReadingListService(testStore, aggregates, logger),
		books:      NewBookService(testStore, aggregates, limits, logger),
		users:      NewUserService(testStore, aggregates, logger),
		categories: NewCategoryService(testStore, aggregates, logger),
		rankings:   NewRankingService(testStore, limits, logger),
	}
}

func (e *testEnv) createUser(t *testing.T, username string) *domain.User {
	t.Helper()
	u, err := e.users.Create(context.Background(), CreateUserRequest{
		Username: username,
		Email:    username + "@example.com",
	})
	require.NoError(t, err)
	return u
}

func (e *testEnv) createBook(t *testing.T, title string) *domain.Book {
	t.Helper()
	b, err := e.books.Create(context.Background(), BookRequest{Title: title, Author: "Test Author"})
	require.NoError(t, err)
	return b
}

func (e *testEnv) createReview(t *testing.T, bookID, userID string, rating int) *domain.Review {
	t.Helper()
	res, err := e.reviews.Create(context.Background(), CreateReviewRequest{BookID: bookID, UserID: userID, Rating: rating})
	require.NoError(t, err)
	return res.Review
}

// requireAggregateMatchesReviews checks the stored counters against a fresh
// computation over the book's live reviews.
func (e *testEnv) requireAggregateMatchesReviews(t *testing.T, bookID string) *domain.Book {
	t.Helper()
	ctx := context.Background()

	book, err := e.store.GetBook(ctx, bookID)
	require.NoError(t, err)
	ratings, err := e.store.ListRatingsForBook(ctx, bookID)
	require.NoError(t, err)

	want := domain.ComputeRatingAggregate(ratings)
	require.Equal(t, want.ReviewCount, book.ReviewCount, "review_count")
	if want.AverageRating == nil {
		require.Nil(t, book.AverageRating, "average_rating")
	} else {
		require.NotNil(t, book.AverageRating, "average_rating")
		require.InDelta(t, *want.AverageRating, *book.AverageRating, 1e-9, "average_rating")
	}
	return book
}
