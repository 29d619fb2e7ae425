package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagetrail/pagetrail-server/internal/domain"
	domainerrors "github.com/pagetrail/pagetrail-server/internal/errors"
	"github.com/pagetrail/pagetrail-server/internal/metrics"
	"github.com/pagetrail/pagetrail-server/internal/store"
	"github.com/pagetrail/pagetrail-server/internal/store/sqlite"
)

func TestAggregate_InvariantHoldsAcrossMutations(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()

	book := env.createBook(t, "Dune")
	ada := env.createUser(t, "ada")
	grace := env.createUser(t, "grace")
	linus := env.createUser(t, "linus")

	r1 := env.createReview(t, book.ID, ada.ID, 5)
	env.requireAggregateMatchesReviews(t, book.ID)

	env.createReview(t, book.ID, grace.ID, 2)
	r3 := env.createReview(t, book.ID, linus.ID, 4)
	got := env.requireAggregateMatchesReviews(t, book.ID)
	assert.Equal(t, 3, got.ReviewCount)
	assert.InDelta(t, 11.0/3.0, *got.AverageRating, 1e-9)

	three := 3
	_, err := env.reviews.Update(ctx, r1.ID, UpdateReviewRequest{Rating: &three})
	require.NoError(t, err)
	got = env.requireAggregateMatchesReviews(t, book.ID)
	assert.InDelta(t, 3.0, *got.AverageRating, 1e-9)

	_, err = env.reviews.Delete(ctx, r3.ID)
	require.NoError(t, err)
	got = env.requireAggregateMatchesReviews(t, book.ID)
	assert.Equal(t, 2, got.ReviewCount)
	assert.InDelta(t, 2.5, *got.AverageRating, 1e-9)
}

func TestAggregate_ParallelReviewCreates(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()

	const n = 20
	book := env.createBook(t, "Contended")
	users := make([]*domain.User, n)
	for i := range users {
		users[i] = env.createUser(t, fmt.Sprintf("reader%02d", i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.reviews.Create(ctx, CreateReviewRequest{
				BookID: book.ID,
				UserID: users[i].ID,
				Rating: i%5 + 1,
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got := env.requireAggregateMatchesReviews(t, book.ID)
	assert.Equal(t, n, got.ReviewCount)
	assert.InDelta(t, 3.0, *got.AverageRating, 1e-9)
	assert.Equal(t, 0, env.aggregates.locks.size(), "locks must be released")
}

func TestAggregate_DeletingLastReviewUnratesBook(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()

	book := env.createBook(t, "Lonely")
	ada := env.createUser(t, "ada")
	review := env.createReview(t, book.ID, ada.ID, 4)

	got, err := env.reviews.Delete(ctx, review.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ReviewCount)
	assert.Nil(t, got.AverageRating)

	stored := env.requireAggregateMatchesReviews(t, book.ID)
	assert.False(t, stored.IsRated())
}

func TestAggregate_ListCountNeverDecreases(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()

	book := env.createBook(t, "Popular")
	ada := env.createUser(t, "ada")

	_, err := env.readings.Add(ctx, AddReadingListRequest{UserID: ada.ID, BookID: book.ID})
	require.NoError(t, err)

	// Duplicate add fails and is not counted.
	_, err = env.readings.Add(ctx, AddReadingListRequest{UserID: ada.ID, BookID: book.ID})
	require.ErrorIs(t, err, domainerrors.ErrAlreadyExists)

	// Updates are not counted.
	_, err = env.readings.StartReading(ctx, ada.ID, book.ID)
	require.NoError(t, err)

	// Deletes do not decrement.
	require.NoError(t, env.readings.Delete(ctx, ada.ID, book.ID))

	got, err := env.books.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AddedToListCount)

	// Explicit increments always count.
	_, err = env.aggregates.Increment(ctx, book.ID)
	require.NoError(t, err)
	got, err = env.aggregates.Increment(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.AddedToListCount)

	// Re-adding after delete counts again.
	_, err = env.readings.Add(ctx, AddReadingListRequest{UserID: ada.ID, BookID: book.ID})
	require.NoError(t, err)
	got, _ = env.books.Get(ctx, book.ID)
	assert.Equal(t, 4, got.AddedToListCount)
}

func TestAggregate_IncrementMissingBook(t *testing.T) {
	env := setupTestServices(t)

	_, err := env.aggregates.Increment(context.Background(), "book-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestAggregate_RefreshMissingBook(t *testing.T) {
	env := setupTestServices(t)

	_, err := env.aggregates.Refresh(context.Background(), "book-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestAggregate_FailedRefreshRollsBackReview(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()

	book := env.createBook(t, "Fragile")
	ada := env.createUser(t, "ada")

	// Make every write to the rating aggregate fail.
	raw, err := sql.Open("sqlite", sqlite.DSN(env.dbPath))
	require.NoError(t, err)
	defer raw.Close()
	_, err = raw.Exec(`CREATE TRIGGER fail_rating_refresh BEFORE UPDATE OF review_count ON books
		BEGIN SELECT RAISE(ABORT, 'rating write failed'); END`)
	require.NoError(t, err)

	_, err = env.reviews.Create(ctx, CreateReviewRequest{BookID: book.ID, UserID: ada.ID, Rating: 5})
	require.Error(t, err)

	reviews, err := env.reviews.ListByBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Empty(t, reviews, "review must not outlive a failed refresh")
	env.requireAggregateMatchesReviews(t, book.ID)
}

func TestAggregate_CanceledRequestRollsBack(t *testing.T) {
	env := setupTestServices(t)

	book := env.createBook(t, "Canceled")
	ada := env.createUser(t, "ada")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.reviews.Create(ctx, CreateReviewRequest{BookID: book.ID, UserID: ada.ID, Rating: 3})
	require.ErrorIs(t, err, context.Canceled)

	reviews, err := env.reviews.ListByBook(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Empty(t, reviews)
	env.requireAggregateMatchesReviews(t, book.ID)
}

func TestAggregate_CancelWhileWaitingForBookLock(t *testing.T) {
	env := setupTestServices(t)

	book := env.createBook(t, "Locked")
	ada := env.createUser(t, "ada")

	unlock, err := env.aggregates.locks.Lock(context.Background(), book.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = env.reviews.Create(ctx, CreateReviewRequest{BookID: book.ID, UserID: ada.ID, Rating: 3})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.Equal(t, 0, env.aggregates.locks.size())

	reviews, _ := env.reviews.ListByBook(context.Background(), book.ID)
	assert.Empty(t, reviews)
}

// conflictingStore fails the first failures transactions with a write conflict.
type conflictingStore struct {
	store.Store
	failures int32
	attempts atomic.Int32
}

func (c *conflictingStore) WithTx(ctx context.Context, fn func(tx store.Queries) error) error {
	if c.attempts.Add(1) <= c.failures {
		return fmt.Errorf("begin tx: %w", store.ErrConflict.WithCause(errors.New("database is locked")))
	}
	return c.Store.WithTx(ctx, fn)
}

func TestAggregate_RetriesConflicts(t *testing.T) {
	env := setupTestServices(t)
	book := env.createBook(t, "Busy")

	flaky := &conflictingStore{Store: env.store, failures: 2}
	svc := NewAggregateService(flaky, AggregateOptions{MaxAttempts: 3, RetryBackoff: time.Millisecond}, env.aggregates.logger)

	before := testutil.ToFloat64(metrics.AggregateRetriesTotal.WithLabelValues(string(OpListIncrement)))

	got, err := svc.Increment(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AddedToListCount)
	assert.Equal(t, int32(3), flaky.attempts.Load())

	after := testutil.ToFloat64(metrics.AggregateRetriesTotal.WithLabelValues(string(OpListIncrement)))
	assert.Equal(t, before+2, after)
}

func TestAggregate_ConflictRetriesAreBounded(t *testing.T) {
	env := setupTestServices(t)
	book := env.createBook(t, "Hopeless")

	flaky := &conflictingStore{Store: env.store, failures: 100}
	svc := NewAggregateService(flaky, AggregateOptions{MaxAttempts: 4, RetryBackoff: time.Millisecond}, env.aggregates.logger)

	_, err := svc.Increment(context.Background(), book.ID)
	require.ErrorIs(t, err, domainerrors.ErrConflict)
	assert.Equal(t, int32(4), flaky.attempts.Load())

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.True(t, domainErr.Transient())

	got, _ := env.books.Get(context.Background(), book.ID)
	assert.Equal(t, 0, got.AddedToListCount)
}

func TestAggregate_ReconcileAllFixesDrift(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()

	drifted := env.createBook(t, "Drifted")
	clean := env.createBook(t, "Clean")
	ada := env.createUser(t, "ada")
	env.createReview(t, drifted.ID, ada.ID, 4)
	env.createReview(t, clean.ID, ada.ID, 2)

	// Simulate drift from a write that bypassed the aggregator.
	wrong := 1.0
	require.NoError(t, env.store.SetBookRating(ctx, drifted.ID, domain.RatingAggregate{ReviewCount: 7, AverageRating: &wrong}, time.Now()))

	result, err := env.aggregates.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Checked)
	assert.Equal(t, 1, result.Corrected)
	env.requireAggregateMatchesReviews(t, drifted.ID)

	result, err = env.aggregates.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Corrected)
}

func TestBookLocks_MutualExclusion(t *testing.T) {
	locks := newBookLocks()
	ctx := context.Background()

	var (
		inside  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locks.Lock(ctx, "book-1")
			if err != nil {
				t.Error(err)
				return
			}
			n := inside.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load())
	assert.Equal(t, 0, locks.size())
}

func TestBookLocks_IndependentBooks(t *testing.T) {
	locks := newBookLocks()
	ctx := context.Background()

	unlockA, err := locks.Lock(ctx, "book-a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	unlockB, err := locks.Lock(ctx, "book-b")
	require.NoError(t, err, "a different book must not wait")
	unlockB()
	unlockB() // idempotent
}
