package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pagetrail/pagetrail-server/internal/domain"
	"github.com/pagetrail/pagetrail-server/internal/store"
)

func makeTestReview(id, bookID, userID string, rating int) *domain.Review {
	now := time.Now()
	return &domain.Review{
		ID:         id,
		BookID:     bookID,
		UserID:     userID,
		Rating:     rating,
		ReviewDate: now,
		UpdatedAt:  now,
	}
}

func mustCreateReview(t *testing.T, s *Store, id, bookID, userID string, rating int) {
	t.Helper()
	if err := s.CreateReview(context.Background(), makeTestReview(id, bookID, userID, rating)); err != nil {
		t.Fatalf("create review %s: %v", id, err)
	}
}

func TestCreateAndGetReview(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, s, "usr-1", "ada")
	mustCreateBook(t, s, "book-1", "Dune")

	r := makeTestReview("rev-1", "book-1", "usr-1", 4)
	r.Comment = "Spice must flow"
	if err := s.CreateReview(ctx, r); err != nil {
		t.Fatalf("create review: %v", err)
	}

	got, err := s.GetReview(ctx, "rev-1")
	if err != nil {
		t.Fatalf("get review: %v", err)
	}
	if got.Rating != 4 || got.Comment != "Spice must flow" || got.BookID != "book-1" || got.UserID != "usr-1" {
		t.Errorf("unexpected review: %+v", got)
	}
}

func TestCreateReview_OnePerUserAndBook(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, s, "usr-1", "ada")
	mustCreateBook(t, s, "book-1", "Dune")
	mustCreateReview(t, s, "rev-1", "book-1", "usr-1", 4)

	err := s.CreateReview(ctx, makeTestReview("rev-2", "book-1", "usr-1", 2))
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreateReview_ForeignKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, s, "usr-1", "ada")

	err := s.CreateReview(ctx, makeTestReview("rev-1", "missing-book", "usr-1", 4))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing book, got %v", err)
	}
}

func TestCreateReview_RatingCheck(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, s, "usr-1", "ada")
	mustCreateBook(t, s, "book-1", "Dune")

	err := s.CreateReview(ctx, makeTestReview("rev-1", "book-1", "usr-1", 9))
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpdateAndDeleteReview(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, s, "usr-1", "ada")
	mustCreateBook(t, s, "book-1", "Dune")
	mustCreateReview(t, s, "rev-1", "book-1", "usr-1", 4)

	r, _ := s.GetReview(ctx, "rev-1")
	r.Rating = 2
	r.Comment = "Changed my mind"
	r.UpdatedAt = time.Now()
	if err := s.UpdateReview(ctx, r); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := s.GetReview(ctx, "rev-1")
	if got.Rating != 2 || got.Comment != "Changed my mind" {
		t.Errorf("unexpected review after update: %+v", got)
	}

	if err := s.DeleteReview(ctx, "rev-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteReview(ctx, "rev-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRatingsAndBulkDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, s, "usr-1", "ada")
	mustCreateUser(t, s, "usr-2", "grace")
	mustCreateBook(t, s, "book-1", "Dune")
	mustCreateBook(t, s, "book-2", "Emma")
	mustCreateReview(t, s, "rev-1", "book-1", "usr-1", 5)
	mustCreateReview(t, s, "rev-2", "book-1", "usr-2", 3)
	mustCreateReview(t, s, "rev-3", "book-2", "usr-1", 1)

	ratings, err := s.ListRatingsForBook(ctx, "book-1")
	if err != nil {
		t.Fatalf("list ratings: %v", err)
	}
	if len(ratings) != 2 {
		t.Fatalf("expected 2 ratings, got %v", ratings)
	}

	n, err := s.DeleteReviewsByBook(ctx, "book-1")
	if err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}

	remaining, _ := s.ListReviewsByBook(ctx, "book-2")
	if len(remaining) != 1 {
		t.Errorf("other book's reviews must survive, got %d", len(remaining))
	}
}

func TestCountReviewsByUser_OrderAndTieBreak(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// usr-a: 2 reviews, usr-b: 3, usr-c: 2, usr-d: 1.
	counts := map[string]int{"usr-a": 2, "usr-b": 3, "usr-c": 2, "usr-d": 1}
	for user := range counts {
		mustCreateUser(t, s, user, user)
	}
	for i := 0; i < 3; i++ {
		mustCreateBook(t, s, bookIDFor(i), "Book")
	}
	for user, n := range counts {
		for i := 0; i < n; i++ {
			mustCreateReview(t, s, user+"-"+bookIDFor(i), bookIDFor(i), user, 3)
		}
	}

	got, err := s.CountReviewsByUser(ctx, 3)
	if err != nil {
		t.Fatalf("count reviews: %v", err)
	}
	want := []store.ReviewerCount{
		{UserID: "usr-b", ReviewCount: 3},
		{UserID: "usr-a", ReviewCount: 2},
		{UserID: "usr-c", ReviewCount: 2},
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func bookIDFor(i int) string {
	return string(rune('a'+i)) + "-book"
}
