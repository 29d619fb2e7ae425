package service

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pagetrail/pagetrail-server/internal/domain"
	"github.com/pagetrail/pagetrail-server/internal/metrics"
	"github.com/pagetrail/pagetrail-server/internal/store"
)

// Ranking size defaults.
const (
	DefaultRankingLimit = 10
	DefaultRankingMax   = 100
)

// RankingOptions bound the size of ranked listings.
type RankingOptions struct {
	DefaultLimit int
	MaxLimit     int
}

// clamp applies the default to non-positive limits and caps at MaxLimit.
func (o RankingOptions) clamp(limit int) int {
	def, maxLimit := o.DefaultLimit, o.MaxLimit
	if def <= 0 {
		def = DefaultRankingLimit
	}
	if maxLimit < def {
		maxLimit = max(def, DefaultRankingMax)
	}
	if limit <= 0 {
		return def
	}
	return min(limit, maxLimit)
}

// RankingService computes read-only cross-user rankings. Identical
// concurrent requests share one computation.
type RankingService struct {
	store  store.Store
	opts   RankingOptions
	group  singleflight.Group
	logger *slog.Logger
}

// NewRankingService creates a new ranking service.
func NewRankingService(store store.Store, opts RankingOptions, logger *slog.Logger) *RankingService {
	return &RankingService{
		store:  store,
		opts:   opts,
		logger: logger,
	}
}

// TopReviewers returns the users with the most reviews, highest first, ties
// broken by user ID. Non-positive limits use the configured default.
// Reviewers whose account is gone are shown as "Unknown".
func (s *RankingService) TopReviewers(ctx context.Context, limit int) ([]domain.ReviewerRank, error) {
	limit = s.opts.clamp(limit)
	v, err := s.shared(ctx, "top-reviewers:"+strconv.Itoa(limit), func(ctx context.Context) (any, error) {
		return s.topReviewers(ctx, limit)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]domain.ReviewerRank)), nil
}

func (s *RankingService) topReviewers(ctx context.Context, limit int) ([]domain.ReviewerRank, error) {
	start := time.Now()
	defer func() { metrics.RecordRanking("top_reviewers", time.Since(start)) }()

	counts, err := s.store.CountReviewsByUser(ctx, limit)
	if err != nil {
		return nil, translate(err)
	}

	ids := make([]string, len(counts))
	for i, c := range counts {
		ids[i] = c.UserID
	}
	users, err := s.usersByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	ranks := make([]domain.ReviewerRank, len(counts))
	for i, c := range counts {
		rank := domain.ReviewerRank{
			Rank:        i + 1,
			UserID:      c.UserID,
			Username:    domain.UnknownUsername,
			Email:       domain.UnknownUsername,
			ReviewCount: c.ReviewCount,
		}
		if u, ok := users[c.UserID]; ok {
			rank.Username = u.Username
			rank.Email = u.Email
			rank.Picture = u.Picture
		}
		ranks[i] = rank
	}
	return ranks, nil
}

// FastestReaders ranks users by their mean time from start to finish over
// completed books, fastest first. Finished entries without a start date or
// with a finish before the start are reported in Excluded and do not count
// toward any mean.
func (s *RankingService) FastestReaders(ctx context.Context) (*domain.ReadingSpeedRanking, error) {
	v, err := s.shared(ctx, "fastest-readers", s.fastestReaders)
	if err != nil {
		return nil, err
	}
	r := v.(*domain.ReadingSpeedRanking)
	return &domain.ReadingSpeedRanking{
		Readers:  slices.Clone(r.Readers),
		Excluded: slices.Clone(r.Excluded),
	}, nil
}

func (s *RankingService) fastestReaders(ctx context.Context) (any, error) {
	start := time.Now()
	defer func() { metrics.RecordRanking("fastest_readers", time.Since(start)) }()

	entries, err := s.store.ListFinishedEntries(ctx)
	if err != nil {
		return nil, translate(err)
	}

	type readerTotals struct {
		total time.Duration
		count int
	}
	totals := make(map[string]*readerTotals)
	excluded := []domain.ExcludedEntry{}

	for _, e := range entries {
		if e.FinishDate == nil {
			continue
		}
		reason := domain.ExclusionReason("")
		d, ok := e.ReadingDuration()
		switch {
		case !ok:
			reason = domain.ExclusionMissingStart
		case d < 0:
			reason = domain.ExclusionNegativeDuration
		}
		if reason != "" {
			excluded = append(excluded, domain.ExcludedEntry{
				UserID:     e.UserID,
				BookID:     e.BookID,
				StartDate:  e.StartDate,
				FinishDate: *e.FinishDate,
				Reason:     reason,
			})
			metrics.RecordExcludedEntry(string(reason))
			s.logger.Warn("finished entry excluded from speed ranking",
				"user_id", e.UserID, "book_id", e.BookID, "reason", reason)
			continue
		}

		t, ok := totals[e.UserID]
		if !ok {
			t = &readerTotals{}
			totals[e.UserID] = t
		}
		t.total += d
		t.count++
	}

	ids := make([]string, 0, len(totals))
	for userID := range totals {
		ids = append(ids, userID)
	}
	users, err := s.usersByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	readers := make([]domain.ReaderSpeed, 0, len(totals))
	for userID, t := range totals {
		mean := t.total / time.Duration(t.count)
		reader := domain.ReaderSpeed{
			UserID:            userID,
			Username:          domain.UnknownUsername,
			CompletedBooks:    t.count,
			AverageDurationMs: mean.Milliseconds(),
			AverageDuration:   domain.FormatDuration(mean),
		}
		if u, ok := users[userID]; ok {
			reader.Username = u.Username
		}
		readers = append(readers, reader)
	}

	slices.SortFunc(readers, func(a, b domain.ReaderSpeed) int {
		if c := cmp.Compare(a.AverageDurationMs, b.AverageDurationMs); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
	for i := range readers {
		readers[i].Rank = i + 1
	}

	return &domain.ReadingSpeedRanking{Readers: readers, Excluded: excluded}, nil
}

// shared runs fn once for all concurrent callers with the same key. A caller
// that gives up stops waiting without canceling the work for the others.
func (s *RankingService) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		return fn(detached)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *RankingService) usersByID(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, translate(err)
	}
	byID := make(map[string]*domain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}
