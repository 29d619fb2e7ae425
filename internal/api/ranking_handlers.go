package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pagetrail/pagetrail-server/internal/domain"
)

func (s *Server) registerRankingRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "topReviewers",
		Method:      http.MethodGet,
		Path:        "/api/v1/rankings/top-reviewers",
		Summary:     "Top reviewers",
		Description: "Users with the most reviews, ties broken by user ID. Deleted users appear as \"Unknown\".",
		Tags:        []string{"Rankings"},
	}, s.handleTopReviewers)

	huma.Register(s.api, huma.Operation{
		OperationID: "fastestReaders",
		Method:      http.MethodGet,
		Path:        "/api/v1/rankings/fastest-readers",
		Summary:     "Fastest readers",
		Description: "Users by mean start-to-finish time over completed books. Entries with no start date or a finish before the start are listed under excluded.",
		Tags:        []string{"Rankings"},
	}, s.handleFastestReaders)
}

// TopReviewersResponse contains the reviewer ranking.
type TopReviewersResponse struct {
	Reviewers []domain.ReviewerRank `json:"reviewers" doc:"Reviewers, most reviews first"`
}

// TopReviewersOutput wraps the reviewer ranking for Huma.
type TopReviewersOutput struct {
	Body TopReviewersResponse
}

// FastestReadersOutput wraps the reading speed ranking for Huma.
type FastestReadersOutput struct {
	Body *domain.ReadingSpeedRanking
}

func (s *Server) handleTopReviewers(ctx context.Context, input *LimitInput) (*TopReviewersOutput, error) {
	reviewers, err := s.services.Rankings.TopReviewers(ctx, input.Limit)
	if err != nil {
		return nil, err
	}
	return &TopReviewersOutput{Body: TopReviewersResponse{Reviewers: reviewers}}, nil
}

func (s *Server) handleFastestReaders(ctx context.Context, _ *struct{}) (*FastestReadersOutput, error) {
	ranking, err := s.services.Rankings.FastestReaders(ctx)
	if err != nil {
		return nil, err
	}
	return &FastestReadersOutput{Body: ranking}, nil
}
