package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pagetrail/pagetrail-server/internal/domain"
	"github.com/pagetrail/pagetrail-server/internal/service"
)

func (s *Server) registerReviewRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createReview",
		Method:        http.MethodPost,
		Path:          "/api/v1/reviews",
		Summary:       "Create review",
		Description:   "Posts a review and returns it with the book's refreshed rating. One review per user and book.",
		Tags:          []string{"Reviews"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateReview)

	huma.Register(s.api, huma.Operation{
		OperationID: "getReview",
		Method:      http.MethodGet,
		Path:        "/api/v1/reviews/{id}",
		Summary:     "Get review",
		Tags:        []string{"Reviews"},
	}, s.handleGetReview)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateReview",
		Method:      http.MethodPatch,
		Path:        "/api/v1/reviews/{id}",
		Summary:     "Update review",
		Description: "Changes the rating and/or comment. Omitted fields are unchanged.",
		Tags:        []string{"Reviews"},
	}, s.handleUpdateReview)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteReview",
		Method:      http.MethodDelete,
		Path:        "/api/v1/reviews/{id}",
		Summary:     "Delete review",
		Description: "Deletes a review and returns the book's refreshed rating",
		Tags:        []string{"Reviews"},
	}, s.handleDeleteReview)
}

// === DTOs ===

// CreateReviewRequest is the request body for posting a review.
type CreateReviewRequest struct {
	BookID  string `json:"book_id" minLength:"1" doc:"Reviewed book"`
	UserID  string `json:"user_id" minLength:"1" doc:"Reviewer"`
	Rating  int    `json:"rating" minimum:"1" maximum:"5" doc:"Rating from 1 to 5"`
	Comment string `json:"comment,omitempty" maxLength:"5000" doc:"Free-text review"`
}

// CreateReviewInput wraps the create review request for Huma.
type CreateReviewInput struct {
	Body CreateReviewRequest
}

// UpdateReviewRequest is the request body for changing a review.
type UpdateReviewRequest struct {
	Rating  *int    `json:"rating,omitempty" minimum:"1" maximum:"5" doc:"New rating"`
	Comment *string `json:"comment,omitempty" maxLength:"5000" doc:"New comment"`
}

// UpdateReviewInput wraps the update review request for Huma.
type UpdateReviewInput struct {
	ID   string `path:"id" doc:"Review ID"`
	Body UpdateReviewRequest
}

// ReviewIDInput identifies a review.
type ReviewIDInput struct {
	ID string `path:"id" doc:"Review ID"`
}

// ReviewOutput wraps a review for Huma.
type ReviewOutput struct {
	Body *domain.Review
}

// ReviewResultOutput wraps a review with its book's aggregates.
type ReviewResultOutput struct {
	Body *service.ReviewResult
}

// DeleteReviewResponse carries the book after the review is gone.
type DeleteReviewResponse struct {
	Message string       `json:"message" doc:"Result message"`
	Book    *domain.Book `json:"book" doc:"Book with refreshed rating"`
}

// DeleteReviewOutput wraps the delete review response for Huma.
type DeleteReviewOutput struct {
	Body DeleteReviewResponse
}

// === Handlers ===

func (s *Server) handleCreateReview(ctx context.Context, input *CreateReviewInput) (*ReviewResultOutput, error) {
	result, err := s.services.Reviews.Create(ctx, service.CreateReviewRequest{
		BookID:  input.Body.BookID,
		UserID:  input.Body.UserID,
		Rating:  input.Body.Rating,
		Comment: input.Body.Comment,
	})
	if err != nil {
		return nil, err
	}
	return &ReviewResultOutput{Body: result}, nil
}

func (s *Server) handleGetReview(ctx context.Context, input *ReviewIDInput) (*ReviewOutput, error) {
	review, err := s.services.Reviews.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &ReviewOutput{Body: review}, nil
}

func (s *Server) handleUpdateReview(ctx context.Context, input *UpdateReviewInput) (*ReviewResultOutput, error) {
	result, err := s.services.Reviews.Update(ctx, input.ID, service.UpdateReviewRequest{
		Rating:  input.Body.Rating,
		Comment: input.Body.Comment,
	})
	if err != nil {
		return nil, err
	}
	return &ReviewResultOutput{Body: result}, nil
}

func (s *Server) handleDeleteReview(ctx context.Context, input *ReviewIDInput) (*DeleteReviewOutput, error) {
	book, err := s.services.Reviews.Delete(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &DeleteReviewOutput{Body: DeleteReviewResponse{Message: "Review deleted", Book: book}}, nil
}
