package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pagetrail/pagetrail-server/internal/domain"
	"github.com/pagetrail/pagetrail-server/internal/service"
)

func (s *Server) registerReadingListRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "addToReadingList",
		Method:        http.MethodPost,
		Path:          "/api/v1/readings",
		Summary:       "Add to reading list",
		Description:   "Adds a book to a user's reading list and counts it on the book",
		Tags:          []string{"Reading List"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddReading)

	huma.Register(s.api, huma.Operation{
		OperationID: "listReadings",
		Method:      http.MethodGet,
		Path:        "/api/v1/readings",
		Summary:     "List all reading-list entries",
		Tags:        []string{"Reading List"},
	}, s.handleListReadings)

	huma.Register(s.api, huma.Operation{
		OperationID: "listUserReadings",
		Method:      http.MethodGet,
		Path:        "/api/v1/readings/{userID}",
		Summary:     "List a user's reading list",
		Tags:        []string{"Reading List"},
	}, s.handleListUserReadings)

	huma.Register(s.api, huma.Operation{
		OperationID: "getReading",
		Method:      http.MethodGet,
		Path:        "/api/v1/readings/{userID}/{bookID}",
		Summary:     "Get reading-list entry",
		Tags:        []string{"Reading List"},
	}, s.handleGetReading)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateReading",
		Method:      http.MethodPut,
		Path:        "/api/v1/readings/{userID}/{bookID}",
		Summary:     "Update reading-list entry",
		Description: "Replaces status and dates. Completed entries need a finish date no earlier than the start.",
		Tags:        []string{"Reading List"},
	}, s.handleUpdateReading)

	huma.Register(s.api, huma.Operation{
		OperationID: "startReading",
		Method:      http.MethodPatch,
		Path:        "/api/v1/readings/{userID}/{bookID}/start",
		Summary:     "Start reading",
		Description: "Sets status to reading and the start date to now",
		Tags:        []string{"Reading List"},
	}, s.handleStartReading)

	huma.Register(s.api, huma.Operation{
		OperationID: "finishReading",
		Method:      http.MethodPatch,
		Path:        "/api/v1/readings/{userID}/{bookID}/finish",
		Summary:     "Finish reading",
		Description: "Sets status to completed and the finish date to now",
		Tags:        []string{"Reading List"},
	}, s.handleFinishReading)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteReading",
		Method:      http.MethodDelete,
		Path:        "/api/v1/readings/{userID}/{bookID}",
		Summary:     "Remove from reading list",
		Description: "Removes the entry. The book's added_to_list_count is not decremented.",
		Tags:        []string{"Reading List"},
	}, s.handleDeleteReading)
}

// === DTOs ===

// AddReadingRequest is the request body for adding a book to a reading list.
type AddReadingRequest struct {
	UserID     string     `json:"user_id" minLength:"1" doc:"List owner"`
	BookID     string     `json:"book_id" minLength:"1" doc:"Listed book"`
	Status     string     `json:"status,omitempty" enum:"want_to_read,reading,completed" doc:"Defaults to want_to_read"`
	StartDate  *time.Time `json:"start_date,omitempty" doc:"When reading started"`
	FinishDate *time.Time `json:"finish_date,omitempty" doc:"When reading finished"`
}

// AddReadingInput wraps the add request for Huma.
type AddReadingInput struct {
	Body AddReadingRequest
}

// UpdateReadingRequest is the request body for replacing an entry's state.
type UpdateReadingRequest struct {
	Status     string     `json:"status" enum:"want_to_read,reading,completed" doc:"Reading status"`
	StartDate  *time.Time `json:"start_date,omitempty" doc:"When reading started"`
	FinishDate *time.Time `json:"finish_date,omitempty" doc:"When reading finished"`
}

// UpdateReadingInput wraps the update request for Huma.
type UpdateReadingInput struct {
	UserID string `path:"userID" doc:"List owner"`
	BookID string `path:"bookID" doc:"Listed book"`
	Body   UpdateReadingRequest
}

// ReadingKeyInput identifies a reading-list entry.
type ReadingKeyInput struct {
	UserID string `path:"userID" doc:"List owner"`
	BookID string `path:"bookID" doc:"Listed book"`
}

// UserReadingsInput identifies a user's reading list.
type UserReadingsInput struct {
	UserID string `path:"userID" doc:"List owner"`
}

// ReadingOutput wraps an entry for Huma.
type ReadingOutput struct {
	Body *domain.ReadingListEntry
}

// ReadingsResponse contains reading-list entries.
type ReadingsResponse struct {
	Entries []*domain.ReadingListEntry `json:"entries" doc:"Reading-list entries"`
}

// ReadingsOutput wraps entries for Huma.
type ReadingsOutput struct {
	Body ReadingsResponse
}

// === Handlers ===

func (s *Server) handleAddReading(ctx context.Context, input *AddReadingInput) (*ReadingOutput, error) {
	entry, err := s.services.ReadingList.Add(ctx, service.AddReadingListRequest{
		UserID:     input.Body.UserID,
		BookID:     input.Body.BookID,
		Status:     input.Body.Status,
		StartDate:  input.Body.StartDate,
		FinishDate: input.Body.FinishDate,
	})
	if err != nil {
		return nil, err
	}
	return &ReadingOutput{Body: entry}, nil
}

func (s *Server) handleListReadings(ctx context.Context, _ *struct{}) (*ReadingsOutput, error) {
	entries, err := s.services.ReadingList.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return &ReadingsOutput{Body: ReadingsResponse{Entries: entries}}, nil
}

func (s *Server) handleListUserReadings(ctx context.Context, input *UserReadingsInput) (*ReadingsOutput, error) {
	entries, err := s.services.ReadingList.ListByUser(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	return &ReadingsOutput{Body: ReadingsResponse{Entries: entries}}, nil
}

func (s *Server) handleGetReading(ctx context.Context, input *ReadingKeyInput) (*ReadingOutput, error) {
	entry, err := s.services.ReadingList.Get(ctx, input.UserID, input.BookID)
	if err != nil {
		return nil, err
	}
	return &ReadingOutput{Body: entry}, nil
}

func (s *Server) handleUpdateReading(ctx context.Context, input *UpdateReadingInput) (*ReadingOutput, error) {
	entry, err := s.services.ReadingList.Update(ctx, input.UserID, input.BookID, service.UpdateReadingListRequest{
		Status:     input.Body.Status,
		StartDate:  input.Body.StartDate,
		FinishDate: input.Body.FinishDate,
	})
	if err != nil {
		return nil, err
	}
	return &ReadingOutput{Body: entry}, nil
}

func (s *Server) handleStartReading(ctx context.Context, input *ReadingKeyInput) (*ReadingOutput, error) {
	entry, err := s.services.ReadingList.StartReading(ctx, input.UserID, input.BookID)
	if err != nil {
		return nil, err
	}
	return &ReadingOutput{Body: entry}, nil
}

func (s *Server) handleFinishReading(ctx context.Context, input *ReadingKeyInput) (*ReadingOutput, error) {
	entry, err := s.services.ReadingList.FinishReading(ctx, input.UserID, input.BookID)
	if err != nil {
		return nil, err
	}
	return &ReadingOutput{Body: entry}, nil
}

func (s *Server) handleDeleteReading(ctx context.Context, input *ReadingKeyInput) (*MessageOutput, error) {
	if err := s.services.ReadingList.Delete(ctx, input.UserID, input.BookID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Removed from reading list"}}, nil
}
