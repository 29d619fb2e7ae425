package api

import "github.com/pagetrail/pagetrail-server/internal/service"

// Services groups the business logic services used by the API server.
type Services struct {
	Aggregates  *service.AggregateService
	Books       *service.BookService
	Reviews     *service.ReviewService
	ReadingList *service.ReadingListService
	Users       *service.UserService
	Categories  *service.CategoryService
	Rankings    *service.RankingService
}
