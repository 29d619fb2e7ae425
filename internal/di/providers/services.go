package providers

import (
	"github.com/samber/do/v2"

	"github.com/pagetrail/pagetrail-server/internal/config"
	"github.com/pagetrail/pagetrail-server/internal/logger"
	"github.com/pagetrail/pagetrail-server/internal/service"
)

func rankingOptions(cfg *config.Config) service.RankingOptions {
	return service.RankingOptions{
		DefaultLimit: cfg.Rankings.DefaultLimit,
		MaxLimit:     cfg.Rankings.MaxLimit,
	}
}

// ProvideAggregateService provides the book aggregate maintainer.
func ProvideAggregateService(i do.Injector) (*service.AggregateService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAggregateService(storeHandle.Store, service.AggregateOptions{
		MaxAttempts:  cfg.Aggregates.MaxAttempts,
		RetryBackoff: cfg.Aggregates.RetryBackoff,
	}, log.Component("aggregates")), nil
}

// ProvideBookService provides the book service.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	aggregates := do.MustInvoke[*service.AggregateService](i)
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBookService(storeHandle.Store, aggregates, rankingOptions(cfg), log.Component("books")), nil
}

// ProvideReviewService provides the review service.
func ProvideReviewService(i do.Injector) (*service.ReviewService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	aggregates := do.MustInvoke[*service.AggregateService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewReviewService(storeHandle.Store, aggregates, log.Component("reviews")), nil
}

// ProvideReadingListService provides the reading list service.
func ProvideReadingListService(i do.Injector) (*service.ReadingListService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	aggregates := do.MustInvoke[*service.AggregateService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewReadingListService(storeHandle.Store, aggregates, log.Component("reading_list")), nil
}

// ProvideUserService provides the user service.
func ProvideUserService(i do.Injector) (*service.UserService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	aggregates := do.MustInvoke[*service.AggregateService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewUserService(storeHandle.Store, aggregates, log.Component("users")), nil
}

// ProvideCategoryService provides the category service.
func ProvideCategoryService(i do.Injector) (*service.CategoryService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	aggregates := do.MustInvoke[*service.AggregateService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCategoryService(storeHandle.Store, aggregates, log.Component("categories")), nil
}

// ProvideRankingService provides the ranking service.
func ProvideRankingService(i do.Injector) (*service.RankingService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewRankingService(storeHandle.Store, rankingOptions(cfg), log.Component("rankings")), nil
}
