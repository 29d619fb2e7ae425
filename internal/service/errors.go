package service

import (
	"context"
	"errors"

	"github.com/pagetrail/pagetrail-server/internal/domain"
	domainerrors "github.com/pagetrail/pagetrail-server/internal/errors"
	"github.com/pagetrail/pagetrail-server/internal/store"
)

// translate maps store and domain errors onto the domain error taxonomy.
// Context errors and errors that already carry a domain code pass through.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var storeErr *store.Error
	message := "store unavailable"
	if errors.As(err, &storeErr) {
		message = storeErr.Message
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.Wrap(err, domainerrors.CodeNotFound, message)
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.Wrap(err, domainerrors.CodeAlreadyExists, message)
	case errors.Is(err, store.ErrInvalidInput):
		return domainerrors.Wrap(err, domainerrors.CodeValidation, message)
	case errors.Is(err, store.ErrConflict):
		return domainerrors.Wrap(err, domainerrors.CodeConflict, message)
	case isDomainInvariant(err):
		return domainerrors.Wrap(err, domainerrors.CodeValidation, err.Error())
	default:
		return domainerrors.Wrap(err, domainerrors.CodeStoreUnavailable, "store unavailable")
	}
}

func isDomainInvariant(err error) bool {
	for _, target := range []error{
		domain.ErrTitleRequired,
		domain.ErrCategoryNameRequired,
		domain.ErrInvalidRating,
		domain.ErrInvalidStatus,
		domain.ErrCompletedWithoutFinish,
		domain.ErrFinishBeforeStart,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
