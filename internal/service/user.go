package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pagetrail/pagetrail-server/internal/domain"
	"github.com/pagetrail/pagetrail-server/internal/id"
	"github.com/pagetrail/pagetrail-server/internal/store"
	"github.com/pagetrail/pagetrail-server/internal/validation"
)

// UserService manages reader accounts.
type UserService struct {
	store      store.Store
	aggregates *AggregateService
	logger     *slog.Logger
	validator  *validation.Validator
}

// NewUserService creates a new user service. Writes share the conflict
// retry of aggregates.
func NewUserService(store store.Store, aggregates *AggregateService, logger *slog.Logger) *UserService {
	return &UserService{
		store:      store,
		aggregates: aggregates,
		logger:     logger,
		validator:  validation.New(),
	}
}

// CreateUserRequest contains fields for creating a user.
type CreateUserRequest struct {
	Username string  `json:"username" validate:"required,min=2,max=50"`
	Email    string  `json:"email" validate:"required,email"`
	Picture  *string `json:"picture" validate:"omitempty,url"`
}

// Create registers a user. Username and email must be unused.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*domain.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:        userID,
		Username:  strings.TrimSpace(req.Username),
		Email:     strings.TrimSpace(req.Email),
		Picture:   req.Picture,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.aggregates.Write(ctx, OpUserWrite, func(tx store.Queries) error {
		return tx.CreateUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user created", "user_id", userID, "username", user.Username)
	return user, nil
}

// Get returns a live user by ID.
func (s *UserService) Get(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}

// List returns every live user ordered by username.
func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, translate(err)
	}
	if users == nil {
		users = []*domain.User{}
	}
	return users, nil
}

// UpdateUserRequest replaces a user's profile. A nil Picture clears it.
type UpdateUserRequest struct {
	Username string  `json:"username" validate:"required,min=2,max=50"`
	Email    string  `json:"email" validate:"required,email"`
	Picture  *string `json:"picture" validate:"omitempty,url"`
}

// Update replaces a live user's username, email and picture. The new
// username and email must not belong to another live user.
func (s *UserService) Update(ctx context.Context, userID string, req UpdateUserRequest) (*domain.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var user *domain.User
	err := s.aggregates.Write(ctx, OpUserWrite, func(tx store.Queries) error {
		u, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		u.Username = strings.TrimSpace(req.Username)
		u.Email = strings.TrimSpace(req.Email)
		u.Picture = req.Picture
		u.UpdatedAt = time.Now()
		if err := tx.UpdateUser(ctx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user updated", "user_id", userID, "username", user.Username)
	return user, nil
}

// Delete soft-deletes a user. Their reviews stay, so book aggregates are
// unchanged; rankings show them as "Unknown".
func (s *UserService) Delete(ctx context.Context, userID string) error {
	err := s.aggregates.Write(ctx, OpUserWrite, func(tx store.Queries) error {
		return tx.SoftDeleteUser(ctx, userID, time.Now())
	})
	if err != nil {
		return err
	}
	s.logger.Info("user deleted", "user_id", userID)
	return nil
}
