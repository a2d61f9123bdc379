package service

import (
	"context"
	"strings"

	"github.com/mmynk/finwise/internal/models"
	"github.com/mmynk/finwise/internal/storage"
)

// UserService reads and edits user profiles.
type UserService struct {
	store storage.Store
	now   Clock
}

// ProfileUpdate holds the editable profile fields. Nil fields are unchanged.
type ProfileUpdate struct {
	Name     *string      `json:"name"`
	Role     *models.Role `json:"role"`
	Currency *string      `json:"currency"`
}

// Get returns the user.
func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	return s.store.GetUserByID(ctx, userID)
}

// UpdateProfile applies the non-nil fields of update.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		user.Name = strings.TrimSpace(*update.Name)
	}
	if update.Role != nil {
		user.Role = *update.Role
	}
	if update.Currency != nil {
		user.Currency = strings.ToUpper(strings.TrimSpace(*update.Currency))
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	user.UpdatedAt = s.now()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
