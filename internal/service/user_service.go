package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/AdamBeresnev/cricket-live/internal/store"
	users "github.com/AdamBeresnev/cricket-live/internal/user"
	"github.com/google/uuid"
)

// UserService keeps the local profile of token subjects.
type UserService struct {
	users *store.UserStore
}

func NewUserService(users *store.UserStore) *UserService {
	return &UserService{users: users}
}

type ProfileInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// RegisterProfile stores the profile for a subject seen for the first time.
// An existing profile is returned unchanged and created is false.
func (s *UserService) RegisterProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (user *users.User, created bool, err error) {
	existing, err := s.users.GetUser(ctx, userID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to get user: %w", err)
	}

	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, false, fmt.Errorf("%w: username is required", ErrValidation)
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(in.Email))
	if err != nil {
		return nil, false, fmt.Errorf("%w: email is invalid", ErrValidation)
	}

	user = &users.User{ID: userID, Username: username, Email: addr.Address, CreatedAt: now()}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, false, ErrEmailTaken
		}
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}
	return user, true, nil
}
