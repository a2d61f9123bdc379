package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/mmynk/finwise/internal/auth"
	"github.com/mmynk/finwise/internal/models"
	"github.com/mmynk/finwise/internal/storage"
)

// AuthService registers users and issues token pairs.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	users         storage.UserStore
	logger        *slog.Logger
}

// Session is returned by register, login and refresh.
type Session struct {
	User *models.User `json:"user"`
	*auth.TokenPair
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, users storage.UserStore, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		users:         users,
		logger:        logger,
	}
}

// Register creates a new user account. An empty role means individual.
func (s *AuthService) Register(ctx context.Context, email, name, password string, role models.Role) (*Session, error) {
	s.logger.Info("Register request", "email", email)

	if strings.TrimSpace(email) == "" || !strings.Contains(email, "@") {
		return nil, invalid("email", "must be a valid email address")
	}
	if strings.TrimSpace(name) == "" {
		return nil, invalid("name", "is required")
	}
	if role != "" && !slices.Contains(models.Roles, role) {
		return nil, invalid("role", "must be one of: individual, student, business")
	}

	user, err := s.authenticator.Register(ctx, email, name, password)
	if err != nil {
		s.logger.Warn("Registration failed", "email", email, "error", err)
		return nil, err
	}

	if role != "" && role != user.Role {
		user.Role = role
		if err := s.users.UpdateUser(ctx, user); err != nil {
			return nil, err
		}
	}

	s.logger.Info("User registered successfully", "user_id", user.ID, "email", user.Email)
	return s.session(user)
}

// Login authenticates a user and returns a fresh token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, auth.ErrInvalidCredentials
	}

	user, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		s.logger.Warn("Login failed", "email", email, "error", err)
		return nil, auth.ErrInvalidCredentials
	}

	s.logger.Info("User logged in successfully", "user_id", user.ID)
	return s.session(user)
}

// Refresh exchanges a valid refresh token for a new pair. The user must
// still exist.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.jwtManager.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}
	return s.session(user)
}

// ChangePassword replaces the user's password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if err := s.authenticator.ChangeCredential(ctx, userID, current, next); err != nil {
		s.logger.Warn("Password change failed", "user_id", userID, "error", err)
		return err
	}
	s.logger.Info("Password changed", "user_id", userID)
	return nil
}

func (s *AuthService) session(user *models.User) (*Session, error) {
	pair, err := s.jwtManager.GeneratePair(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, err
	}
	return &Session{User: user, TokenPair: pair}, nil
}
