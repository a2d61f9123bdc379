package auth

import (
	"context"

	"github.com/mmynk/finwise/internal/models"
)

// Authenticator owns credential handling. AuthService only deals with users
// and tokens, so another credential scheme can replace the password one.
type Authenticator interface {
	// Register stores a new user. It fails with ErrEmailExists or
	// ErrWeakPassword.
	Register(ctx context.Context, email, name, credential string) (*models.User, error)

	// Authenticate returns the user whose credential matches, or
	// ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ChangeCredential replaces the credential of an existing user after
	// verifying the current one.
	ChangeCredential(ctx context.Context, userID, current, next string) error

	// ValidateCredential rejects credentials too weak to store.
	ValidateCredential(credential string) error
}
