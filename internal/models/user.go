package models

import (
	"time"

	"github.com/google/uuid"
)

// Role selects how the dashboard presents the same aggregated data.
type Role string

const (
	RoleIndividual Role = "individual"
	RoleStudent    Role = "student"
	RoleBusiness   Role = "business"
)

// Roles lists every supported role.
var Roles = []Role{RoleIndividual, RoleStudent, RoleBusiness}

// User represents a registered user account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string `bson:"_id" json:"id"`

	// Email is the user's email address (unique, used for login).
	Email string `bson:"email" json:"email"`

	// Name is the display name of the user.
	Name string `bson:"name" json:"name"`

	// PasswordHash is the bcrypt hash of the password. Never sent to clients.
	PasswordHash string `bson:"passwordHash" json:"-"`

	// Role drives the role-conditional dashboard.
	Role Role `bson:"role" json:"role"`

	// Currency is the ISO 4217 code used to format amounts (e.g. "INR").
	Currency string `bson:"currency" json:"currency"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewUser creates a new User with a generated ID and timestamps.
func NewUser(email, name, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Role:         RoleIndividual,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Validate checks the user profile fields.
func (u *User) Validate() error {
	if err := required("email", u.Email); err != nil {
		return err
	}
	if err := required("name", u.Name); err != nil {
		return err
	}
	if u.Role != "" {
		if err := oneOf("role", u.Role, Roles); err != nil {
			return err
		}
	}
	if u.Currency != "" && len(u.Currency) != 3 {
		return invalid("currency", "must be a 3-letter ISO code")
	}
	return nil
}
