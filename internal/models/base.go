package models

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Base holds the fields shared by every user-owned record.
type Base struct {
	// ID is the unique identifier for the record (UUID format).
	ID string `bson:"_id" json:"id"`

	// UserID is the owner of the record.
	UserID string `bson:"userId" json:"userId"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Meta returns the shared record fields.
func (b *Base) Meta() *Base { return b }

// Document is implemented by every user-owned record.
type Document interface {
	Meta() *Base
	Validate() error
}

// ValidationError reports a record field that violates its schema.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(field, "is required")
	}
	return nil
}

func oneOf[T ~string](field string, value T, allowed []T) error {
	if !slices.Contains(allowed, value) {
		names := make([]string, len(allowed))
		for i, a := range allowed {
			names[i] = string(a)
		}
		return invalid(field, "must be one of: %s", strings.Join(names, ", "))
	}
	return nil
}

func nonNegative(field string, value float64) error {
	if value < 0 {
		return invalid(field, "must not be negative")
	}
	return nil
}

func positive(field string, value float64) error {
	if value <= 0 {
		return invalid(field, "must be greater than zero")
	}
	return nil
}
