// Package user persists the local account records created by the identity
// exchange. Accounts are created once, on first successful signup, and are
// immutable thereafter as far as the authentication core is concerned.
package user

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrSubjectExists is returned when a user already exists for the
	// external subject id.
	ErrSubjectExists = errors.New("subject already registered")
)

// User is a local account keyed to a verified external provider subject.
type User struct {
	ID                string
	ExternalSubjectID string
	DisplayName       string
	Email             string
	CreatedAt         time.Time
}

// Repository defines the interface for user account persistence.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetBySubject(ctx context.Context, subject string) (*User, error)
}
