// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"
	"time"

	"dubaivat/internal/domain/entity"

	"github.com/google/uuid"
)

var (
	// ErrAccountNotFound is returned when no account matches the lookup.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountEmailTaken is returned when an account with the same email already exists.
	ErrAccountEmailTaken = errors.New("account email already taken")
)

// Account is the credential record kept by the local identity provider.
type Account struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Metadata     entity.UserMetadata
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccountRepository defines persistence operations for provider accounts.
type AccountRepository interface {
	// FindByID retrieves an account by its unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// FindByEmail retrieves an account by its (case-insensitive) email.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// Create persists a new account. Returns ErrAccountEmailTaken on a duplicate email.
	Create(ctx context.Context, account *Account) error

	// UpdateMetadata replaces the metadata of an existing account.
	UpdateMetadata(ctx context.Context, id uuid.UUID, meta entity.UserMetadata) error
}
