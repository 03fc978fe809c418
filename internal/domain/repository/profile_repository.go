package repository

import (
	"context"
	"errors"

	"dubaivat/internal/domain/entity"

	"github.com/google/uuid"
)

var (
	// ErrProfileNotFound is returned when the owner has no profile of the requested kind.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrProfileAlreadyExists is returned when a create hits the unique owner constraint.
	ErrProfileAlreadyExists = errors.New("profile already exists for owner")
)

// BusinessProfileRepository defines persistence operations for business profiles.
// The store enforces at most one profile per owner.
type BusinessProfileRepository interface {
	FindByOwnerID(ctx context.Context, ownerID uuid.UUID) (*entity.BusinessProfile, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.BusinessProfile, error)

	// Create inserts a new profile. Returns ErrProfileAlreadyExists when the owner already has one.
	Create(ctx context.Context, profile *entity.BusinessProfile) error

	// Update saves the writable fields of an existing profile.
	Update(ctx context.Context, profile *entity.BusinessProfile) error
}

// IndividualProfileRepository defines persistence operations for individual profiles.
type IndividualProfileRepository interface {
	FindByOwnerID(ctx context.Context, ownerID uuid.UUID) (*entity.IndividualProfile, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.IndividualProfile, error)
	Create(ctx context.Context, profile *entity.IndividualProfile) error
	Update(ctx context.Context, profile *entity.IndividualProfile) error
}
