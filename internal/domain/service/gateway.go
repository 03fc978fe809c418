package service

import (
	"context"

	"dubaivat/internal/domain/entity"

	"github.com/google/uuid"
)

// AuthEventHandler receives provider events in emission order.
type AuthEventHandler func(event entity.AuthEvent)

// IdentityProvider is the identity half of the remote gateway. Every call may
// block on the network and may fail.
type IdentityProvider interface {
	// GetSession returns the current session, or nil when nobody is signed in.
	GetSession(ctx context.Context) (*entity.Session, error)

	// OnAuthEvent registers a handler and returns a function that removes it.
	OnAuthEvent(handler AuthEventHandler) (unsubscribe func())

	SignIn(ctx context.Context, email, password string) (*entity.Session, error)
	SignUp(ctx context.Context, email, password string, meta entity.UserMetadata) (*entity.Session, error)
	SignOut(ctx context.Context) error

	// UpdateUser replaces the signed-in account's metadata and emits USER_UPDATED.
	UpdateUser(ctx context.Context, meta entity.UserMetadata) (*entity.Session, error)
}

// ProfileGateway is the profile half of the remote gateway.
//
// Reads return (nil, nil) when the owner has no profile. Creates return an
// error matching domainerrors.ErrConflict when the owner already has one, and
// any call may return an error matching domainerrors.ErrUnreachable.
type ProfileGateway interface {
	GetProfile(ctx context.Context, ownerID uuid.UUID) (*entity.BusinessProfile, error)
	CreateProfile(ctx context.Context, ownerID uuid.UUID, data entity.BusinessProfileData) (*entity.BusinessProfile, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, data entity.BusinessProfileData) (*entity.BusinessProfile, error)

	GetIndividualProfile(ctx context.Context, ownerID uuid.UUID) (*entity.IndividualProfile, error)
	CreateIndividualProfile(ctx context.Context, ownerID uuid.UUID, data entity.IndividualProfileData) (*entity.IndividualProfile, error)
	UpdateIndividualProfile(ctx context.Context, id uuid.UUID, data entity.IndividualProfileData) (*entity.IndividualProfile, error)
}
