// Package usecase contains the application-specific business rules.
package usecase

import (
	"context"

	"dubaivat/internal/domain/entity"

	"github.com/google/uuid"
)

// SaveOutcome tags the result of a profile save.
type SaveOutcome int

const (
	SaveOK SaveOutcome = iota
	SaveNotAuthenticated
	SaveValidationError
	SaveConflict
	SaveUnreachable
)

func (o SaveOutcome) String() string {
	switch o {
	case SaveOK:
		return "ok"
	case SaveNotAuthenticated:
		return "not_authenticated"
	case SaveValidationError:
		return "validation_error"
	case SaveConflict:
		return "conflict"
	case SaveUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// SaveResult is the tagged outcome of a profile save. Profile is set only for
// SaveOK and Err only for the other outcomes.
type SaveResult[P any] struct {
	Outcome SaveOutcome
	Profile *P
	Err     error
}

// OK reports whether the save succeeded.
func (r SaveResult[P]) OK() bool {
	return r.Outcome == SaveOK
}

// ProfileSyncUsecase fetches, creates and updates the profile of an owner.
type ProfileSyncUsecase interface {
	// ResolveProfile reads the business profile within the fetch timeout. ok is
	// false when the read failed or timed out; a nil profile with ok=true means
	// the owner definitely has none.
	ResolveProfile(ctx context.Context, ownerID uuid.UUID) (profile *entity.BusinessProfile, ok bool)

	// FetchProfile is ResolveProfile with the failure surfaced as an error.
	FetchProfile(ctx context.Context, ownerID uuid.UUID) (*entity.BusinessProfile, error)

	// SaveProfile updates existingID when given, otherwise creates the profile,
	// absorbing a duplicate-create race with one fetch-then-update retry.
	SaveProfile(ctx context.Context, ownerID uuid.UUID, data entity.BusinessProfileData, existingID *uuid.UUID) SaveResult[entity.BusinessProfile]

	ResolveIndividualProfile(ctx context.Context, ownerID uuid.UUID) (profile *entity.IndividualProfile, ok bool)
	FetchIndividualProfile(ctx context.Context, ownerID uuid.UUID) (*entity.IndividualProfile, error)
	SaveIndividualProfile(ctx context.Context, ownerID uuid.UUID, data entity.IndividualProfileData, existingID *uuid.UUID) SaveResult[entity.IndividualProfile]
}
