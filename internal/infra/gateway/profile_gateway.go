// Package gateway adapts the persistence layer to the remote profile gateway
// contract consumed by the profile sync coordinator.
package gateway

import (
	"context"
	"log/slog"

	"dubaivat/internal/domain/entity"
	domainerrors "dubaivat/internal/domain/errors"
	"dubaivat/internal/domain/repository"
	"dubaivat/internal/domain/service"
	"dubaivat/internal/errors"

	"github.com/google/uuid"
)

// profileGateway implements service.ProfileGateway on top of the transaction manager.
type profileGateway struct {
	txManager repository.TransactionManager
	logger    *slog.Logger
}

// NewProfileGateway is the constructor for profileGateway.
func NewProfileGateway(txManager repository.TransactionManager, logger *slog.Logger) service.ProfileGateway {
	return &profileGateway{
		txManager: txManager,
		logger:    logger,
	}
}

func (g *profileGateway) GetProfile(ctx context.Context, ownerID uuid.UUID) (*entity.BusinessProfile, error) {
	var profile *entity.BusinessProfile

	err := g.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		found, err := repoFactory.BusinessProfileRepo().FindByOwnerID(ctx, ownerID)
		if err != nil {
			return err
		}
		profile = found

		return nil
	})
	if errors.Is(err, repository.ErrProfileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "failed to get business profile")
	}

	return profile, nil
}

func (g *profileGateway) CreateProfile(ctx context.Context, ownerID uuid.UUID, data entity.BusinessProfileData) (*entity.BusinessProfile, error) {
	profile := &entity.BusinessProfile{OwnerID: ownerID}
	profile.Apply(data)

	err := g.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return repoFactory.BusinessProfileRepo().Create(ctx, profile)
	})
	if err != nil {
		return nil, translate(err, "failed to create business profile")
	}

	g.logger.Debug("Business profile created", "ownerID", ownerID, "profileID", profile.ID)

	return profile, nil
}

func (g *profileGateway) UpdateProfile(ctx context.Context, id uuid.UUID, data entity.BusinessProfileData) (*entity.BusinessProfile, error) {
	var profile *entity.BusinessProfile

	err := g.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		repo := repoFactory.BusinessProfileRepo()

		existing, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		existing.Apply(data)
		if err := repo.Update(ctx, existing); err != nil {
			return err
		}
		profile = existing

		return nil
	})
	if err != nil {
		return nil, translate(err, "failed to update business profile")
	}

	return profile, nil
}

func (g *profileGateway) GetIndividualProfile(ctx context.Context, ownerID uuid.UUID) (*entity.IndividualProfile, error) {
	var profile *entity.IndividualProfile

	err := g.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		found, err := repoFactory.IndividualProfileRepo().FindByOwnerID(ctx, ownerID)
		if err != nil {
			return err
		}
		profile = found

		return nil
	})
	if errors.Is(err, repository.ErrProfileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "failed to get individual profile")
	}

	return profile, nil
}

func (g *profileGateway) CreateIndividualProfile(ctx context.Context, ownerID uuid.UUID, data entity.IndividualProfileData) (*entity.IndividualProfile, error) {
	profile := &entity.IndividualProfile{OwnerID: ownerID}
	profile.Apply(data)

	err := g.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return repoFactory.IndividualProfileRepo().Create(ctx, profile)
	})
	if err != nil {
		return nil, translate(err, "failed to create individual profile")
	}

	return profile, nil
}

func (g *profileGateway) UpdateIndividualProfile(ctx context.Context, id uuid.UUID, data entity.IndividualProfileData) (*entity.IndividualProfile, error) {
	var profile *entity.IndividualProfile

	err := g.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		repo := repoFactory.IndividualProfileRepo()

		existing, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		existing.Apply(data)
		if err := repo.Update(ctx, existing); err != nil {
			return err
		}
		profile = existing

		return nil
	})
	if err != nil {
		return nil, translate(err, "failed to update individual profile")
	}

	return profile, nil
}

// translate maps repository errors onto the session error taxonomy.
func translate(err error, message string) error {
	switch {
	case errors.Is(err, repository.ErrProfileAlreadyExists):
		return errors.Wrap(domainerrors.ErrConflict, message)
	case errors.Is(err, repository.ErrProfileNotFound):
		return errors.Wrap(domainerrors.ErrNotFound, message)
	case errors.Is(err, domainerrors.ErrValidationFailed):
		return errors.Wrap(err, message)
	case errors.IsTimeout(err):
		return errors.Wrapf(domainerrors.ErrUnreachable, "%s: timed out: %v", message, err)
	default:
		// Any other store failure looks the same as a network failure to callers.
		return errors.Wrapf(domainerrors.ErrUnreachable, "%s: %v", message, err)
	}
}
