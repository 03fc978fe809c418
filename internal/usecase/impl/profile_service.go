// Package impl contains the application-specific business rules implementations.
package impl

import (
	"context"
	"log/slog"
	"time"

	"dubaivat/config"
	"dubaivat/internal/domain/entity"
	domainerrors "dubaivat/internal/domain/errors"
	"dubaivat/internal/domain/service"
	"dubaivat/internal/errors"
	"dubaivat/internal/usecase"
	"dubaivat/internal/util"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// profileOps binds the generic sync algorithm to one profile kind.
type profileOps[P any, D any] struct {
	kind   string
	get    func(ctx context.Context, ownerID uuid.UUID) (*P, error)
	create func(ctx context.Context, ownerID uuid.UUID, data D) (*P, error)
	update func(ctx context.Context, id uuid.UUID, data D) (*P, error)
	id     func(profile *P) uuid.UUID
}

// profileSyncService implements the ProfileSyncUsecase interface.
type profileSyncService struct {
	gateway         service.ProfileGateway
	validate        *validator.Validate
	fetchTimeout    time.Duration
	visibilityGrace time.Duration
	metrics         service.SyncMetrics
	logger          *slog.Logger

	business   profileOps[entity.BusinessProfile, entity.BusinessProfileData]
	individual profileOps[entity.IndividualProfile, entity.IndividualProfileData]
}

// NewProfileSyncService is the constructor for profileSyncService.
func NewProfileSyncService(
	gateway service.ProfileGateway,
	cfg *config.Config,
	metrics service.SyncMetrics,
	logger *slog.Logger,
) usecase.ProfileSyncUsecase {
	sessionCfg := cfg.Session
	if sessionCfg == nil {
		sessionCfg = config.DefaultSessionConfig()
	}

	return &profileSyncService{
		gateway:         gateway,
		validate:        util.NewValidator(),
		fetchTimeout:    sessionCfg.ProfileFetchTimeout,
		visibilityGrace: sessionCfg.VisibilityGrace,
		metrics:         metrics,
		logger:          logger,
		business: profileOps[entity.BusinessProfile, entity.BusinessProfileData]{
			kind:   "business",
			get:    gateway.GetProfile,
			create: gateway.CreateProfile,
			update: gateway.UpdateProfile,
			id:     func(p *entity.BusinessProfile) uuid.UUID { return p.ID },
		},
		individual: profileOps[entity.IndividualProfile, entity.IndividualProfileData]{
			kind:   "individual",
			get:    gateway.GetIndividualProfile,
			create: gateway.CreateIndividualProfile,
			update: gateway.UpdateIndividualProfile,
			id:     func(p *entity.IndividualProfile) uuid.UUID { return p.ID },
		},
	}
}

func (srv *profileSyncService) ResolveProfile(ctx context.Context, ownerID uuid.UUID) (*entity.BusinessProfile, bool) {
	return resolveProfile(ctx, srv, srv.business, ownerID)
}

func (srv *profileSyncService) FetchProfile(ctx context.Context, ownerID uuid.UUID) (*entity.BusinessProfile, error) {
	return fetchProfile(ctx, srv, srv.business, ownerID)
}

func (srv *profileSyncService) SaveProfile(
	ctx context.Context,
	ownerID uuid.UUID,
	data entity.BusinessProfileData,
	existingID *uuid.UUID,
) usecase.SaveResult[entity.BusinessProfile] {
	return saveProfile(ctx, srv, srv.business, ownerID, data, existingID)
}

func (srv *profileSyncService) ResolveIndividualProfile(ctx context.Context, ownerID uuid.UUID) (*entity.IndividualProfile, bool) {
	return resolveProfile(ctx, srv, srv.individual, ownerID)
}

func (srv *profileSyncService) FetchIndividualProfile(ctx context.Context, ownerID uuid.UUID) (*entity.IndividualProfile, error) {
	return fetchProfile(ctx, srv, srv.individual, ownerID)
}

func (srv *profileSyncService) SaveIndividualProfile(
	ctx context.Context,
	ownerID uuid.UUID,
	data entity.IndividualProfileData,
	existingID *uuid.UUID,
) usecase.SaveResult[entity.IndividualProfile] {
	return saveProfile(ctx, srv, srv.individual, ownerID, data, existingID)
}

// resolveProfile never fails: a failed or timed out read is reported as ok=false
// so the caller can keep whatever profile it already knows.
func resolveProfile[P, D any](ctx context.Context, srv *profileSyncService, ops profileOps[P, D], ownerID uuid.UUID) (*P, bool) {
	profile, err := fetchProfile(ctx, srv, ops, ownerID)
	if err != nil {
		srv.logger.Warn("Profile resolution failed",
			"kind", ops.kind,
			"ownerID", ownerID,
			"error", err,
		)

		return nil, false
	}

	return profile, true
}

func fetchProfile[P, D any](ctx context.Context, srv *profileSyncService, ops profileOps[P, D], ownerID uuid.UUID) (*P, error) {
	if ownerID == uuid.Nil {
		return nil, errors.Wrap(domainerrors.ErrNotAuthenticated, "no owner for profile fetch")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, srv.fetchTimeout)
	defer cancel()

	profile, err := ops.get(fetchCtx, ownerID)
	if err != nil {
		return nil, classifyGatewayError(err, "failed to fetch "+ops.kind+" profile")
	}

	return profile, nil
}

func saveProfile[P, D any](
	ctx context.Context,
	srv *profileSyncService,
	ops profileOps[P, D],
	ownerID uuid.UUID,
	data D,
	existingID *uuid.UUID,
) usecase.SaveResult[P] {
	if ownerID == uuid.Nil {
		return saveFailed[P](srv, ops.kind, usecase.SaveNotAuthenticated,
			errors.Wrap(domainerrors.ErrNotAuthenticated, "no owner for profile save"))
	}

	if err := srv.validate.Struct(data); err != nil {
		return saveFailed[P](srv, ops.kind, usecase.SaveValidationError,
			domainerrors.ErrValidationFailed.WithDetails(util.DescribeValidationError(err)))
	}

	var (
		saved *P
		err   error
	)
	if existingID != nil {
		srv.logger.Info("Updating profile", "kind", ops.kind, "ownerID", ownerID, "profileID", *existingID)
		saved, err = ops.update(ctx, *existingID, data)
	} else {
		srv.logger.Info("Creating profile", "kind", ops.kind, "ownerID", ownerID)
		saved, err = ops.create(ctx, ownerID, data)
		if errors.Is(err, domainerrors.ErrConflict) {
			saved, err = recoverFromConflict(ctx, srv, ops, ownerID, data)
		}
	}

	if err != nil {
		err = classifyGatewayError(err, "failed to save "+ops.kind+" profile")

		return saveFailed[P](srv, ops.kind, outcomeOf(err), err)
	}

	verified := verifyVisible(ctx, srv, ops, ownerID, saved)
	srv.metrics.RecordProfileSave(usecase.SaveOK.String())

	return usecase.SaveResult[P]{Outcome: usecase.SaveOK, Profile: verified}
}

// recoverFromConflict handles a create that lost a race with another client:
// the existing record is fetched and updated once with the caller's data.
func recoverFromConflict[P, D any](ctx context.Context, srv *profileSyncService, ops profileOps[P, D], ownerID uuid.UUID, data D) (*P, error) {
	srv.logger.Warn("Profile already exists, retrying as update", "kind", ops.kind, "ownerID", ownerID)

	existing, err := fetchProfile(ctx, srv, ops, ownerID)
	if err != nil {
		srv.metrics.RecordConflictRecovery(false)

		return nil, err
	}
	if existing == nil {
		srv.metrics.RecordConflictRecovery(false)

		return nil, domainerrors.ErrConflict.WithDetails("an existing profile is not visible yet, refresh and try again")
	}

	updated, err := ops.update(ctx, ops.id(existing), data)
	if err != nil {
		srv.metrics.RecordConflictRecovery(false)

		return nil, err
	}

	srv.metrics.RecordConflictRecovery(true)

	return updated, nil
}

// verifyVisible re-reads the profile after the grace period. A profile that is
// not yet readable is logged but the save still counts as successful.
func verifyVisible[P, D any](ctx context.Context, srv *profileSyncService, ops profileOps[P, D], ownerID uuid.UUID, saved *P) *P {
	if srv.visibilityGrace > 0 {
		timer := time.NewTimer(srv.visibilityGrace)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return saved
		case <-timer.C:
		}
	}

	visible, err := fetchProfile(ctx, srv, ops, ownerID)
	if err != nil || visible == nil {
		srv.logger.Warn("Saved profile is not visible yet",
			"kind", ops.kind,
			"ownerID", ownerID,
			"grace", util.FormatDuration(srv.visibilityGrace),
			"error", err,
		)

		return saved
	}

	return visible
}

func saveFailed[P any](srv *profileSyncService, kind string, outcome usecase.SaveOutcome, err error) usecase.SaveResult[P] {
	srv.logger.Warn("Profile save failed", "kind", kind, "outcome", outcome.String(), "error", err)
	srv.metrics.RecordProfileSave(outcome.String())

	return usecase.SaveResult[P]{Outcome: outcome, Err: err}
}

// classifyGatewayError keeps taxonomy errors as they are and maps everything
// else, timeouts included, to ErrUnreachable.
func classifyGatewayError(err error, message string) error {
	switch {
	case errors.Is(err, domainerrors.ErrNotAuthenticated),
		errors.Is(err, domainerrors.ErrValidationFailed),
		errors.Is(err, domainerrors.ErrConflict),
		errors.Is(err, domainerrors.ErrUnreachable):
		return errors.Wrap(err, message)
	default:
		return errors.Wrapf(domainerrors.ErrUnreachable, "%s: %v", message, err)
	}
}

func outcomeOf(err error) usecase.SaveOutcome {
	switch {
	case errors.Is(err, domainerrors.ErrNotAuthenticated):
		return usecase.SaveNotAuthenticated
	case errors.Is(err, domainerrors.ErrValidationFailed):
		return usecase.SaveValidationError
	case errors.Is(err, domainerrors.ErrConflict):
		return usecase.SaveConflict
	default:
		return usecase.SaveUnreachable
	}
}
