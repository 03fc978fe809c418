package postgres

import (
	"context"
	"time"

	"dubaivat/internal/domain/entity"
	domainerrors "dubaivat/internal/domain/errors"
	"dubaivat/internal/domain/repository"
	"dubaivat/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// businessProfileRepository implements the repository.BusinessProfileRepository interface using GORM.
type businessProfileRepository struct {
	db *gorm.DB
}

// NewBusinessProfileRepository is the constructor for businessProfileRepository.
func NewBusinessProfileRepository(db *gorm.DB) repository.BusinessProfileRepository {
	return &businessProfileRepository{db: db}
}

func (repo *businessProfileRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID) (*entity.BusinessProfile, error) {
	return repo.findOne(ctx, "owner_id = ?", ownerID)
}

func (repo *businessProfileRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.BusinessProfile, error) {
	return repo.findOne(ctx, "id = ?", id)
}

func (repo *businessProfileRepository) findOne(ctx context.Context, query string, arg uuid.UUID) (*entity.BusinessProfile, error) {
	var profileM model.BusinessProfileModel
	if err := repo.db.WithContext(ctx).Where(query, arg).First(&profileM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrProfileNotFound
		}

		return nil, errors.Wrap(err, "failed to find business profile")
	}

	return toBusinessProfileDomain(&profileM), nil
}

// Create inserts the profile. The unique owner index rejects a second profile
// for the same owner with ErrProfileAlreadyExists.
func (repo *businessProfileRepository) Create(ctx context.Context, profile *entity.BusinessProfile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	profileM := fromBusinessProfileDomain(profile)

	if err := repo.db.WithContext(ctx).Create(profileM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrProfileAlreadyExists
		}
		if isNotNullConstraintViolation(err) || isCheckConstraintViolation(err) {
			return domainerrors.ErrValidationFailed.WithDetails("missing required business profile information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create business profile")
	}

	profile.CreatedAt = profileM.CreatedAt
	profile.UpdatedAt = profileM.UpdatedAt

	return nil
}

// Update saves the writable columns; the owner never changes.
func (repo *businessProfileRepository) Update(ctx context.Context, profile *entity.BusinessProfile) error {
	profileM := fromBusinessProfileDomain(profile)
	profileM.UpdatedAt = time.Now()

	result := repo.db.WithContext(ctx).
		Model(&model.BusinessProfileModel{}).
		Where("id = ?", profile.ID).
		Select("business_name", "tax_registration_number", "address", "phone", "email", "vat_filing_period", "updated_at").
		Updates(profileM)
	if result.Error != nil {
		if isNotNullConstraintViolation(result.Error) || isCheckConstraintViolation(result.Error) {
			return domainerrors.ErrValidationFailed.WithDetails("missing required business profile information")
		}

		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update business profile")
	}
	if result.RowsAffected == 0 {
		return repository.ErrProfileNotFound
	}

	profile.UpdatedAt = profileM.UpdatedAt

	return nil
}

// individualProfileRepository implements the repository.IndividualProfileRepository interface using GORM.
type individualProfileRepository struct {
	db *gorm.DB
}

// NewIndividualProfileRepository is the constructor for individualProfileRepository.
func NewIndividualProfileRepository(db *gorm.DB) repository.IndividualProfileRepository {
	return &individualProfileRepository{db: db}
}

func (repo *individualProfileRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID) (*entity.IndividualProfile, error) {
	return repo.findOne(ctx, "owner_id = ?", ownerID)
}

func (repo *individualProfileRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.IndividualProfile, error) {
	return repo.findOne(ctx, "id = ?", id)
}

func (repo *individualProfileRepository) findOne(ctx context.Context, query string, arg uuid.UUID) (*entity.IndividualProfile, error) {
	var profileM model.IndividualProfileModel
	if err := repo.db.WithContext(ctx).Where(query, arg).First(&profileM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrProfileNotFound
		}

		return nil, errors.Wrap(err, "failed to find individual profile")
	}

	return toIndividualProfileDomain(&profileM), nil
}

func (repo *individualProfileRepository) Create(ctx context.Context, profile *entity.IndividualProfile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	profileM := fromIndividualProfileDomain(profile)

	if err := repo.db.WithContext(ctx).Create(profileM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrProfileAlreadyExists
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create individual profile")
	}

	profile.CreatedAt = profileM.CreatedAt
	profile.UpdatedAt = profileM.UpdatedAt

	return nil
}

func (repo *individualProfileRepository) Update(ctx context.Context, profile *entity.IndividualProfile) error {
	profileM := fromIndividualProfileDomain(profile)
	profileM.UpdatedAt = time.Now()

	result := repo.db.WithContext(ctx).
		Model(&model.IndividualProfileModel{}).
		Where("id = ?", profile.ID).
		Select("full_name", "phone", "tax_registration_number", "updated_at").
		Updates(profileM)
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update individual profile")
	}
	if result.RowsAffected == 0 {
		return repository.ErrProfileNotFound
	}

	profile.UpdatedAt = profileM.UpdatedAt

	return nil
}

func toBusinessProfileDomain(data *model.BusinessProfileModel) *entity.BusinessProfile {
	return &entity.BusinessProfile{
		ID:                    data.ID,
		OwnerID:               data.OwnerID,
		BusinessName:          data.BusinessName,
		TaxRegistrationNumber: data.TaxRegistrationNumber,
		Address:               data.Address,
		Phone:                 data.Phone,
		Email:                 data.Email,
		VATFilingPeriod:       entity.VATFilingPeriod(data.VATFilingPeriod),
		CreatedAt:             data.CreatedAt,
		UpdatedAt:             data.UpdatedAt,
	}
}

func fromBusinessProfileDomain(data *entity.BusinessProfile) *model.BusinessProfileModel {
	period := data.VATFilingPeriod
	if period == "" {
		period = entity.VATFilingQuarterly
	}

	return &model.BusinessProfileModel{
		ID:                    data.ID,
		OwnerID:               data.OwnerID,
		BusinessName:          data.BusinessName,
		TaxRegistrationNumber: data.TaxRegistrationNumber,
		Address:               data.Address,
		Phone:                 data.Phone,
		Email:                 data.Email,
		VATFilingPeriod:       string(period),
		CreatedAt:             data.CreatedAt,
		UpdatedAt:             data.UpdatedAt,
	}
}

func toIndividualProfileDomain(data *model.IndividualProfileModel) *entity.IndividualProfile {
	return &entity.IndividualProfile{
		ID:                    data.ID,
		OwnerID:               data.OwnerID,
		FullName:              data.FullName,
		Phone:                 data.Phone,
		TaxRegistrationNumber: data.TaxRegistrationNumber,
		CreatedAt:             data.CreatedAt,
		UpdatedAt:             data.UpdatedAt,
	}
}

func fromIndividualProfileDomain(data *entity.IndividualProfile) *model.IndividualProfileModel {
	return &model.IndividualProfileModel{
		ID:                    data.ID,
		OwnerID:               data.OwnerID,
		FullName:              data.FullName,
		Phone:                 data.Phone,
		TaxRegistrationNumber: data.TaxRegistrationNumber,
		CreatedAt:             data.CreatedAt,
		UpdatedAt:             data.UpdatedAt,
	}
}
