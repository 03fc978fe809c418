package postgres

import (
	"context"
	"testing"

	"dubaivat/internal/domain/entity"
	"dubaivat/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessProfileRepository_CreateAndFind(t *testing.T) {
	repo := NewBusinessProfileRepository(newTestDB(t))
	ctx := context.Background()
	ownerID := uuid.New()
	trn := "100123456700003"

	profile := &entity.BusinessProfile{OwnerID: ownerID, TaxRegistrationNumber: &trn}
	profile.Apply(entity.BusinessProfileData{BusinessName: "Acme Trading", TaxRegistrationNumber: &trn})
	require.NoError(t, repo.Create(ctx, profile))
	assert.NotEqual(t, uuid.Nil, profile.ID)

	found, err := repo.FindByOwnerID(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, profile.ID, found.ID)
	assert.Equal(t, "Acme Trading", found.BusinessName)
	assert.Equal(t, entity.VATFilingQuarterly, found.VATFilingPeriod)
	require.NotNil(t, found.TaxRegistrationNumber)
	assert.Equal(t, trn, *found.TaxRegistrationNumber)

	byID, err := repo.FindByID(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, ownerID, byID.OwnerID)
}

func TestBusinessProfileRepository_FindMissing(t *testing.T) {
	repo := NewBusinessProfileRepository(newTestDB(t))

	_, err := repo.FindByOwnerID(context.Background(), uuid.New())

	assert.True(t, errors.Is(err, repository.ErrProfileNotFound))
}

func TestBusinessProfileRepository_OneProfilePerOwner(t *testing.T) {
	repo := NewBusinessProfileRepository(newTestDB(t))
	ctx := context.Background()
	ownerID := uuid.New()

	require.NoError(t, repo.Create(ctx, &entity.BusinessProfile{OwnerID: ownerID, BusinessName: "First"}))
	err := repo.Create(ctx, &entity.BusinessProfile{OwnerID: ownerID, BusinessName: "Second"})

	assert.True(t, errors.Is(err, repository.ErrProfileAlreadyExists))
}

func TestBusinessProfileRepository_Update(t *testing.T) {
	repo := NewBusinessProfileRepository(newTestDB(t))
	ctx := context.Background()
	profile := &entity.BusinessProfile{OwnerID: uuid.New(), BusinessName: "Before", VATFilingPeriod: entity.VATFilingQuarterly}
	require.NoError(t, repo.Create(ctx, profile))

	profile.Apply(entity.BusinessProfileData{BusinessName: "After", VATFilingPeriod: entity.VATFilingMonthly, Phone: "+971500000000"})
	require.NoError(t, repo.Update(ctx, profile))

	found, err := repo.FindByID(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, "After", found.BusinessName)
	assert.Equal(t, entity.VATFilingMonthly, found.VATFilingPeriod)
	assert.Equal(t, "+971500000000", found.Phone)
}

func TestBusinessProfileRepository_UpdateMissing(t *testing.T) {
	repo := NewBusinessProfileRepository(newTestDB(t))

	err := repo.Update(context.Background(), &entity.BusinessProfile{ID: uuid.New(), BusinessName: "Ghost"})

	assert.True(t, errors.Is(err, repository.ErrProfileNotFound))
}

func TestIndividualProfileRepository_Lifecycle(t *testing.T) {
	repo := NewIndividualProfileRepository(newTestDB(t))
	ctx := context.Background()
	ownerID := uuid.New()

	_, err := repo.FindByOwnerID(ctx, ownerID)
	require.True(t, errors.Is(err, repository.ErrProfileNotFound))

	profile := &entity.IndividualProfile{OwnerID: ownerID, FullName: "Layla Hassan"}
	require.NoError(t, repo.Create(ctx, profile))

	err = repo.Create(ctx, &entity.IndividualProfile{OwnerID: ownerID, FullName: "Duplicate"})
	assert.True(t, errors.Is(err, repository.ErrProfileAlreadyExists))

	profile.Apply(entity.IndividualProfileData{FullName: "Layla H.", Phone: "+971"})
	require.NoError(t, repo.Update(ctx, profile))

	found, err := repo.FindByOwnerID(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, "Layla H.", found.FullName)
	assert.Equal(t, "+971", found.Phone)
}
