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

func TestAccountRepository_CreateAndFind(t *testing.T) {
	repo := NewAccountRepository(newTestDB(t))
	ctx := context.Background()

	account := &repository.Account{
		Email:        "Owner@Acme.ae ",
		PasswordHash: "hash",
		Metadata:     entity.UserMetadata{DisplayName: "Owner", AccountType: entity.AccountTypeIndividual},
	}
	require.NoError(t, repo.Create(ctx, account))
	assert.NotEqual(t, uuid.Nil, account.ID)
	assert.Equal(t, "owner@acme.ae", account.Email)

	found, err := repo.FindByEmail(ctx, "OWNER@acme.ae")
	require.NoError(t, err)
	assert.Equal(t, account.ID, found.ID)
	assert.Equal(t, entity.AccountTypeIndividual, found.Metadata.AccountType)

	byID, err := repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Owner", byID.Metadata.DisplayName)
}

func TestAccountRepository_DuplicateEmail(t *testing.T) {
	repo := NewAccountRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &repository.Account{Email: "dup@acme.ae", PasswordHash: "a"}))
	err := repo.Create(ctx, &repository.Account{Email: "DUP@acme.ae", PasswordHash: "b"})

	assert.True(t, errors.Is(err, repository.ErrAccountEmailTaken))
}

func TestAccountRepository_UpdateMetadata(t *testing.T) {
	repo := NewAccountRepository(newTestDB(t))
	ctx := context.Background()
	account := &repository.Account{Email: "meta@acme.ae", PasswordHash: "a"}
	require.NoError(t, repo.Create(ctx, account))

	require.NoError(t, repo.UpdateMetadata(ctx, account.ID, entity.UserMetadata{DisplayName: "Renamed", AccountType: entity.AccountTypeIndividual}))

	found, err := repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", found.Metadata.DisplayName)
	assert.Equal(t, entity.AccountTypeIndividual, found.Metadata.AccountType)

	err = repo.UpdateMetadata(ctx, uuid.New(), entity.UserMetadata{})
	assert.True(t, errors.Is(err, repository.ErrAccountNotFound))
}

func TestTransactionManager_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	tm := NewTransactionManager(db)
	ctx := context.Background()
	ownerID := uuid.New()

	err := tm.Execute(ctx, func(factory repository.RepositoryFactory) error {
		if err := factory.BusinessProfileRepo().Create(ctx, &entity.BusinessProfile{OwnerID: ownerID, BusinessName: "Rolled back"}); err != nil {
			return err
		}

		return errors.New("abort")
	})
	require.Error(t, err)

	_, err = NewBusinessProfileRepository(db).FindByOwnerID(ctx, ownerID)
	assert.True(t, errors.Is(err, repository.ErrProfileNotFound))

	err = tm.Execute(ctx, func(factory repository.RepositoryFactory) error {
		return factory.IndividualProfileRepo().Create(ctx, &entity.IndividualProfile{OwnerID: ownerID, FullName: "Committed"})
	})
	require.NoError(t, err)

	found, err := NewIndividualProfileRepository(db).FindByOwnerID(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, "Committed", found.FullName)
}
