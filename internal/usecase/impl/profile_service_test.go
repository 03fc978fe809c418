package impl

import (
	"context"
	"testing"
	"time"

	"dubaivat/internal/domain/entity"
	domainerrors "dubaivat/internal/domain/errors"
	"dubaivat/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// profileServiceFixtures holds all test dependencies for profile sync tests.
type profileServiceFixtures struct {
	service usecase.ProfileSyncUsecase
	gateway *mockProfileGateway
	metrics *recordingMetrics
}

func createTestProfileService(t *testing.T) profileServiceFixtures {
	t.Helper()

	gateway := &mockProfileGateway{}
	t.Cleanup(func() { gateway.AssertExpectations(t) })

	metrics := newRecordingMetrics()
	service := NewProfileSyncService(gateway, testConfig(), metrics, discardLogger())

	return profileServiceFixtures{
		service: service,
		gateway: gateway,
		metrics: metrics,
	}
}

func sampleBusinessData() entity.BusinessProfileData {
	return entity.BusinessProfileData{
		BusinessName:    "Acme Trading LLC",
		VATFilingPeriod: entity.VATFilingMonthly,
	}
}

func sampleBusinessProfile(ownerID uuid.UUID, name string) *entity.BusinessProfile {
	return &entity.BusinessProfile{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		BusinessName:    name,
		VATFilingPeriod: entity.VATFilingMonthly,
	}
}

func TestProfileSyncService_FetchProfile_Found(t *testing.T) {
	fx := createTestProfileService(t)
	ownerID := uuid.New()
	expected := sampleBusinessProfile(ownerID, "Acme")

	fx.gateway.On("GetProfile", mock.Anything, ownerID).Return(expected, nil).Once()

	profile, err := fx.service.FetchProfile(context.Background(), ownerID)

	require.NoError(t, err)
	assert.Equal(t, expected, profile)
}

func TestProfileSyncService_FetchProfile_Absent(t *testing.T) {
	fx := createTestProfileService(t)
	ownerID := uuid.New()

	fx.gateway.On("GetProfile", mock.Anything, ownerID).Return(nil, nil).Once()

	profile, err := fx.service.FetchProfile(context.Background(), ownerID)

	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestProfileSyncService_FetchProfile_NilOwner(t *testing.T) {
	fx := createTestProfileService(t)

	_, err := fx.service.FetchProfile(context.Background(), uuid.Nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrNotAuthenticated))
}

func TestProfileSyncService_ResolveProfile_TimeoutIsNotFound(t *testing.T) {
	fx := createTestProfileService(t)
	ownerID := uuid.New()

	fx.gateway.On("GetProfile", mock.Anything, ownerID).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).
		Return(nil, context.DeadlineExceeded).Once()

	start := time.Now()
	profile, ok := fx.service.ResolveProfile(context.Background(), ownerID)

	assert.False(t, ok, "a timed out read must not be reported as a definite answer")
	assert.Nil(t, profile)
	assert.Less(t, time.Since(start), time.Second)
}

func TestProfileSyncService_ResolveProfile_Absent(t *testing.T) {
	fx := createTestProfileService(t)
	ownerID := uuid.New()

	fx.gateway.On("GetProfile", mock.Anything, ownerID).Return(nil, nil).Once()

	profile, ok := fx.service.ResolveProfile(context.Background(), ownerID)

	assert.True(t, ok)
	assert.Nil(t, profile)
}

func TestProfileSyncService_SaveProfile_Create(t *testing.T) {
	fx := createTestProfileService(t)
	ownerID := uuid.New()
	data := sampleBusinessData()
	created := sampleBusinessProfile(ownerID, data.BusinessName)

	fx.gateway.On("CreateProfile", mock.Anything, ownerID, data).Return(created, nil).Once()
	fx.gateway.On("GetProfile", mock.Anything, ownerID).Return(created, nil).Once()

	result := fx.service.SaveProfile(context.Background(), ownerID, data, nil)

	require.True(t, result.OK())
	assert.Equal(t, created, result.Profile)
	assert.NoError(t, result.Err)
	assert.Equal(t, 1, fx.metrics.count(func(m *recordingMetrics) int { return m.saves["ok"] }))
}

func TestProfileSyncService_SaveProfile_UpdateExisting(t *testing.T) {
	fx := createTestProfileService(t)
	ownerID := uuid.New()
	data := sampleBusinessData()
	existing := sampleBusinessProfile(ownerID, "Old Name")
	updated := &entity.BusinessProfile{ID: existing.ID, OwnerID: ownerID, BusinessName: data.BusinessName}

	fx.gateway.On("UpdateProfile", mock.Anything, existing.ID, data).Return(updated, nil).Once()
	fx.gateway.On("GetProfile", mock.Anything, ownerID).Return(updated, nil).Once()

	result := fx.service.SaveProfile(context.Background(), ownerID, data, &existing.ID)

	require.True(t, result.OK())
	assert.Equal(t, data.BusinessName, result.Profile.BusinessName)
	fx.gateway.AssertNotCalled(t, "CreateProfile", mock.Anything, mock.Anything, mock.Anything)
}

func TestProfileSyncService_SaveProfile_ConflictRecoveredByUpdate(t *testing.T) {
	fx := createTestProfileService(t)
	ownerID := uuid.New()
	data := sampleBusinessData()
	existing := sampleBusinessProfile(ownerID, "Created Elsewhere")
	updated := &entity.BusinessProfile{ID: existing.ID, OwnerID: ownerID, BusinessName: data.BusinessName}

	fx.gateway.On("CreateProfile", mock.Anything, ownerID, data).
		Return(nil, errors.Wrap(domainerrors.ErrConflict, "duplicate owner")).Once()
	fx.gateway.On("GetProfile", mock.Anything, ownerID).Return(existing, nil).Once()
	fx.gateway.On("UpdateProfile", mock.Anything, existing.ID, data).Return(updated, nil).Once()
	fx.gateway.On("GetProfile", mock.Anything, ownerID).Return(updated, nil).Once()

	result := fx.service.SaveProfile(context.Background(), ownerID, data, nil)

	require.True(t, result.OK())
	assert.Equal(t, existing.ID, result.Profile.ID)
	assert.Equal(t, data.BusinessName, result.Profile.BusinessName)
	assert.Equal(t, 1, fx.metrics.count(func(m *recordingMetrics) int { return m.recoveries[true] }))
}

func TestProfileSyncService_SaveProfile_SavedButNotVisible(t *testing.T) {
	fx := createTestProfileService(t)
	ownerID := uuid.New()
	data := sampleBusinessData()
	created := sampleBusinessProfile(ownerID, data.BusinessName)

	fx.gateway.On("CreateProfile", mock.Anything, ownerID, data).Return(created, nil).Once()
	fx.gateway.On("GetProfile", mock.Anything, ownerID).Return(nil, nil).Once()

	result := fx.service.SaveProfile(context.Background(), ownerID, data, nil)

	require.True(t, result.OK(), "an unverified save still counts as a success")
	assert.Equal(t, created, result.Profile)
}

func TestProfileSyncService_SaveProfile_VerifiedAfterGrace(t *testing.T) {
	gateway := &mockProfileGateway{}
	cfg := testConfig()
	cfg.Session.VisibilityGrace = 30 * time.Millisecond
	service := NewProfileSyncService(gateway, cfg, newRecordingMetrics(), discardLogger())

	ownerID := uuid.New()
	data := sampleBusinessData()
	created := sampleBusinessProfile(ownerID, data.BusinessName)

	gateway.On("CreateProfile", mock.Anything, ownerID, data).Return(created, nil).Once()
	gateway.On("GetProfile", mock.Anything, ownerID).Return(created, nil).Once()

	start := time.Now()
	result := service.SaveProfile(context.Background(), ownerID, data, nil)

	require.True(t, result.OK())
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	gateway.AssertExpectations(t)
}

func TestProfileSyncService_SaveIndividualProfile_Create(t *testing.T) {
	fx := createTestProfileService(t)
	ownerID := uuid.New()
	data := entity.IndividualProfileData{FullName: "Layla Hassan"}
	created := &entity.IndividualProfile{ID: uuid.New(), OwnerID: ownerID, FullName: data.FullName}

	fx.gateway.On("CreateIndividualProfile", mock.Anything, ownerID, data).Return(created, nil).Once()
	fx.gateway.On("GetIndividualProfile", mock.Anything, ownerID).Return(created, nil).Once()

	result := fx.service.SaveIndividualProfile(context.Background(), ownerID, data, nil)

	require.True(t, result.OK())
	assert.Equal(t, created, result.Profile)
}
