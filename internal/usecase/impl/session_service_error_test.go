package impl

import (
	"context"
	"testing"
	"time"

	"dubaivat/internal/domain/entity"
	domainerrors "dubaivat/internal/domain/errors"
	"dubaivat/internal/usecase"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_BootstrapErrorIsSignedOut(t *testing.T) {
	provider := newFakeIdentityProvider()
	provider.sessionErr = errors.New("connection refused")

	h := startSessionService(t, testConfig(), provider, newRealProfileSync(newMemoryProfileGateway()))
	snap := h.waitState(t, usecase.StateUnauthenticated)

	assert.Nil(t, snap.User)
}

func TestSessionService_CommandsRequireSession(t *testing.T) {
	h := startSignedOut(t, newRealProfileSync(newMemoryProfileGateway()))
	ctx := context.Background()

	_, err := h.service.CompleteOnboarding(ctx, entity.BusinessProfileData{BusinessName: "Acme"})
	assert.True(t, errors.Is(err, domainerrors.ErrNotAuthenticated))

	err = h.service.SkipOnboarding(ctx)
	assert.True(t, errors.Is(err, domainerrors.ErrNotAuthenticated))

	_, err = h.service.RefreshProfile(ctx)
	assert.True(t, errors.Is(err, domainerrors.ErrNotAuthenticated))

	_, err = h.service.CompleteIndividualProfile(ctx, entity.IndividualProfileData{FullName: "Someone"})
	assert.True(t, errors.Is(err, domainerrors.ErrNotAuthenticated))

	err = h.service.UpdateUser(ctx, &usecase.UpdateUserInput{DisplayName: "Someone"})
	assert.True(t, errors.Is(err, domainerrors.ErrNotAuthenticated))

	err = h.service.UpdateUser(ctx, &usecase.UpdateUserInput{AccountType: "enterprise"})
	assert.True(t, errors.Is(err, domainerrors.ErrValidationFailed))
}

func TestSessionService_CompleteOnboardingValidation(t *testing.T) {
	gateway := newMemoryProfileGateway()
	h := startSignedOut(t, newRealProfileSync(gateway))
	u1 := businessIdentity("invalid@example.ae")

	h.provider.emit(entity.AuthEventSignedIn, &u1)
	h.waitState(t, usecase.StateReady)

	_, err := h.service.CompleteOnboarding(context.Background(), entity.BusinessProfileData{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrValidationFailed))
	assert.True(t, h.service.Snapshot().ShouldShowOnboarding, "a failed save keeps onboarding open")
	assert.Zero(t, gateway.businessCount())
}

func TestSessionService_CompleteOnboardingRejectsIndividual(t *testing.T) {
	h := startSignedOut(t, newRealProfileSync(newMemoryProfileGateway()))
	u1 := individualIdentity("person@example.ae")

	h.provider.emit(entity.AuthEventSignedIn, &u1)
	h.waitState(t, usecase.StateReady)

	_, err := h.service.CompleteOnboarding(context.Background(), entity.BusinessProfileData{BusinessName: "Acme"})
	assert.True(t, errors.Is(err, domainerrors.ErrValidationFailed))
}

func TestSessionService_SignInErrors(t *testing.T) {
	h := startSignedOut(t, newRealProfileSync(newMemoryProfileGateway()))
	ctx := context.Background()

	err := h.service.SignIn(ctx, &usecase.SignInInput{Email: "not-an-email", Password: "x"})
	assert.True(t, errors.Is(err, domainerrors.ErrValidationFailed))

	err = h.service.SignIn(ctx, &usecase.SignInInput{Email: "nobody@example.ae", Password: "whatever"})
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))

	err = h.service.SignUp(ctx, &usecase.SignUpInput{Email: "short@example.ae", Password: "short"})
	assert.True(t, errors.Is(err, domainerrors.ErrValidationFailed))

	assert.Equal(t, usecase.StateUnauthenticated, h.service.Snapshot().State)
}

func TestSessionService_SignOutWhenProviderUnreachable(t *testing.T) {
	h := startSignedOut(t, newRealProfileSync(newMemoryProfileGateway()))
	u1 := businessIdentity("offline@example.ae")

	h.provider.emit(entity.AuthEventSignedIn, &u1)
	h.waitState(t, usecase.StateReady)

	h.provider.signOutErr = errors.New("network unreachable")
	require.NoError(t, h.service.SignOut(context.Background()))

	snap := h.waitState(t, usecase.StateSignedOut)
	assert.Nil(t, snap.User)
}

func TestSessionService_RunTwice(t *testing.T) {
	h := startSignedOut(t, newRealProfileSync(newMemoryProfileGateway()))

	err := h.service.Run(context.Background())
	assert.Error(t, err)
}

func TestSessionService_CommandAfterStop(t *testing.T) {
	provider := newFakeIdentityProvider()
	service := NewSessionService(testConfig(), provider, newRealProfileSync(newMemoryProfileGateway()), newRecordingMetrics(), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- service.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(waitFor):
		t.Fatal("machine did not stop")
	}

	err := service.SkipOnboarding(context.Background())
	assert.ErrorIs(t, err, ErrSessionStopped)
	assert.Zero(t, provider.subscribers(), "stopping unsubscribes from the provider")
}
