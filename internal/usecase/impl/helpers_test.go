package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"dubaivat/config"
	"dubaivat/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig returns a config with a short but ordered timeout ladder.
func testConfig() *config.Config {
	return &config.Config{
		Session: &config.SessionConfig{
			ProfileFetchTimeout: 100 * time.Millisecond,
			InitialLoadTimeout:  300 * time.Millisecond,
			LoadingFloor:        400 * time.Millisecond,
			VisibilityGrace:     0,
			DefaultLandingRoute: "/dashboard",
			PublicLandingRoute:  "/",
		},
	}
}

// mockProfileGateway is a testify mock of service.ProfileGateway.
type mockProfileGateway struct {
	mock.Mock
}

func (m *mockProfileGateway) GetProfile(ctx context.Context, ownerID uuid.UUID) (*entity.BusinessProfile, error) {
	args := m.Called(ctx, ownerID)
	profile, _ := args.Get(0).(*entity.BusinessProfile)

	return profile, args.Error(1)
}

func (m *mockProfileGateway) CreateProfile(ctx context.Context, ownerID uuid.UUID, data entity.BusinessProfileData) (*entity.BusinessProfile, error) {
	args := m.Called(ctx, ownerID, data)
	profile, _ := args.Get(0).(*entity.BusinessProfile)

	return profile, args.Error(1)
}

func (m *mockProfileGateway) UpdateProfile(ctx context.Context, id uuid.UUID, data entity.BusinessProfileData) (*entity.BusinessProfile, error) {
	args := m.Called(ctx, id, data)
	profile, _ := args.Get(0).(*entity.BusinessProfile)

	return profile, args.Error(1)
}

func (m *mockProfileGateway) GetIndividualProfile(ctx context.Context, ownerID uuid.UUID) (*entity.IndividualProfile, error) {
	args := m.Called(ctx, ownerID)
	profile, _ := args.Get(0).(*entity.IndividualProfile)

	return profile, args.Error(1)
}

func (m *mockProfileGateway) CreateIndividualProfile(ctx context.Context, ownerID uuid.UUID, data entity.IndividualProfileData) (*entity.IndividualProfile, error) {
	args := m.Called(ctx, ownerID, data)
	profile, _ := args.Get(0).(*entity.IndividualProfile)

	return profile, args.Error(1)
}

func (m *mockProfileGateway) UpdateIndividualProfile(ctx context.Context, id uuid.UUID, data entity.IndividualProfileData) (*entity.IndividualProfile, error) {
	args := m.Called(ctx, id, data)
	profile, _ := args.Get(0).(*entity.IndividualProfile)

	return profile, args.Error(1)
}

// recordingMetrics counts every SyncMetrics call.
type recordingMetrics struct {
	mu          sync.Mutex
	resolutions map[string]int
	dropped     map[string]int
	timers      map[string]int
	saves       map[string]int
	recoveries  map[bool]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		resolutions: map[string]int{},
		dropped:     map[string]int{},
		timers:      map[string]int{},
		saves:       map[string]int{},
		recoveries:  map[bool]int{},
	}
}

func (m *recordingMetrics) RecordResolution(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolutions[outcome]++
}

func (m *recordingMetrics) RecordDroppedEvent(eventType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped[eventType]++
}

func (m *recordingMetrics) RecordSafetyTimer(timer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timers[timer]++
}

func (m *recordingMetrics) RecordProfileSave(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves[outcome]++
}

func (m *recordingMetrics) RecordConflictRecovery(recovered bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recoveries[recovered]++
}

func (m *recordingMetrics) count(get func(*recordingMetrics) int) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return get(m)
}
