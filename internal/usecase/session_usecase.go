package usecase

import (
	"context"

	"dubaivat/internal/domain/entity"
)

// State is the coarse state of the session machine.
type State string

const (
	StateInitializing     State = "INITIALIZING"
	StateUnauthenticated  State = "UNAUTHENTICATED"
	StateResolvingProfile State = "RESOLVING_PROFILE"
	StateReady            State = "READY"
	StateSignedOut        State = "SIGNED_OUT"
)

// Readiness sub-classifications of StateReady.
const (
	ReadyWithProfile    = "ready-with-profile"
	ReadyWithoutProfile = "ready-without-profile"
)

// NavigationHint is a route the UI should move to. Seq increases every time a
// new hint is pushed so a stale hint can be told apart from a fresh one.
type NavigationHint struct {
	Route string `json:"route,omitempty"`
	Seq   int64  `json:"seq"`
}

// Snapshot is the read model consumed by the UI layer.
type Snapshot struct {
	State                          State               `json:"state"`
	User                           *entity.SessionUser `json:"user"`
	IsLoading                      bool                `json:"is_loading"`
	ShouldShowOnboarding           bool                `json:"should_show_onboarding"`
	ShouldShowIndividualOnboarding bool                `json:"should_show_individual_onboarding"`
	OnboardingResolved             bool                `json:"onboarding_resolved"`
	Navigation                     NavigationHint      `json:"navigation"`
}

// Readiness returns ReadyWithProfile or ReadyWithoutProfile while READY, and
// an empty string otherwise.
func (s Snapshot) Readiness() string {
	if s.State != StateReady || s.User == nil {
		return ""
	}
	if s.User.BusinessProfile != nil || s.User.IndividualProfile != nil {
		return ReadyWithProfile
	}

	return ReadyWithoutProfile
}

// SessionUsecase is the session core as seen by the UI layer.
type SessionUsecase interface {
	// Run drives the machine until ctx is cancelled. It must be called exactly once.
	Run(ctx context.Context) error

	Snapshot() Snapshot

	// Subscribe registers a listener invoked after every processed event. The
	// listener runs on the machine goroutine and must not block.
	Subscribe(listener func(Snapshot)) (unsubscribe func())

	SignIn(ctx context.Context, input *SignInInput) error
	SignUp(ctx context.Context, input *SignUpInput) error
	SignOut(ctx context.Context) error
	UpdateUser(ctx context.Context, input *UpdateUserInput) error

	CompleteOnboarding(ctx context.Context, data entity.BusinessProfileData) (*entity.BusinessProfile, error)
	SkipOnboarding(ctx context.Context) error
	CompleteIndividualProfile(ctx context.Context, data entity.IndividualProfileData) (*entity.IndividualProfile, error)
	RefreshProfile(ctx context.Context) (*entity.SessionUser, error)
}

// --- Input DTOs ---

// SignInInput defines the data required to sign in.
type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignUpInput defines the data required to create an account.
type SignUpInput struct {
	Email       string             `json:"email" validate:"required,email"`
	Password    string             `json:"password" validate:"required,min=8,max=72"`
	DisplayName string             `json:"display_name" validate:"max=100"`
	AccountType entity.AccountType `json:"account_type" validate:"omitempty,oneof=business individual"`
}

// UpdateUserInput changes the signed-in account's metadata. Empty fields keep
// their current value.
type UpdateUserInput struct {
	DisplayName string             `json:"display_name" validate:"max=100"`
	AccountType entity.AccountType `json:"account_type" validate:"omitempty,oneof=business individual"`
}
