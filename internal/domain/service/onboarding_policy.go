package service

import "dubaivat/internal/domain/entity"

// ShouldShowOnboarding decides whether the first-run business profile flow is
// visible. Once the session has resolved onboarding (profile found, created or
// skipped) it stays closed for the rest of the session.
func ShouldShowOnboarding(user *entity.SessionUser, onboardingResolved bool) bool {
	return user.IsBusiness() &&
		user.BusinessProfile == nil &&
		!onboardingResolved
}

// ShouldShowIndividualOnboarding gates the simpler profile-completion screen of
// individual accounts. It never opens while the session is still loading.
func ShouldShowIndividualOnboarding(user *entity.SessionUser, loading bool) bool {
	return user.IsIndividual() &&
		user.IndividualProfile == nil &&
		!loading
}
