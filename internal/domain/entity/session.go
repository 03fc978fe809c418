package entity

import "time"

// AuthEventType enumerates the events emitted by the identity provider.
type AuthEventType string

const (
	AuthEventSignedIn       AuthEventType = "SIGNED_IN"
	AuthEventSignedOut      AuthEventType = "SIGNED_OUT"
	AuthEventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
	AuthEventUserUpdated    AuthEventType = "USER_UPDATED"
	AuthEventInitialSession AuthEventType = "INITIAL_SESSION"
)

// Session is an authenticated provider session.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Identity     Identity  `json:"identity"`
}

// AuthEvent is a single provider notification. Session is nil for SIGNED_OUT.
type AuthEvent struct {
	Type    AuthEventType
	Session *Session
}

// SessionUser is the working record of the session core: the identity plus
// whatever profile is currently known for it.
type SessionUser struct {
	Identity          Identity           `json:"identity"`
	BusinessProfile   *BusinessProfile   `json:"business_profile,omitempty"`
	IndividualProfile *IndividualProfile `json:"individual_profile,omitempty"`
}

// IsBusiness reports whether the user is a business account.
func (u *SessionUser) IsBusiness() bool {
	return u != nil && u.Identity.AccountType == AccountTypeBusiness
}

// IsIndividual reports whether the user is an individual account.
func (u *SessionUser) IsIndividual() bool {
	return u != nil && u.Identity.AccountType == AccountTypeIndividual
}

// Clone returns a copy that shares no pointers with u.
func (u *SessionUser) Clone() *SessionUser {
	if u == nil {
		return nil
	}

	cloned := &SessionUser{Identity: u.Identity}
	if u.BusinessProfile != nil {
		p := *u.BusinessProfile
		p.TaxRegistrationNumber = cloneString(p.TaxRegistrationNumber)
		cloned.BusinessProfile = &p
	}
	if u.IndividualProfile != nil {
		p := *u.IndividualProfile
		p.TaxRegistrationNumber = cloneString(p.TaxRegistrationNumber)
		cloned.IndividualProfile = &p
	}

	return cloned
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s

	return &v
}
