// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"strings"

	"github.com/google/uuid"
)

// AccountType classifies an identity as a business filer or an individual.
type AccountType string

const (
	AccountTypeBusiness   AccountType = "business"
	AccountTypeIndividual AccountType = "individual"
)

// IsValid reports whether the account type is one of the known values.
func (t AccountType) IsValid() bool {
	return t == AccountTypeBusiness || t == AccountTypeIndividual
}

// ParseAccountType converts raw provider metadata into an AccountType.
// Anything unknown is treated as a business account.
func ParseAccountType(raw string) AccountType {
	t := AccountType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.IsValid() {
		return AccountTypeBusiness
	}

	return t
}

// Identity holds the provider-issued attributes of the authenticated user.
// It is replaced wholesale by a fresh provider event and never edited in place.
type Identity struct {
	ID          uuid.UUID   // Provider-issued identifier, immutable once set.
	Email       string      // Login email.
	DisplayName string      // Metadata display name, or the local part of Email.
	AccountType AccountType // business or individual.
}

// UserMetadata is the mutable metadata the provider keeps next to an account.
type UserMetadata struct {
	DisplayName string      `json:"display_name,omitempty"`
	AccountType AccountType `json:"account_type,omitempty" validate:"omitempty,oneof=business individual"`
}

// NewIdentity builds an Identity, deriving the display name from the email when
// the metadata does not carry one.
func NewIdentity(id uuid.UUID, email string, meta UserMetadata) Identity {
	name := strings.TrimSpace(meta.DisplayName)
	if name == "" {
		name = EmailLocalPart(email)
	}

	return Identity{
		ID:          id,
		Email:       email,
		DisplayName: name,
		AccountType: ParseAccountType(string(meta.AccountType)),
	}
}

// EmailLocalPart returns the part of an email address before the '@'.
func EmailLocalPart(email string) string {
	local, _, found := strings.Cut(email, "@")
	if !found {
		return email
	}

	return local
}
