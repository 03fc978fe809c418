package entity

import (
	"time"

	"github.com/google/uuid"
)

// VATFilingPeriod is the cadence at which a business files VAT returns.
type VATFilingPeriod string

const (
	VATFilingMonthly   VATFilingPeriod = "monthly"
	VATFilingQuarterly VATFilingPeriod = "quarterly"
)

// BusinessProfile is the user-completed business record that gates full access
// for business accounts. At most one exists per owner.
type BusinessProfile struct {
	ID                    uuid.UUID       `json:"id"`
	OwnerID               uuid.UUID       `json:"owner_id"`
	BusinessName          string          `json:"business_name"`
	TaxRegistrationNumber *string         `json:"tax_registration_number,omitempty"`
	Address               string          `json:"address,omitempty"`
	Phone                 string          `json:"phone,omitempty"`
	Email                 string          `json:"email,omitempty"`
	VATFilingPeriod       VATFilingPeriod `json:"vat_filing_period"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// IndividualProfile is the simpler one-time record completed by individual accounts.
type IndividualProfile struct {
	ID                    uuid.UUID `json:"id"`
	OwnerID               uuid.UUID `json:"owner_id"`
	FullName              string    `json:"full_name"`
	Phone                 string    `json:"phone,omitempty"`
	TaxRegistrationNumber *string   `json:"tax_registration_number,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// BusinessProfileData is the writable part of a BusinessProfile.
type BusinessProfileData struct {
	BusinessName          string          `json:"business_name" validate:"required,max=200"`
	TaxRegistrationNumber *string         `json:"tax_registration_number,omitempty" validate:"omitempty,max=32"`
	Address               string          `json:"address,omitempty" validate:"max=500"`
	Phone                 string          `json:"phone,omitempty" validate:"max=32"`
	Email                 string          `json:"email,omitempty" validate:"omitempty,email"`
	VATFilingPeriod       VATFilingPeriod `json:"vat_filing_period,omitempty" validate:"omitempty,oneof=monthly quarterly"`
}

// IndividualProfileData is the writable part of an IndividualProfile.
type IndividualProfileData struct {
	FullName              string  `json:"full_name" validate:"required,max=200"`
	Phone                 string  `json:"phone,omitempty" validate:"max=32"`
	TaxRegistrationNumber *string `json:"tax_registration_number,omitempty" validate:"omitempty,max=32"`
}

// Apply copies the writable fields onto the profile.
func (p *BusinessProfile) Apply(data BusinessProfileData) {
	p.BusinessName = data.BusinessName
	p.TaxRegistrationNumber = data.TaxRegistrationNumber
	p.Address = data.Address
	p.Phone = data.Phone
	p.Email = data.Email
	p.VATFilingPeriod = data.VATFilingPeriod
	if p.VATFilingPeriod == "" {
		p.VATFilingPeriod = VATFilingQuarterly
	}
}

// Apply copies the writable fields onto the profile.
func (p *IndividualProfile) Apply(data IndividualProfileData) {
	p.FullName = data.FullName
	p.Phone = data.Phone
	p.TaxRegistrationNumber = data.TaxRegistrationNumber
}
