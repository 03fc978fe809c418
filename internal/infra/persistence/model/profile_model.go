package model

import (
	"time"

	"github.com/google/uuid"
)

// BusinessProfileModel mirrors the 'business_profiles' table. The unique index
// on owner_id is what turns a racing second create into a duplicate-key error.
type BusinessProfileModel struct {
	ID                    uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID               uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_business_profiles_owner_id"`
	BusinessName          string    `gorm:"type:varchar(200);not null"`
	TaxRegistrationNumber *string   `gorm:"type:varchar(32)"`
	Address               string    `gorm:"type:text"`
	Phone                 string    `gorm:"type:varchar(32)"`
	Email                 string    `gorm:"type:varchar(255)"`
	VATFilingPeriod       string    `gorm:"type:varchar(16);not null;default:'quarterly'"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// TableName explicitly sets the table name for GORM.
func (BusinessProfileModel) TableName() string {
	return "business_profiles"
}

// IndividualProfileModel mirrors the 'individual_profiles' table.
type IndividualProfileModel struct {
	ID                    uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID               uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_individual_profiles_owner_id"`
	FullName              string    `gorm:"type:varchar(200);not null"`
	Phone                 string    `gorm:"type:varchar(32)"`
	TaxRegistrationNumber *string   `gorm:"type:varchar(32)"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// TableName explicitly sets the table name for GORM.
func (IndividualProfileModel) TableName() string {
	return "individual_profiles"
}

// All returns every model managed by the schema migration.
func All() []any {
	return []any{
		&AccountModel{},
		&BusinessProfileModel{},
		&IndividualProfileModel{},
	}
}
