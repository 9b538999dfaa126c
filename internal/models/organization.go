package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Organization is one tenant: a CRM company that installed the app.
// Exactly one row exists per external company id.
type Organization struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID      int64     `gorm:"uniqueIndex;not null" json:"company_id"`
	CompanyName    string    `gorm:"type:text;not null" json:"company_name" validate:"required"`
	CompanyDomain  string    `gorm:"type:text;not null" json:"company_domain"`
	CompanyCountry *string   `gorm:"type:text" json:"company_country,omitempty"`
	APIDomain      string    `gorm:"type:text;not null" json:"api_domain"`
	CreatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	Memberships []Membership `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"memberships,omitempty"`
	Credentials []Credential `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"-"`
	Todos       []Todo       `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"todos,omitempty"`
}

func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func (o *Organization) TableName() string {
	return "organizations"
}
