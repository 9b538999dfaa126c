package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Credential holds the OAuth grant for one (user, organization) pair. Token
// fields are stored encrypted at rest; the root of trust for isolation, since
// caller identity is established before any credential row becomes readable.
type Credential struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_credential_user_org" json:"user_id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_credential_user_org" json:"organization_id"`
	AccessToken    string    `gorm:"type:text;not null" json:"-"`
	RefreshToken   string    `gorm:"type:text;not null" json:"-"`
	TokenType      string    `gorm:"type:text;not null;default:'Bearer'" json:"token_type"`
	Scope          string    `gorm:"type:text;not null" json:"scope"`
	ExpiresAt      time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	User         User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}

func (c *Credential) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c *Credential) TableName() string {
	return "credentials"
}

func (c *Credential) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}
