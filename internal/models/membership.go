package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Membership links a User to an Organization. At most one row per pair;
// rows are removed together with either parent.
type Membership struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_membership_user_org" json:"user_id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_membership_user_org" json:"organization_id"`
	Role           string    `gorm:"type:text;not null;default:member" json:"role"`
	CreatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`

	User         User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}

func (m *Membership) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (m *Membership) TableName() string {
	return "memberships"
}

// RoleForAdminFlag maps the provider's admin flag to a membership role.
// Recomputed on every installation so a demoted user loses admin on reinstall.
func RoleForAdminFlag(isAdmin bool) string {
	if isAdmin {
		return RoleAdmin
	}
	return RoleMember
}
