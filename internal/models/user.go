package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is one human across possibly multiple organizations, keyed by the
// stable platform user id.
type User struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PlatformUserID int64     `gorm:"uniqueIndex;not null" json:"platform_user_id"`
	Email          string    `gorm:"type:text;not null" json:"email" validate:"required,email"`
	Name           string    `gorm:"type:text;not null" json:"name"`
	Locale         string    `gorm:"type:text" json:"locale"`
	Language       string    `gorm:"type:text" json:"language"`
	Timezone       string    `gorm:"type:text" json:"timezone"`
	IsAdmin        bool      `gorm:"default:false;not null" json:"is_admin"`
	ActiveFlag     bool      `gorm:"default:true;not null" json:"active_flag"`
	CreatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	Memberships []Membership `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"memberships,omitempty"`
	Credentials []Credential `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) TableName() string {
	return "users"
}
