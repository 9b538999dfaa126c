package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Todo belongs to exactly one Organization and is grouped by the external
// deal id. DisplayOrder is dense per (organization, deal, non-deleted) group,
// assigned as current max + 1.
//
// Deleted is a legacy flag: removal is a hard delete, the flag only excludes
// historical rows from listings and order computation.
type Todo struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index:idx_todos_org_deal,priority:1" json:"organization_id"`
	DealID         string    `gorm:"type:text;not null;index:idx_todos_org_deal,priority:2" json:"deal_id"`
	Title          string    `gorm:"type:text;not null" json:"title" validate:"required"`
	Checked        bool      `gorm:"default:false;not null" json:"checked"`
	Deleted        bool      `gorm:"default:false;not null;index:idx_todos_org_deal,priority:3" json:"deleted"`
	DisplayOrder   int       `gorm:"not null" json:"display_order"`
	CreatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	Organization Organization `gorm:"foreignKey:OrganizationID" json:"-"`
}

func (t *Todo) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (t *Todo) TableName() string {
	return "todos"
}

// TodoView is the wire shape rendered to the deal panel, keyed by id.
type TodoView struct {
	ID      uuid.UUID `json:"id"`
	Title   string    `json:"title"`
	Checked bool      `json:"checked"`
	Deleted bool      `json:"deleted"`
}

func (t *Todo) View() TodoView {
	return TodoView{
		ID:      t.ID,
		Title:   t.Title,
		Checked: t.Checked,
		Deleted: t.Deleted,
	}
}
