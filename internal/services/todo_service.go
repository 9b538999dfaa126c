package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/pipeflow/deal-todo-api/internal/database"
	"github.com/pipeflow/deal-todo-api/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TodoService owns all todo reads and writes. Every operation resolves the
// caller to an internal user id (bypass scope, identity does not exist yet)
// and then enters an identity scope; the row-security policies do the actual
// tenant filtering from there.
type TodoService struct {
	sessions *database.SessionManager
	tenants  *TenantService
}

func NewTodoService(sessions *database.SessionManager, tenants *TenantService) *TodoService {
	return &TodoService{
		sessions: sessions,
		tenants:  tenants,
	}
}

type CreateTodoInput struct {
	Title string `json:"title" binding:"required"`
}

type UpdateTodoInput struct {
	ID      uuid.UUID `json:"id" binding:"required"`
	Title   string    `json:"title" binding:"required"`
	Checked bool      `json:"checked"`
}

// Create inserts a todo at the end of the deal's list. Display order is the
// current non-deleted maximum plus one, starting at 1 for an empty group.
func (s *TodoService) Create(ctx context.Context, platformUserID, companyID int64, dealID string, input CreateTodoInput) (uuid.UUID, error) {
	caller, err := s.tenants.ResolveUser(ctx, platformUserID)
	if err != nil {
		return uuid.Nil, err
	}

	var id uuid.UUID
	err = s.sessions.WithIdentity(ctx, caller.ID, func(tx *gorm.DB) error {
		org, err := organizationByCompanyID(tx, companyID)
		if err != nil {
			return err
		}

		var maxOrder int
		err = tx.Model(&models.Todo{}).
			Where("organization_id = ? AND deal_id = ? AND deleted = ?", org.ID, dealID, false).
			Select("COALESCE(MAX(display_order), 0)").
			Scan(&maxOrder).Error
		if err != nil {
			return fmt.Errorf("failed to compute display order: %w", err)
		}

		todo := models.Todo{
			OrganizationID: org.ID,
			DealID:         dealID,
			Title:          input.Title,
			Checked:        false,
			Deleted:        false,
			DisplayOrder:   maxOrder + 1,
		}
		if err := tx.Create(&todo).Error; err != nil {
			return fmt.Errorf("failed to create todo: %w", err)
		}

		id = todo.ID
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	return id, nil
}

// List returns the deal's non-deleted todos in display order. An unknown
// company yields an empty list, not an error: the panel renders regardless.
func (s *TodoService) List(ctx context.Context, platformUserID, companyID int64, dealID string) ([]models.Todo, error) {
	caller, err := s.tenants.ResolveUser(ctx, platformUserID)
	if err != nil {
		return nil, err
	}

	var todos []models.Todo
	err = s.sessions.WithIdentity(ctx, caller.ID, func(tx *gorm.DB) error {
		org, err := organizationByCompanyID(tx, companyID)
		if errors.Is(err, ErrOrganizationNotFound) {
			todos = []models.Todo{}
			return nil
		}
		if err != nil {
			return err
		}

		return tx.
			Where("organization_id = ? AND deal_id = ? AND deleted = ?", org.ID, dealID, false).
			Order("display_order ASC").
			Find(&todos).Error
	})
	if err != nil {
		return nil, err
	}

	return todos, nil
}

// Get returns the todo matching id, organization and deal, or nil when no
// row matches.
func (s *TodoService) Get(ctx context.Context, platformUserID, companyID int64, dealID string, recordID uuid.UUID) (*models.Todo, error) {
	caller, err := s.tenants.ResolveUser(ctx, platformUserID)
	if err != nil {
		return nil, err
	}

	var todo *models.Todo
	err = s.sessions.WithIdentity(ctx, caller.ID, func(tx *gorm.DB) error {
		org, err := organizationByCompanyID(tx, companyID)
		if err != nil {
			return err
		}

		var row models.Todo
		err = tx.Where("id = ? AND organization_id = ? AND deal_id = ?", recordID, org.ID, dealID).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load todo: %w", err)
		}

		todo = &row
		return nil
	})
	if err != nil {
		return nil, err
	}

	return todo, nil
}

// Update sets title and checked for the matching triple. A non-matching
// id/organization/deal silently affects zero rows.
func (s *TodoService) Update(ctx context.Context, platformUserID, companyID int64, dealID string, input UpdateTodoInput) error {
	caller, err := s.tenants.ResolveUser(ctx, platformUserID)
	if err != nil {
		return err
	}

	return s.sessions.WithIdentity(ctx, caller.ID, func(tx *gorm.DB) error {
		org, err := organizationByCompanyID(tx, companyID)
		if err != nil {
			return err
		}

		err = tx.Model(&models.Todo{}).
			Where("id = ? AND organization_id = ? AND deal_id = ?", input.ID, org.ID, dealID).
			Updates(map[string]interface{}{
				"title":   input.Title,
				"checked": input.Checked,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to update todo: %w", err)
		}
		return nil
	})
}

// Delete hard-deletes the matching triple and returns the removed row's
// prior state, or nil when nothing matched.
func (s *TodoService) Delete(ctx context.Context, platformUserID, companyID int64, dealID string, recordID uuid.UUID) (*models.Todo, error) {
	caller, err := s.tenants.ResolveUser(ctx, platformUserID)
	if err != nil {
		return nil, err
	}

	var removed *models.Todo
	err = s.sessions.WithIdentity(ctx, caller.ID, func(tx *gorm.DB) error {
		org, err := organizationByCompanyID(tx, companyID)
		if err != nil {
			return err
		}

		var row models.Todo
		err = tx.Where("id = ? AND organization_id = ? AND deal_id = ?", recordID, org.ID, dealID).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load todo: %w", err)
		}

		if err := tx.Delete(&models.Todo{}, "id = ?", row.ID).Error; err != nil {
			return fmt.Errorf("failed to delete todo: %w", err)
		}

		removed = &row
		return nil
	})
	if err != nil {
		return nil, err
	}

	return removed, nil
}
