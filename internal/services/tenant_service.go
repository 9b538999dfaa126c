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

// TenantService translates external platform identifiers into internal
// entity keys. Resolution runs inside a bypass scope: a caller has no
// established identity while resolving their own identity, so the isolation
// predicate cannot apply yet.
type TenantService struct {
	sessions *database.SessionManager
}

func NewTenantService(sessions *database.SessionManager) *TenantService {
	return &TenantService{sessions: sessions}
}

func (s *TenantService) ResolveUser(ctx context.Context, platformUserID int64) (*models.User, error) {
	var user *models.User
	err := s.sessions.Bypass(ctx, func(tx *gorm.DB) error {
		var err error
		user, err = userByPlatformID(tx, platformUserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *TenantService) ResolveOrganization(ctx context.Context, companyID int64) (*models.Organization, error) {
	var org *models.Organization
	err := s.sessions.Bypass(ctx, func(tx *gorm.DB) error {
		var err error
		org, err = organizationByCompanyID(tx, companyID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return org, nil
}

// userByPlatformID looks up a user by the stable platform id. Callers are
// responsible for running it inside the appropriate scope.
func userByPlatformID(tx *gorm.DB, platformUserID int64) (*models.User, error) {
	var user models.User
	err := tx.Where("platform_user_id = ?", platformUserID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return &user, nil
}

func organizationByCompanyID(tx *gorm.DB, companyID int64) (*models.Organization, error) {
	var org models.Organization
	err := tx.Where("company_id = ?", companyID).First(&org).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to resolve organization: %w", err)
	}
	return &org, nil
}

func countOrganizationMemberships(tx *gorm.DB, organizationID uuid.UUID) (int64, error) {
	var count int64
	err := tx.Model(&models.Membership{}).
		Where("organization_id = ?", organizationID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count organization memberships: %w", err)
	}
	return count, nil
}

func countUserMemberships(tx *gorm.DB, userID uuid.UUID) (int64, error) {
	var count int64
	err := tx.Model(&models.Membership{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count user memberships: %w", err)
	}
	return count, nil
}
