package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pipeflow/deal-todo-api/internal/database"
	"github.com/pipeflow/deal-todo-api/internal/models"
	"github.com/pipeflow/deal-todo-api/pkg/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InstallationService onboards and offboards the Organization/User/
// Membership/Credential quadruple as one atomic unit. All of it runs in
// bypass scope: installation creates the very rows that establish identity.
type InstallationService struct {
	sessions   *database.SessionManager
	crm        CRMClient
	encryption *EncryptionService
}

func NewInstallationService(sessions *database.SessionManager, crm CRMClient, encryption *EncryptionService) *InstallationService {
	return &InstallationService{
		sessions:   sessions,
		crm:        crm,
		encryption: encryption,
	}
}

// Installation carries the provider-verified identifiers of a completed
// install. External ids may differ from whatever the initiating request
// claimed; only the token-derived profile is trusted.
type Installation struct {
	PlatformUserID int64
	CompanyID      int64
	UserID         string
	OrganizationID string
}

// InstallationView is the stored grant rendered back to the platform after
// installation, tokens decrypted.
type InstallationView struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	APIDomain    string `json:"api_domain"`
	UserID       int64  `json:"userId"`
	CompanyID    int64  `json:"companyId"`
}

// Install fetches the authoritative profile with the freshly issued token and
// upserts the tenant quadruple in one transaction. Idempotent: repeat calls
// converge to the same row set with refreshed attributes.
func (s *InstallationService) Install(ctx context.Context, grant *TokenGrant) (*Installation, error) {
	profile, err := s.crm.FetchProfile(ctx, grant.APIDomain, grant.AccessToken)
	if err != nil {
		return nil, err
	}

	encryptedAccess, err := s.encryption.Encrypt(grant.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}
	encryptedRefresh, err := s.encryption.Encrypt(grant.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	var result Installation
	err = s.sessions.Bypass(ctx, func(tx *gorm.DB) error {
		org := models.Organization{
			CompanyID:      profile.CompanyID,
			CompanyName:    profile.CompanyName,
			CompanyDomain:  profile.CompanyDomain,
			CompanyCountry: profile.CompanyCountry,
			APIDomain:      grant.APIDomain,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "company_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"company_name", "company_domain", "company_country", "api_domain", "updated_at",
			}),
		}).Create(&org).Error
		if err != nil {
			return fmt.Errorf("failed to upsert organization: %w", err)
		}
		// Re-read by the unique key: on conflict the persisted row keeps its
		// original primary key, not the one generated for this insert.
		if err := tx.Where("company_id = ?", profile.CompanyID).First(&org).Error; err != nil {
			return fmt.Errorf("failed to load upserted organization: %w", err)
		}

		user := models.User{
			PlatformUserID: profile.UserID,
			Email:          profile.Email,
			Name:           profile.Name,
			Locale:         profile.Locale,
			Language:       profile.Language,
			Timezone:       profile.Timezone,
			IsAdmin:        profile.IsAdmin,
			ActiveFlag:     profile.ActiveFlag,
		}
		err = tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "platform_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"email", "name", "locale", "language", "timezone", "is_admin", "active_flag", "updated_at",
			}),
		}).Create(&user).Error
		if err != nil {
			return fmt.Errorf("failed to upsert user: %w", err)
		}
		if err := tx.Where("platform_user_id = ?", profile.UserID).First(&user).Error; err != nil {
			return fmt.Errorf("failed to load upserted user: %w", err)
		}

		membership := models.Membership{
			UserID:         user.ID,
			OrganizationID: org.ID,
			Role:           models.RoleForAdminFlag(profile.IsAdmin),
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "organization_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role"}),
		}).Create(&membership).Error
		if err != nil {
			return fmt.Errorf("failed to upsert membership: %w", err)
		}

		credential := models.Credential{
			UserID:         user.ID,
			OrganizationID: org.ID,
			AccessToken:    encryptedAccess,
			RefreshToken:   encryptedRefresh,
			TokenType:      grant.TokenType,
			Scope:          grant.Scope,
			ExpiresAt:      grant.ExpiresAt,
		}
		err = tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "organization_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"access_token", "refresh_token", "token_type", "scope", "expires_at", "updated_at",
			}),
		}).Create(&credential).Error
		if err != nil {
			return fmt.Errorf("failed to upsert credential: %w", err)
		}

		result = Installation{
			PlatformUserID: profile.UserID,
			CompanyID:      profile.CompanyID,
			UserID:         user.ID.String(),
			OrganizationID: org.ID.String(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.GetLogger().Info("installation saved", utils.LogFields{
		"platform_user_id": result.PlatformUserID,
		"company_id":       result.CompanyID,
	})

	return &result, nil
}

// Uninstall removes the credential for the pair and collects orphans: an
// organization with no remaining memberships is deleted (todos cascade), a
// user with no remaining memberships is deleted. Credential and membership
// removal precede the counts so they reflect post-cleanup state, and the
// orphan checks share the credential's transaction to close the window
// against a concurrent reinstall.
func (s *InstallationService) Uninstall(ctx context.Context, platformUserID, companyID int64) error {
	logger := utils.GetLogger()

	return s.sessions.Bypass(ctx, func(tx *gorm.DB) error {
		user, err := userByPlatformID(tx, platformUserID)
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		org, err := organizationByCompanyID(tx, companyID)
		if errors.Is(err, ErrOrganizationNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		err = tx.Where("user_id = ? AND organization_id = ?", user.ID, org.ID).
			Delete(&models.Credential{}).Error
		if err != nil {
			return fmt.Errorf("failed to delete credential: %w", err)
		}

		// The membership is the credential's logical child; removing it here
		// keeps the orphan counts below accurate.
		err = tx.Where("user_id = ? AND organization_id = ?", user.ID, org.ID).
			Delete(&models.Membership{}).Error
		if err != nil {
			return fmt.Errorf("failed to delete membership: %w", err)
		}

		orgMembers, err := countOrganizationMemberships(tx, org.ID)
		if err != nil {
			return err
		}
		if orgMembers == 0 {
			if err := tx.Delete(&models.Organization{}, "id = ?", org.ID).Error; err != nil {
				return fmt.Errorf("failed to delete organization: %w", err)
			}
			logger.Info("organization deleted, no members remaining", utils.LogFields{
				"company_id": companyID,
			})
		}

		userOrgs, err := countUserMemberships(tx, user.ID)
		if err != nil {
			return err
		}
		if userOrgs == 0 {
			if err := tx.Delete(&models.User{}, "id = ?", user.ID).Error; err != nil {
				return fmt.Errorf("failed to delete user: %w", err)
			}
			logger.Info("user deleted, no memberships remaining", utils.LogFields{
				"platform_user_id": platformUserID,
			})
		}

		return nil
	})
}

// GetInstallation returns the stored grant for the pair, or nil when the
// user, organization, or credential is absent.
func (s *InstallationService) GetInstallation(ctx context.Context, platformUserID, companyID int64) (*InstallationView, error) {
	var view *InstallationView

	err := s.sessions.Bypass(ctx, func(tx *gorm.DB) error {
		user, err := userByPlatformID(tx, platformUserID)
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		org, err := organizationByCompanyID(tx, companyID)
		if errors.Is(err, ErrOrganizationNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		var credential models.Credential
		err = tx.Where("user_id = ? AND organization_id = ?", user.ID, org.ID).
			First(&credential).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load credential: %w", err)
		}

		accessToken, err := s.encryption.Decrypt(credential.AccessToken)
		if err != nil {
			return fmt.Errorf("failed to decrypt access token: %w", err)
		}
		refreshToken, err := s.encryption.Decrypt(credential.RefreshToken)
		if err != nil {
			return fmt.Errorf("failed to decrypt refresh token: %w", err)
		}

		view = &InstallationView{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			TokenType:    credential.TokenType,
			Scope:        credential.Scope,
			APIDomain:    org.APIDomain,
			UserID:       platformUserID,
			CompanyID:    companyID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return view, nil
}

// RefreshProfile re-fetches the caller's profile from the platform with the
// stored token and writes the latest user and company attributes back.
func (s *InstallationService) RefreshProfile(ctx context.Context, platformUserID, companyID int64) (*Profile, error) {
	view, err := s.GetInstallation(ctx, platformUserID, companyID)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, ErrUserNotFound
	}

	profile, err := s.crm.FetchProfile(ctx, view.APIDomain, view.AccessToken)
	if err != nil {
		return nil, err
	}

	err = s.sessions.Bypass(ctx, func(tx *gorm.DB) error {
		err := tx.Model(&models.User{}).
			Where("platform_user_id = ?", platformUserID).
			Updates(map[string]interface{}{
				"email":       profile.Email,
				"name":        profile.Name,
				"locale":      profile.Locale,
				"language":    profile.Language,
				"timezone":    profile.Timezone,
				"is_admin":    profile.IsAdmin,
				"active_flag": profile.ActiveFlag,
				"updated_at":  time.Now().UTC(),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to update user profile: %w", err)
		}

		err = tx.Model(&models.Organization{}).
			Where("company_id = ?", companyID).
			Updates(map[string]interface{}{
				"company_name":    profile.CompanyName,
				"company_domain":  profile.CompanyDomain,
				"company_country": profile.CompanyCountry,
				"updated_at":      time.Now().UTC(),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to update organization profile: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return profile, nil
}
