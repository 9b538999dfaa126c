package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pipeflow/deal-todo-api/internal/config"
	"github.com/pipeflow/deal-todo-api/internal/database"
	"github.com/pipeflow/deal-todo-api/internal/models"
	"github.com/pipeflow/deal-todo-api/internal/services"
)

// Local development seeder: installs a demo tenant with a handful of todos so
// the panel has something to render without going through the OAuth flow.

type CLI struct {
	db         *gorm.DB
	encryption *services.EncryptionService
}

const (
	demoUserID    = 4242
	demoCompanyID = 9001
	demoDealID    = "1"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	cli := &CLI{
		db:         db.DB(),
		encryption: services.NewEncryptionService(cfg.Security.EncryptionKey),
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "demo":
		if err := cli.seedDemo(); err != nil {
			log.Fatalf("Failed to seed demo data: %v", err)
		}
		fmt.Println("Demo tenant seeded")
	case "purge":
		if err := cli.purgeDemo(); err != nil {
			log.Fatalf("Failed to purge demo data: %v", err)
		}
		fmt.Println("Demo tenant removed")
	default:
		printUsage()
		os.Exit(1)
	}
}

func (c *CLI) seedDemo() error {
	accessToken, err := c.encryption.Encrypt("demo-access-token")
	if err != nil {
		return err
	}
	refreshToken, err := c.encryption.Encrypt("demo-refresh-token")
	if err != nil {
		return err
	}

	return c.db.Transaction(func(tx *gorm.DB) error {
		org := models.Organization{
			CompanyID:     demoCompanyID,
			CompanyName:   "Demo Company",
			CompanyDomain: "demo-company",
			APIDomain:     "https://demo-company.example-crm.com",
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "company_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"company_name", "company_domain", "api_domain", "updated_at"}),
		}).Create(&org).Error; err != nil {
			return err
		}
		if err := tx.Where("company_id = ?", demoCompanyID).First(&org).Error; err != nil {
			return err
		}

		user := models.User{
			PlatformUserID: demoUserID,
			Email:          "demo@example.com",
			Name:           "Demo User",
			Locale:         "en_US",
			Language:       "en",
			Timezone:       "Europe/Berlin",
			IsAdmin:        true,
			ActiveFlag:     true,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "platform_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "name", "updated_at"}),
		}).Create(&user).Error; err != nil {
			return err
		}
		if err := tx.Where("platform_user_id = ?", demoUserID).First(&user).Error; err != nil {
			return err
		}

		membership := models.Membership{
			UserID:         user.ID,
			OrganizationID: org.ID,
			Role:           models.RoleOwner,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "organization_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role"}),
		}).Create(&membership).Error; err != nil {
			return err
		}

		credential := models.Credential{
			UserID:         user.ID,
			OrganizationID: org.ID,
			AccessToken:    accessToken,
			RefreshToken:   refreshToken,
			TokenType:      "Bearer",
			Scope:          "base deals:read",
			ExpiresAt:      time.Now().Add(1 * time.Hour),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "organization_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "expires_at", "updated_at"}),
		}).Create(&credential).Error; err != nil {
			return err
		}

		titles := []string{"Call the prospect", "Send the proposal", "Schedule a demo"}
		for i, title := range titles {
			todo := models.Todo{
				OrganizationID: org.ID,
				DealID:         demoDealID,
				Title:          title,
				DisplayOrder:   i + 1,
			}
			if err := tx.Create(&todo).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (c *CLI) purgeDemo() error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		var org models.Organization
		err := tx.Where("company_id = ?", demoCompanyID).First(&org).Error
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.Delete(&models.Organization{}, "id = ?", org.ID).Error; err != nil {
			return err
		}

		return tx.Delete(&models.User{}, "platform_user_id = ?", demoUserID).Error
	})
}

func printUsage() {
	fmt.Println(`Usage: go run cmd/seed/main.go <command>

Commands:
  demo     Install a demo tenant with sample todos
  purge    Remove the demo tenant`)
}
