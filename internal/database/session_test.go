package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pipeflow/deal-todo-api/internal/database"
	"github.com/pipeflow/deal-todo-api/internal/models"
)

func newTestManager(t *testing.T) (*gorm.DB, *database.SessionManager) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps the in-memory database alive and shared.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)
	require.NoError(t, database.Migrate(db))

	return db, database.NewSessionManager(database.NewGormAdapter(db))
}

func TestWithIdentityRequiresCaller(t *testing.T) {
	_, sessions := newTestManager(t)

	err := sessions.WithIdentity(context.Background(), uuid.Nil, func(tx *gorm.DB) error {
		t.Fatal("work must not run without a caller identity")
		return nil
	})

	assert.ErrorIs(t, err, database.ErrMissingIdentity)
}

func TestWithIdentityCommitsWork(t *testing.T) {
	db, sessions := newTestManager(t)

	err := sessions.WithIdentity(context.Background(), uuid.New(), func(tx *gorm.DB) error {
		return tx.Create(&models.Organization{
			CompanyID:   100,
			CompanyName: "Acme",
			APIDomain:   "https://acme.example-crm.com",
		}).Error
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Organization{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestWithIdentityRollsBackOnError(t *testing.T) {
	db, sessions := newTestManager(t)

	boom := errors.New("boom")
	err := sessions.WithIdentity(context.Background(), uuid.New(), func(tx *gorm.DB) error {
		if err := tx.Create(&models.Organization{
			CompanyID:   100,
			CompanyName: "Acme",
			APIDomain:   "https://acme.example-crm.com",
		}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&models.Organization{}).Count(&count).Error)
	assert.Equal(t, int64(0), count, "failed work must not leave rows behind")
}

func TestBypassCommitsWork(t *testing.T) {
	db, sessions := newTestManager(t)

	err := sessions.Bypass(context.Background(), func(tx *gorm.DB) error {
		return tx.Create(&models.User{
			PlatformUserID: 77,
			Email:          "someone@example.com",
			Name:           "Someone",
		}).Error
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestBypassRollsBackOnError(t *testing.T) {
	db, sessions := newTestManager(t)

	boom := errors.New("boom")
	err := sessions.Bypass(context.Background(), func(tx *gorm.DB) error {
		if err := tx.Create(&models.User{
			PlatformUserID: 77,
			Email:          "someone@example.com",
			Name:           "Someone",
		}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
