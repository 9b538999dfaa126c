package services_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pipeflow/deal-todo-api/internal/database"
)

// newTestDB opens an isolated in-memory database with the full schema. Row
// security itself is a Postgres concern covered by the SQL migrations; these
// tests exercise the service semantics on top of the same scoping calls.
func newTestDB(t *testing.T) (*gorm.DB, *database.SessionManager) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)
	require.NoError(t, database.Migrate(db))

	return db, database.NewSessionManager(database.NewGormAdapter(db))
}
