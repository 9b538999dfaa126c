package database_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readRLSMigration(t *testing.T) string {
	t.Helper()

	raw, err := os.ReadFile(filepath.Join("..", "..", "migrations", "000002_enable_rls.up.sql"))
	require.NoError(t, err, "row-security migration must be present")

	return string(raw)
}

// The bypass must live inside the policies themselves. Toggling the
// row_security GUC cannot serve here: for a role the policies apply to it
// makes affected queries fail instead of skipping the policies, and FORCE
// puts even the table owner in that set.
func TestRLSMigrationBypassesViaPolicyPredicate(t *testing.T) {
	sql := readRLSMigration(t)

	assert.NotContains(t, sql, "row_security = off")
	assert.NotContains(t, sql, "SET LOCAL row_security")

	assert.Contains(t, sql, "CREATE OR REPLACE FUNCTION rls_bypassed()")
	assert.Contains(t, sql, "current_setting('app.bypass_rls', true)")

	policies := strings.Split(sql, "CREATE POLICY")[1:]
	require.Len(t, policies, 5, "one policy per tenant table")

	for _, policy := range policies {
		name := strings.Fields(policy)[0]
		assert.Contains(t, policy, "rls_bypassed() OR", "policy %s must honor the bypass variable", name)
	}
}

func TestRLSMigrationForcesAllTenantTables(t *testing.T) {
	sql := readRLSMigration(t)

	for _, table := range []string{"organizations", "users", "memberships", "credentials", "todos"} {
		assert.Contains(t, sql, "ALTER TABLE "+table+" ENABLE ROW LEVEL SECURITY")
		assert.Contains(t, sql, "ALTER TABLE "+table+" FORCE ROW LEVEL SECURITY")
	}
}
