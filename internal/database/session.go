package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrMissingIdentity is returned when an identity scope is entered without a
// caller id. Always a programming error; never retried.
var ErrMissingIdentity = errors.New("caller identity is required for tenant-scoped operations")

// Session variables the row-security policies key on. With both unset every
// policy predicate is false, so queries outside any scope see no tenant rows
// instead of failing.
//
// The bypass is a policy predicate on bypassVar, not the row_security GUC:
// that GUC cannot disable policies for a role they apply to (it makes
// affected queries error out), and the policies are FORCEd even for the
// table owner.
const (
	identityVar = "app.current_user_id"
	bypassVar   = "app.bypass_rls"
)

// SessionManager scopes the row-security session variables to exactly one
// unit of work. Both scopes run inside a transaction so the variables are
// connection-local and can never leak through the pool into an unrelated
// request: set_config(..., true) is discarded at commit or rollback, and
// the previous value is restored explicitly so nested scopes compose.
type SessionManager struct {
	db Database
}

func NewSessionManager(db Database) *SessionManager {
	return &SessionManager{db: db}
}

// WithIdentity runs fn in a transaction with the caller's internal user id
// established for the row-security policies. The previous identity (empty
// outside a nested scope) is restored on every exit path.
func (m *SessionManager) WithIdentity(ctx context.Context, userID uuid.UUID, fn func(tx *gorm.DB) error) error {
	if userID == uuid.Nil {
		return ErrMissingIdentity
	}

	return m.db.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !rowSecuritySupported(tx) {
			return fn(tx)
		}

		var prev string
		if err := tx.Raw("SELECT COALESCE(current_setting(?, true), '')", identityVar).Scan(&prev).Error; err != nil {
			return fmt.Errorf("failed to read session identity: %w", err)
		}

		if err := tx.Exec("SELECT set_config(?, ?, true)", identityVar, userID.String()).Error; err != nil {
			return fmt.Errorf("failed to establish caller identity: %w", err)
		}

		fnErr := fn(tx)

		// On error the transaction rolls back and the txn-local setting dies
		// with it; restoring here keeps nested scopes correct on success.
		if err := tx.Exec("SELECT set_config(?, ?, true)", identityVar, prev).Error; err != nil && fnErr == nil {
			return fmt.Errorf("failed to restore session identity: %w", err)
		}

		return fnErr
	})
}

// Bypass runs fn in a transaction with the policies' bypass predicate
// satisfied. Used only by the installation lifecycle and external-id
// resolution, which must touch rows before any caller identity exists. The
// previous bypass state is restored on exit so a scope nested inside another
// leaves the outer scope intact.
func (m *SessionManager) Bypass(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return m.db.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !rowSecuritySupported(tx) {
			return fn(tx)
		}

		var prev string
		if err := tx.Raw("SELECT COALESCE(current_setting(?, true), '')", bypassVar).Scan(&prev).Error; err != nil {
			return fmt.Errorf("failed to read bypass state: %w", err)
		}

		if err := tx.Exec("SELECT set_config(?, ?, true)", bypassVar, "on").Error; err != nil {
			return fmt.Errorf("failed to enter bypass scope: %w", err)
		}

		fnErr := fn(tx)

		if err := tx.Exec("SELECT set_config(?, ?, true)", bypassVar, prev).Error; err != nil && fnErr == nil {
			return fmt.Errorf("failed to exit bypass scope: %w", err)
		}

		return fnErr
	})
}

// rowSecuritySupported reports whether the dialect understands the Postgres
// session-variable statements. The sqlite test database skips them; the
// services' scoping contract is still exercised, enforcement is covered by
// the Postgres policies in migrations/.
func rowSecuritySupported(tx *gorm.DB) bool {
	return tx.Dialector.Name() == "postgres"
}
