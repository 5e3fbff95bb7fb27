package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/caseflow/caseflow/internal/application/port"
	"github.com/caseflow/caseflow/internal/domain/workflow"
	"github.com/caseflow/caseflow/internal/infrastructure/persistence/sqlite"
)

// UserRepository implements port.RoleResolver against the local user
// directory tables. Credential management stays outside this system; the
// engine only ever asks which roles a user holds.
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.RoleResolver {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// GetRoles returns the roles held by a user. Fails with
// workflow.ErrNotFound when no user record exists.
func (r *UserRepository) GetRoles(ctx context.Context, userID string) ([]string, error) {
	ex := sqlite.ExecutorFrom(ctx, r.db)

	var exists int
	err := ex.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, userID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user %q", workflow.ErrNotFound, userID)
	}
	if err != nil {
		r.logger.Error("Failed to look up user", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	rows, err := ex.QueryContext(ctx, `SELECT role FROM user_roles WHERE user_id = ?`, userID)
	if err != nil {
		r.logger.Error("Failed to load roles", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// Verify interface compliance
var _ port.RoleResolver = (*UserRepository)(nil)
