package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/TanzeemAgra/Healthcare-sub004/pkg/logger"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/rbac"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/types"
)

// ErrCodePermissionsNotFound is returned when a user has no stored override record
const ErrCodePermissionsNotFound = "PERMISSIONS_NOT_FOUND"

// PermissionRepository stores per-user override records as JSONB maps
type PermissionRepository struct {
	db     Querier
	logger *logger.Logger
}

// NewPermissionRepository creates a new permission repository
func NewPermissionRepository(db Querier, log *logger.Logger) *PermissionRepository {
	return &PermissionRepository{
		db:     db,
		logger: log,
	}
}

// Get returns the stored record for userID
func (r *PermissionRepository) Get(ctx context.Context, userID string) (*rbac.PermissionRecord, error) {
	query := `
		SELECT permissions, dashboard_features, updated_at
		FROM user_permissions
		WHERE user_id = $1`

	var rawCore, rawFeatures []byte
	record := &rbac.PermissionRecord{UserID: userID}

	err := r.db.QueryRowContext(ctx, query, userID).Scan(&rawCore, &rawFeatures, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.NewNotFoundError(ErrCodePermissionsNotFound, "No permission record for user")
		}
		return nil, fmt.Errorf("failed to get permissions: %w", err)
	}

	if err := json.Unmarshal(rawCore, &record.CorePermissions); err != nil {
		return nil, fmt.Errorf("failed to decode permissions: %w", err)
	}
	if err := json.Unmarshal(rawFeatures, &record.DashboardFeatures); err != nil {
		return nil, fmt.Errorf("failed to decode dashboard features: %w", err)
	}
	if record.CorePermissions == nil {
		record.CorePermissions = map[string]bool{}
	}
	if record.DashboardFeatures == nil {
		record.DashboardFeatures = map[string]bool{}
	}

	return record, nil
}

// Replace overwrites both maps of the user's record; it is never a merge
func (r *PermissionRepository) Replace(ctx context.Context, record *rbac.PermissionRecord, updatedBy string) error {
	start := time.Now()

	core, err := json.Marshal(nonNil(record.CorePermissions))
	if err != nil {
		return fmt.Errorf("failed to encode permissions: %w", err)
	}
	features, err := json.Marshal(nonNil(record.DashboardFeatures))
	if err != nil {
		return fmt.Errorf("failed to encode dashboard features: %w", err)
	}

	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO user_permissions (user_id, permissions, dashboard_features, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			permissions = EXCLUDED.permissions,
			dashboard_features = EXCLUDED.dashboard_features,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at`

	result, err := r.db.ExecContext(ctx, query,
		record.UserID,
		string(core),
		string(features),
		nullString(updatedBy),
		record.UpdatedAt,
	)
	if err != nil {
		r.logger.DatabaseOperation(ctx, "upsert", "user_permissions", time.Since(start).Milliseconds(), 0, false)
		return fmt.Errorf("failed to replace permissions: %w", err)
	}

	rows, _ := result.RowsAffected()
	r.logger.DatabaseOperation(ctx, "upsert", "user_permissions", time.Since(start).Milliseconds(), rows, true)
	return nil
}

func nonNil(m map[string]bool) map[string]bool {
	if m == nil {
		return map[string]bool{}
	}
	return m
}
