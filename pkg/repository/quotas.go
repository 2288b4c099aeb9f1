package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/TanzeemAgra/Healthcare-sub004/pkg/logger"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/rbac"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/types"
)

// ErrCodeQuotaNotFound is returned when an admin has no quota row
const ErrCodeQuotaNotFound = "QUOTA_NOT_FOUND"

// QuotaRepository persists user creation quotas and their usage counters
type QuotaRepository struct {
	db     Querier
	logger *logger.Logger
}

// NewQuotaRepository creates a new quota repository
func NewQuotaRepository(db Querier, log *logger.Logger) *QuotaRepository {
	return &QuotaRepository{
		db:     db,
		logger: log,
	}
}

const quotaColumns = `admin_id, max_doctors, max_nurses, max_patients, max_pharmacists, max_total_users,
		reset_period, doctors_created, nurses_created, patients_created, pharmacists_created,
		total_users_created, last_reset_at, updated_at`

// usageColumn maps a creatable role to its counter column
var usageColumn = map[rbac.Role]string{
	rbac.RoleDoctor:     "doctors_created",
	rbac.RoleNurse:      "nurses_created",
	rbac.RolePatient:    "patients_created",
	rbac.RolePharmacist: "pharmacists_created",
}

// Get returns the quota for adminID
func (r *QuotaRepository) Get(ctx context.Context, adminID string) (*types.UserCreationQuota, error) {
	query := `SELECT ` + quotaColumns + ` FROM user_creation_quotas WHERE admin_id = $1`
	return scanQuota(r.db.QueryRowContext(ctx, query, adminID))
}

// GetForUpdate reads the quota row under a row lock; callers must be inside a transaction
func (r *QuotaRepository) GetForUpdate(ctx context.Context, adminID string) (*types.UserCreationQuota, error) {
	query := `SELECT ` + quotaColumns + ` FROM user_creation_quotas WHERE admin_id = $1 FOR UPDATE`
	return scanQuota(r.db.QueryRowContext(ctx, query, adminID))
}

// Upsert writes the ceilings and reset period, leaving usage counters untouched
func (r *QuotaRepository) Upsert(ctx context.Context, quota *types.UserCreationQuota) error {
	now := time.Now().UTC()
	if quota.LastResetAt.IsZero() {
		quota.LastResetAt = now
	}
	quota.UpdatedAt = now

	query := `
		INSERT INTO user_creation_quotas (
			admin_id, max_doctors, max_nurses, max_patients, max_pharmacists,
			max_total_users, reset_period, last_reset_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (admin_id) DO UPDATE SET
			max_doctors = EXCLUDED.max_doctors,
			max_nurses = EXCLUDED.max_nurses,
			max_patients = EXCLUDED.max_patients,
			max_pharmacists = EXCLUDED.max_pharmacists,
			max_total_users = EXCLUDED.max_total_users,
			reset_period = EXCLUDED.reset_period,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		quota.AdminID,
		quota.MaxDoctors,
		quota.MaxNurses,
		quota.MaxPatients,
		quota.MaxPharmacists,
		quota.MaxTotalUsers,
		string(quota.ResetPeriod),
		quota.LastResetAt,
		quota.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert quota: %w", err)
	}
	return nil
}

// IncrementUsage counts one created user of role against adminID's quota
func (r *QuotaRepository) IncrementUsage(ctx context.Context, adminID string, role rbac.Role) error {
	column, ok := usageColumn[role]
	if !ok {
		return types.NewValidationError(types.ErrCodeInvalidInput, "Role is not subject to quota", map[string]interface{}{"role": role})
	}

	query := fmt.Sprintf(`
		UPDATE user_creation_quotas
		SET %[1]s = %[1]s + 1, total_users_created = total_users_created + 1, updated_at = $2
		WHERE admin_id = $1`, column)

	result, err := r.db.ExecContext(ctx, query, adminID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to increment quota usage: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return types.NewNotFoundError(ErrCodeQuotaNotFound, "Quota not found")
	}
	return nil
}

// ListResettable returns quotas whose period can roll over
func (r *QuotaRepository) ListResettable(ctx context.Context) ([]*types.UserCreationQuota, error) {
	query := `SELECT ` + quotaColumns + ` FROM user_creation_quotas WHERE reset_period <> 'never' ORDER BY admin_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotas: %w", err)
	}
	defer rows.Close()

	var quotas []*types.UserCreationQuota
	for rows.Next() {
		q, err := scanQuota(rows)
		if err != nil {
			return nil, err
		}
		quotas = append(quotas, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quotas: %w", err)
	}
	return quotas, nil
}

// ResetUsage zeroes the usage counters and stamps the reset time
func (r *QuotaRepository) ResetUsage(ctx context.Context, adminID string, at time.Time) error {
	query := `
		UPDATE user_creation_quotas
		SET doctors_created = 0, nurses_created = 0, patients_created = 0,
			pharmacists_created = 0, total_users_created = 0,
			last_reset_at = $2, updated_at = $2
		WHERE admin_id = $1`

	if _, err := r.db.ExecContext(ctx, query, adminID, at); err != nil {
		return fmt.Errorf("failed to reset quota usage: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"admin_id": adminID,
		"reset_at": at,
	}).Info("Quota usage reset")
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuota(row rowScanner) (*types.UserCreationQuota, error) {
	var q types.UserCreationQuota
	var period string

	err := row.Scan(
		&q.AdminID,
		&q.MaxDoctors,
		&q.MaxNurses,
		&q.MaxPatients,
		&q.MaxPharmacists,
		&q.MaxTotalUsers,
		&period,
		&q.CurrentUsage.Doctors,
		&q.CurrentUsage.Nurses,
		&q.CurrentUsage.Patients,
		&q.CurrentUsage.Pharmacists,
		&q.CurrentUsage.TotalUsers,
		&q.LastResetAt,
		&q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.NewNotFoundError(ErrCodeQuotaNotFound, "Quota not found")
		}
		return nil, fmt.Errorf("failed to scan quota: %w", err)
	}

	q.ResetPeriod = types.ResetPeriod(period)
	return &q, nil
}
