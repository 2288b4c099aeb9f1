package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/TanzeemAgra/Healthcare-sub004/pkg/rbac"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/types"
)

// Querier is satisfied by both *sql.DB and *sql.Tx
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// UserRepositoryInterface defines the interface for user operations
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *types.User) error
	GetByID(ctx context.Context, userID string) (*types.User, error)
	GetByEmail(ctx context.Context, email string) (*types.User, error)
}

// PermissionRepositoryInterface defines the interface for per-user override records
type PermissionRepositoryInterface interface {
	Get(ctx context.Context, userID string) (*rbac.PermissionRecord, error)
	Replace(ctx context.Context, record *rbac.PermissionRecord, updatedBy string) error
}

// QuotaRepositoryInterface defines the interface for user creation quotas
type QuotaRepositoryInterface interface {
	Get(ctx context.Context, adminID string) (*types.UserCreationQuota, error)
	Upsert(ctx context.Context, quota *types.UserCreationQuota) error
	GetForUpdate(ctx context.Context, adminID string) (*types.UserCreationQuota, error)
	IncrementUsage(ctx context.Context, adminID string, role rbac.Role) error
	ListResettable(ctx context.Context) ([]*types.UserCreationQuota, error)
	ResetUsage(ctx context.Context, adminID string, at time.Time) error
}

// Repositories groups the repositories bound to one Querier
type Repositories struct {
	Users       UserRepositoryInterface
	Permissions PermissionRepositoryInterface
	Quotas      QuotaRepositoryInterface
}

// Transactor runs fn with repositories bound to a single transaction
type Transactor interface {
	WithTx(ctx context.Context, fn func(repos *Repositories) error) error
}
