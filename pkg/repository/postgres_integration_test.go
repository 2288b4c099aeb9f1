//go:build integration

package repository

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/TanzeemAgra/Healthcare-sub004/pkg/database"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/logger"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/rbac"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/types"
)

func setupPostgresTest(t *testing.T) *Store {
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("healthcare"),
		postgres.WithUsername("healthcare"),
		postgres.WithPassword("healthcare"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	log := logger.NewWithOutput("error", io.Discard)
	db, err := database.Open(dsn, nil, log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.CreateSchema(ctx))
	// Idempotent on restart
	require.NoError(t, db.CreateSchema(ctx))

	return NewStore(db.DB, log)
}

func createTestUser(t *testing.T, store *Store, role rbac.Role, email string) *types.User {
	now := time.Now().UTC()
	user := &types.User{
		ID:           uuid.New().String(),
		Email:        email,
		FullName:     "Test User",
		Role:         role,
		IsActive:     true,
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, store.Users.Create(context.Background(), user))
	return user
}

func TestPostgres_PermissionRoundTrip(t *testing.T) {
	store := setupPostgresTest(t)
	ctx := context.Background()
	admin := createTestUser(t, store, rbac.RoleAdmin, "admin@clinic.example")

	_, err := store.Permissions.Get(ctx, admin.ID)
	assert.True(t, types.IsType(err, types.ErrorTypeNotFound))

	record := rbac.DefaultRecord(admin.ID).Overlay(map[string]bool{"can_manage_users": true}, nil)
	require.NoError(t, store.Permissions.Replace(ctx, record, ""))

	got, err := store.Permissions.Get(ctx, admin.ID)
	require.NoError(t, err)
	assert.True(t, got.CorePermissions["can_manage_users"])
	assert.False(t, got.DashboardFeatures["medicine_module"])

	// Full replacement drops keys that are not resubmitted
	replacement := &rbac.PermissionRecord{
		UserID:            admin.ID,
		CorePermissions:   map[string]bool{"can_view_reports": true},
		DashboardFeatures: map[string]bool{},
	}
	require.NoError(t, store.Permissions.Replace(ctx, replacement, ""))

	got, err = store.Permissions.Get(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"can_view_reports": true}, got.CorePermissions)
	assert.Empty(t, got.DashboardFeatures)
}

func TestPostgres_DuplicateEmailIsConflict(t *testing.T) {
	store := setupPostgresTest(t)
	createTestUser(t, store, rbac.RoleDoctor, "doc@clinic.example")

	now := time.Now().UTC()
	err := store.Users.Create(context.Background(), &types.User{
		ID:           uuid.New().String(),
		Email:        "DOC@clinic.example",
		FullName:     "Duplicate",
		Role:         rbac.RoleDoctor,
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	assert.True(t, types.IsType(err, types.ErrorTypeConflict))
}

func TestPostgres_QuotaReserveInTransaction(t *testing.T) {
	store := setupPostgresTest(t)
	ctx := context.Background()
	admin := createTestUser(t, store, rbac.RoleAdmin, "admin@clinic.example")

	quota := types.DefaultQuota(admin.ID)
	quota.MaxDoctors = 1
	require.NoError(t, store.Quotas.Upsert(ctx, quota))

	err := store.WithTx(ctx, func(repos *Repositories) error {
		q, err := repos.Quotas.GetForUpdate(ctx, admin.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, 0, q.CurrentUsage.Doctors)
		return repos.Quotas.IncrementUsage(ctx, admin.ID, rbac.RoleDoctor)
	})
	require.NoError(t, err)

	got, err := store.Quotas.Get(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentUsage.Doctors)
	assert.Equal(t, 1, got.CurrentUsage.TotalUsers)

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.Quotas.ResetUsage(ctx, admin.ID, at))

	got, err = store.Quotas.Get(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, types.QuotaUsage{}, got.CurrentUsage)
	assert.True(t, got.LastResetAt.Equal(at))
}
