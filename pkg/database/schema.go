package database

import (
	"context"
	"fmt"
)

// CreateSchema creates the users, permission override and quota tables.
// Statements are idempotent so the call is safe on every start.
func (db *DB) CreateSchema(ctx context.Context) error {
	db.logger.WithComponent("database").Info("Creating database schema...")

	for _, stmt := range Schema() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}

	db.logger.WithComponent("database").Info("Database schema created successfully")
	return nil
}

// Schema returns the DDL statements in dependency order
func Schema() []string {
	return []string{
		createUsersTable,
		createUserPermissionsTable,
		createUserCreationQuotasTable,
		createUsersIndexes,
	}
}

// SQL DDL statements for table creation
const (
	createUsersTable = `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email VARCHAR(255) NOT NULL,
			full_name VARCHAR(120) NOT NULL,
			role VARCHAR(32) NOT NULL CHECK (role IN ('patient', 'doctor', 'nurse', 'pharmacist', 'admin', 'super_admin')),
			is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_by UUID REFERENCES users(id),
			password_hash VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	createUserPermissionsTable = `
		CREATE TABLE IF NOT EXISTS user_permissions (
			user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			permissions JSONB NOT NULL DEFAULT '{}'::jsonb,
			dashboard_features JSONB NOT NULL DEFAULT '{}'::jsonb,
			updated_by UUID REFERENCES users(id),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	createUserCreationQuotasTable = `
		CREATE TABLE IF NOT EXISTS user_creation_quotas (
			admin_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			max_doctors INTEGER NOT NULL CHECK (max_doctors >= 0),
			max_nurses INTEGER NOT NULL CHECK (max_nurses >= 0),
			max_patients INTEGER NOT NULL CHECK (max_patients >= 0),
			max_pharmacists INTEGER NOT NULL CHECK (max_pharmacists >= 0),
			max_total_users INTEGER NOT NULL CHECK (max_total_users >= 0),
			reset_period VARCHAR(16) NOT NULL CHECK (reset_period IN ('monthly', 'yearly', 'never')),
			doctors_created INTEGER NOT NULL DEFAULT 0,
			nurses_created INTEGER NOT NULL DEFAULT 0,
			patients_created INTEGER NOT NULL DEFAULT 0,
			pharmacists_created INTEGER NOT NULL DEFAULT 0,
			total_users_created INTEGER NOT NULL DEFAULT 0,
			last_reset_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	createUsersIndexes = `
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email));
		CREATE INDEX IF NOT EXISTS idx_users_created_by ON users (created_by);
		CREATE INDEX IF NOT EXISTS idx_users_role ON users (role);`
)
