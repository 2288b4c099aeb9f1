package types

import (
	"time"

	"github.com/TanzeemAgra/Healthcare-sub004/pkg/rbac"
)

// User represents a platform account
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	FullName     string    `json:"full_name" db:"full_name"`
	Role         rbac.Role `json:"role" db:"role"`
	IsSuperuser  bool      `json:"is_superuser" db:"is_superuser"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedBy    string    `json:"created_by,omitempty" db:"created_by"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Identity projects the user onto the fields the resolver consumes
func (u *User) Identity() *rbac.Identity {
	return &rbac.Identity{
		UserID:       u.ID,
		Email:        u.Email,
		Role:         u.Role,
		IsSuperuser:  u.IsSuperuser,
		IsSuperAdmin: u.Role == rbac.RoleSuperAdmin,
	}
}

// UserClaims represents JWT token claims
type UserClaims struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	Role        rbac.Role `json:"role"`
	IsSuperuser bool      `json:"is_superuser"`
}

// Identity converts token claims to a resolver identity
func (c *UserClaims) Identity() *rbac.Identity {
	return &rbac.Identity{
		UserID:       c.UserID,
		Email:        c.Email,
		Role:         c.Role,
		IsSuperuser:  c.IsSuperuser,
		IsSuperAdmin: c.Role == rbac.RoleSuperAdmin,
	}
}

// Credentials represents user login credentials
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthToken represents authentication token response
type AuthToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
}

// CreateUserRequest is submitted by an admin creating a staff or patient account
type CreateUserRequest struct {
	Email    string    `json:"email" validate:"required,email"`
	FullName string    `json:"full_name" validate:"required,min=2,max=120"`
	Password string    `json:"password" validate:"required,min=8"`
	Role     rbac.Role `json:"role" validate:"required,oneof=doctor nurse patient pharmacist"`
}

// CreateAdminRequest is submitted by a super admin creating an admin account
type CreateAdminRequest struct {
	Email             string             `json:"email" validate:"required,email"`
	FullName          string             `json:"full_name" validate:"required,min=2,max=120"`
	Password          string             `json:"password" validate:"required,min=8"`
	Permissions       map[string]bool    `json:"permissions"`
	DashboardFeatures map[string]bool    `json:"dashboard_features"`
	UserCreationQuota *UserCreationQuota `json:"user_creation_quota" validate:"omitempty"`
}
