package types

import (
	"time"

	"github.com/TanzeemAgra/Healthcare-sub004/pkg/rbac"
)

// PermissionUser is the "user" object of the permission endpoints
type PermissionUser struct {
	ID                string          `json:"id"`
	Email             string          `json:"email"`
	Role              rbac.Role       `json:"role"`
	IsSuperuser       bool            `json:"is_superuser"`
	IsSuperAdmin      bool            `json:"is_super_admin"`
	Permissions       map[string]bool `json:"permissions"`
	DashboardFeatures map[string]bool `json:"dashboard_features"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Identity extracts the resolver identity from the payload
func (u *PermissionUser) Identity() *rbac.Identity {
	return &rbac.Identity{
		UserID:       u.ID,
		Email:        u.Email,
		Role:         u.Role,
		IsSuperuser:  u.IsSuperuser,
		IsSuperAdmin: u.IsSuperAdmin,
	}
}

// Record extracts the permission record from the payload
func (u *PermissionUser) Record() *rbac.PermissionRecord {
	core := u.Permissions
	if core == nil {
		core = map[string]bool{}
	}
	features := u.DashboardFeatures
	if features == nil {
		features = map[string]bool{}
	}
	return &rbac.PermissionRecord{
		UserID:            u.ID,
		CorePermissions:   core,
		DashboardFeatures: features,
		UpdatedAt:         u.UpdatedAt,
	}
}

// NewPermissionUser builds the payload for a user and their record
func NewPermissionUser(user *User, record *rbac.PermissionRecord) *PermissionUser {
	out := &PermissionUser{
		ID:           user.ID,
		Email:        user.Email,
		Role:         user.Role,
		IsSuperuser:  user.IsSuperuser,
		IsSuperAdmin: user.Role == rbac.RoleSuperAdmin,
	}
	if record != nil {
		out.Permissions = record.CorePermissions
		out.DashboardFeatures = record.DashboardFeatures
		out.UpdatedAt = record.UpdatedAt
	}
	return out
}

// PermissionsResponse is returned by GET /permissions/me and GET /users/{id}/permissions
type PermissionsResponse struct {
	Success bool            `json:"success"`
	User    *PermissionUser `json:"user,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// PermissionsUpdateRequest is the full-replacement body of PUT|POST /users/{id}/permissions
type PermissionsUpdateRequest struct {
	Permissions       map[string]bool `json:"permissions"`
	DashboardFeatures map[string]bool `json:"dashboard_features"`
}

// StatusResponse is the generic {success, error?} envelope
type StatusResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// UserResponse is returned by the user creation endpoints
type UserResponse struct {
	Success bool   `json:"success"`
	User    *User  `json:"user,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// QuotaResponse is returned by the quota endpoints
type QuotaResponse struct {
	Success bool               `json:"success"`
	Quota   *UserCreationQuota `json:"quota,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// LoginResponse is returned by POST /auth/login
type LoginResponse struct {
	Success bool       `json:"success"`
	Token   *AuthToken `json:"token,omitempty"`
	Error   string     `json:"error,omitempty"`
}
