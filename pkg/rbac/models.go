package rbac

import (
	"strings"
	"time"

	"github.com/TanzeemAgra/Healthcare-sub004/pkg/modules"
)

// Identity carries the identity fields the resolver consumes
type Identity struct {
	UserID       string `json:"id"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	IsSuperuser  bool   `json:"is_superuser"`
	IsSuperAdmin bool   `json:"is_super_admin"`
}

// PermissionRecord is the backend-owned override state for one user.
// Both maps are replaced wholesale on every save.
type PermissionRecord struct {
	UserID            string          `json:"user_id"`
	CorePermissions   map[string]bool `json:"permissions"`
	DashboardFeatures map[string]bool `json:"dashboard_features"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Clone returns a deep copy of the record
func (r *PermissionRecord) Clone() *PermissionRecord {
	if r == nil {
		return nil
	}
	return &PermissionRecord{
		UserID:            r.UserID,
		CorePermissions:   cloneFlags(r.CorePermissions),
		DashboardFeatures: cloneFlags(r.DashboardFeatures),
		UpdatedAt:         r.UpdatedAt,
	}
}

func cloneFlags(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// DefaultRecord returns the all-false record written when an admin account is created
func DefaultRecord(userID string) *PermissionRecord {
	core := make(map[string]bool, len(corePermissions))
	for _, p := range corePermissions {
		core[string(p)] = false
	}

	features := make(map[string]bool)
	for _, fk := range modules.FeatureKeys() {
		features[string(fk)] = false
	}

	return &PermissionRecord{
		UserID:            userID,
		CorePermissions:   core,
		DashboardFeatures: features,
	}
}

// Overlay returns a copy of r with every flag from granted applied on top.
// Used when create-admin submits a partial flag set.
func (r *PermissionRecord) Overlay(core, features map[string]bool) *PermissionRecord {
	out := r.Clone()
	for k, v := range core {
		out.CorePermissions[k] = v
	}
	for k, v := range features {
		out.DashboardFeatures[k] = v
	}
	return out
}

// SuperAdminPolicy holds the identity-based escape hatches honoured by the resolver
type SuperAdminPolicy struct {
	// EmailAllowlist grants super-admin status by email. Empty by default;
	// the role and the is_superuser flag are the intended sources of truth.
	EmailAllowlist []string
}

func (p SuperAdminPolicy) allows(email string) bool {
	if email == "" {
		return false
	}
	for _, allowed := range p.EmailAllowlist {
		if strings.EqualFold(strings.TrimSpace(allowed), strings.TrimSpace(email)) {
			return true
		}
	}
	return false
}
