package rbac

import (
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/modules"
)

// Resolver maps an identity and its override record to capability decisions.
// It holds no mutable state: identical inputs always give identical answers.
// A nil record (not yet loaded) denies everything except the super-admin bypass.
type Resolver struct {
	identity *Identity
	record   *PermissionRecord
	policy   SuperAdminPolicy
}

// NewResolver creates a resolver over the given inputs
func NewResolver(identity *Identity, record *PermissionRecord, policy SuperAdminPolicy) *Resolver {
	return &Resolver{
		identity: identity,
		record:   record,
		policy:   policy,
	}
}

// IsSuperAdmin reports whether the identity bypasses the override record
func (r *Resolver) IsSuperAdmin() bool {
	if r == nil || r.identity == nil {
		return false
	}
	id := r.identity
	return id.Role == RoleSuperAdmin || id.IsSuperuser || id.IsSuperAdmin || r.policy.allows(id.Email)
}

// HasPermission reports whether the core permission is granted
func (r *Resolver) HasPermission(key CorePermission) bool {
	if r.IsSuperAdmin() {
		return true
	}
	if r == nil || r.record == nil {
		return false
	}
	return r.record.CorePermissions[string(key)]
}

// HasDashboardFeature reports whether the dashboard feature is enabled
func (r *Resolver) HasDashboardFeature(key modules.FeatureKey) bool {
	if r.IsSuperAdmin() {
		return true
	}
	if r == nil || r.record == nil {
		return false
	}
	return r.record.DashboardFeatures[string(key)]
}

// CanCreateAdmins is reserved to the super_admin role. Neither overrides,
// the superuser flag nor the email allowlist can grant it.
func (r *Resolver) CanCreateAdmins() bool {
	if r == nil || r.identity == nil {
		return false
	}
	return r.identity.Role == RoleSuperAdmin
}

// Resolve projects the inputs into a capability set. Keys that are not part of
// the core permission list or the module registry are dropped.
func (r *Resolver) Resolve() CapabilitySet {
	set := CapabilitySet{
		SuperAdmin:   r.IsSuperAdmin(),
		CreateAdmins: r.CanCreateAdmins(),
		Core:         make(map[CorePermission]bool, len(corePermissions)),
		Features:     make(map[modules.FeatureKey]bool),
	}

	for _, p := range corePermissions {
		if r.HasPermission(p) {
			set.Core[p] = true
		}
	}
	for _, fk := range modules.FeatureKeys() {
		if r.HasDashboardFeature(fk) {
			set.Features[fk] = true
		}
	}

	return set
}

// CapabilitySet is the resolved, read-only view of what a session may do.
// The zero value denies everything.
type CapabilitySet struct {
	SuperAdmin   bool                        `json:"super_admin"`
	CreateAdmins bool                        `json:"can_create_admins"`
	Core         map[CorePermission]bool     `json:"permissions"`
	Features     map[modules.FeatureKey]bool `json:"dashboard_features"`
}

// HasPermission reports whether key is granted in the set
func (c CapabilitySet) HasPermission(key CorePermission) bool {
	return c.SuperAdmin || c.Core[key]
}

// HasDashboardFeature reports whether key is enabled in the set
func (c CapabilitySet) HasDashboardFeature(key modules.FeatureKey) bool {
	return c.SuperAdmin || c.Features[key]
}

// CanCreateAdmins reports whether admin accounts may be created
func (c CapabilitySet) CanCreateAdmins() bool {
	return c.CreateAdmins
}

// IsSuperAdmin reports the super-admin bypass
func (c CapabilitySet) IsSuperAdmin() bool {
	return c.SuperAdmin
}

// GrantedPermissions lists granted core permissions in declaration order
func (c CapabilitySet) GrantedPermissions() []CorePermission {
	var out []CorePermission
	for _, p := range corePermissions {
		if c.HasPermission(p) {
			out = append(out, p)
		}
	}
	return out
}

// EnabledFeatures lists enabled feature keys in registry order
func (c CapabilitySet) EnabledFeatures() []modules.FeatureKey {
	var out []modules.FeatureKey
	for _, fk := range modules.FeatureKeys() {
		if c.HasDashboardFeature(fk) {
			out = append(out, fk)
		}
	}
	return out
}
