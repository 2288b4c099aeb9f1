package rbac

import (
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/modules"
)

// Capabilities is the read side shared by resolvers, capability sets and
// session contexts. Every method is total and fails closed.
type Capabilities interface {
	HasPermission(key CorePermission) bool
	HasDashboardFeature(key modules.FeatureKey) bool
	CanCreateAdmins() bool
	IsSuperAdmin() bool
}

var (
	_ Capabilities = (*Resolver)(nil)
	_ Capabilities = CapabilitySet{}
)
