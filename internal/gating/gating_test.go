package gating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TanzeemAgra/Healthcare-sub004/internal/session"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/modules"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/rbac"
)

type stateCaps struct {
	rbac.CapabilitySet
	state session.State
}

func (s stateCaps) State() session.State { return s.state }

func adminCaps() Capabilities {
	identity := &rbac.Identity{UserID: "admin-1", Role: rbac.RoleAdmin}
	record := &rbac.PermissionRecord{
		CorePermissions:   map[string]bool{"can_manage_users": true},
		DashboardFeatures: map[string]bool{"user_management": true, "cardiology_module": true, "medicine_module": true},
	}
	return Resolved(rbac.NewResolver(identity, record, rbac.SuperAdminPolicy{}).Resolve())
}

func superAdminCaps() Capabilities {
	identity := &rbac.Identity{UserID: "root", Role: rbac.RoleSuperAdmin}
	return Resolved(rbac.NewResolver(identity, &rbac.PermissionRecord{}, rbac.SuperAdminPolicy{}).Resolve())
}

func ids(items []NavItem) []string {
	out := make([]string, 0, len(items))
	for _, i := range items {
		out = append(out, i.ID)
	}
	return out
}

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, ValidateConfig(DefaultNavigation(), DefaultQuickActions()))
}

func TestValidateConfig_RejectsUnknownKeys(t *testing.T) {
	err := ValidateConfig([]NavItem{{ID: "x", Requirement: Requirement{Feature: "foo_module"}}}, nil)
	assert.ErrorContains(t, err, "foo_module")

	err = ValidateConfig(nil, []QuickAction{{ID: "y", Requirement: Requirement{Permission: "can_fly"}}})
	assert.ErrorContains(t, err, "can_fly")

	nested := []NavItem{{ID: "group", Children: []NavItem{{ID: "child", Requirement: Requirement{Feature: "medicine"}}}}}
	assert.Error(t, ValidateConfig(nested, nil))
}

func TestValidateConfig_RejectsDuplicateIDs(t *testing.T) {
	assert.Error(t, ValidateConfig([]NavItem{{ID: "a"}, {ID: "a"}}, nil))
	assert.Error(t, ValidateConfig(nil, []QuickAction{{ID: "b"}, {ID: "b"}}))
	assert.Error(t, ValidateConfig([]NavItem{{Label: "no id"}}, nil))
}

func TestGate_Reasons(t *testing.T) {
	set := rbac.CapabilitySet{Core: map[rbac.CorePermission]bool{rbac.PermViewReports: true}}
	req := Requirement{Permission: rbac.PermViewReports}

	tests := []struct {
		state  session.State
		want   Decision
		reason string
	}{
		{session.StateReady, Decision{Render: true, Reason: ReasonAllowed}, "ready with permission"},
		{session.StateLoading, Decision{Reason: ReasonLoading}, "loading is not denied"},
		{session.StateError, Decision{Reason: ReasonError}, "error fails closed"},
		{session.StateUninitialized, Decision{Reason: ReasonDenied}, "signed out"},
	}
	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			assert.Equal(t, tt.want, Gate(stateCaps{set, tt.state}, req))
		})
	}

	assert.Equal(t, Decision{Reason: ReasonDenied}, Gate(Resolved(set), Requirement{Permission: rbac.PermExportData}))
	assert.Equal(t, Decision{Reason: ReasonDenied}, Gate(nil, Requirement{}))
}

func TestGate_EmptyRequirementNeedsReadySession(t *testing.T) {
	assert.True(t, Gate(Resolved(rbac.CapabilitySet{}), Requirement{}).Render)
	assert.False(t, Gate(stateCaps{state: session.StateLoading}, Requirement{}).Render)
}

func TestGate_ConditionsAreAnded(t *testing.T) {
	caps := adminCaps()
	assert.True(t, Gate(caps, Requirement{Permission: rbac.PermManageUsers, Feature: "user_management"}).Render)
	assert.False(t, Gate(caps, Requirement{Permission: rbac.PermManageUsers, Feature: "billing_reports"}).Render)
	assert.False(t, Gate(caps, Requirement{Permission: rbac.PermManageUsers, SuperAdminOnly: true}).Render)
}

func TestVisibleNavigation_Admin(t *testing.T) {
	visible := VisibleNavigation(adminCaps(), DefaultNavigation())
	assert.Equal(t, []string{"dashboard", "users", "specialties"}, ids(visible))

	specialties := visible[2]
	assert.Equal(t, []string{"module-medicine", "module-cardiology"}, ids(specialties.Children))
}

func TestVisibleNavigation_SuperAdminSeesEverything(t *testing.T) {
	nav := DefaultNavigation()
	visible := VisibleNavigation(superAdminCaps(), nav)
	assert.Equal(t, ids(nav), ids(visible))

	admin := visible[len(visible)-1]
	assert.Equal(t, []string{"admin-permissions", "admin-create"}, ids(admin.Children))
}

func TestVisibleNavigation_AllowlistedAdminCannotCreateAdmins(t *testing.T) {
	identity := &rbac.Identity{UserID: "ops", Email: "ops@clinic.example", Role: rbac.RoleAdmin}
	policy := rbac.SuperAdminPolicy{EmailAllowlist: []string{"ops@clinic.example"}}
	caps := Resolved(rbac.NewResolver(identity, nil, policy).Resolve())

	visible := VisibleNavigation(caps, DefaultNavigation())
	admin := visible[len(visible)-1]
	assert.Equal(t, "administration", admin.ID)
	assert.Equal(t, []string{"admin-permissions"}, ids(admin.Children))
}

func TestVisibleNavigation_DropsEmptyGroups(t *testing.T) {
	nav := []NavItem{
		{ID: "group", Label: "Group", Children: []NavItem{
			{ID: "child", Path: "/c", Requirement: Requirement{Permission: rbac.PermExportData}},
		}},
		{ID: "linked-group", Label: "Linked", Path: "/linked", Children: []NavItem{
			{ID: "linked-child", Path: "/lc", Requirement: Requirement{Permission: rbac.PermExportData}},
		}},
	}
	visible := VisibleNavigation(adminCaps(), nav)
	assert.Equal(t, []string{"linked-group"}, ids(visible))
	assert.Empty(t, visible[0].Children)
}

func TestVisibleNavigation_DoesNotMutateInput(t *testing.T) {
	nav := DefaultNavigation()
	before := len(nav[4].Children)
	VisibleNavigation(adminCaps(), nav)
	assert.Len(t, nav[4].Children, before)
}

func TestVisibleNavigation_LoadingShowsNothing(t *testing.T) {
	assert.Empty(t, VisibleNavigation(stateCaps{state: session.StateLoading}, DefaultNavigation()))
	assert.Empty(t, VisibleQuickActions(stateCaps{state: session.StateError}, DefaultQuickActions()))
}

func TestVisibleQuickActions(t *testing.T) {
	actions := VisibleQuickActions(adminCaps(), DefaultQuickActions())
	require.Len(t, actions, 1)
	assert.Equal(t, "create-user", actions[0].ID)

	all := VisibleQuickActions(superAdminCaps(), DefaultQuickActions())
	assert.Len(t, all, len(DefaultQuickActions()))
}

func TestVisibleModules_RegistryOrder(t *testing.T) {
	visible := VisibleModules(adminCaps())
	keys := make([]modules.Key, 0, len(visible))
	for _, m := range visible {
		keys = append(keys, m.Key)
	}
	assert.Equal(t, []modules.Key{modules.Medicine, modules.Cardiology, modules.UserManagement}, keys)

	assert.Len(t, VisibleModules(superAdminCaps()), len(modules.List()))
	assert.Empty(t, VisibleModules(Resolved(rbac.CapabilitySet{})))
}

func TestSessionContextSatisfiesCapabilities(t *testing.T) {
	var caps Capabilities = session.New(nil, rbac.SuperAdminPolicy{})
	assert.Equal(t, Decision{Reason: ReasonDenied}, Gate(caps, Requirement{}))
}
