package gating

import (
	"fmt"

	"github.com/TanzeemAgra/Healthcare-sub004/internal/session"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/modules"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/rbac"
)

// Capabilities is what the gating layer reads: capability checks plus the
// load state, so that "still loading" can be told apart from "denied"
type Capabilities interface {
	rbac.Capabilities
	State() session.State
}

var _ Capabilities = (*session.Context)(nil)

type resolved struct {
	rbac.CapabilitySet
}

func (resolved) State() session.State { return session.StateReady }

// Resolved adapts an already resolved capability set (server side, tests)
func Resolved(set rbac.CapabilitySet) Capabilities {
	return resolved{set}
}

// Requirement lists the conditions for rendering an element. All set
// conditions must hold; the zero Requirement only needs a READY session.
type Requirement struct {
	Permission     rbac.CorePermission `json:"permission,omitempty"`
	Feature        modules.FeatureKey  `json:"feature,omitempty"`
	SuperAdminOnly bool                `json:"super_admin_only,omitempty"`
	CreateAdmins   bool                `json:"create_admins,omitempty"`
}

// Reason explains a gating decision
type Reason string

const (
	ReasonAllowed Reason = "allowed"
	ReasonDenied  Reason = "denied"
	ReasonLoading Reason = "loading"
	ReasonError   Reason = "error"
)

// Decision is the outcome of Gate. Only ReasonAllowed renders.
type Decision struct {
	Render bool   `json:"render"`
	Reason Reason `json:"reason"`
}

// Gate decides whether an element guarded by req renders for caps
func Gate(caps Capabilities, req Requirement) Decision {
	if caps == nil {
		return Decision{Reason: ReasonDenied}
	}

	switch caps.State() {
	case session.StateLoading:
		return Decision{Reason: ReasonLoading}
	case session.StateError:
		return Decision{Reason: ReasonError}
	case session.StateReady:
	default:
		return Decision{Reason: ReasonDenied}
	}

	if satisfies(caps, req) {
		return Decision{Render: true, Reason: ReasonAllowed}
	}
	return Decision{Reason: ReasonDenied}
}

func satisfies(caps rbac.Capabilities, req Requirement) bool {
	if req.SuperAdminOnly && !caps.IsSuperAdmin() {
		return false
	}
	if req.CreateAdmins && !caps.CanCreateAdmins() {
		return false
	}
	if req.Permission != "" && !caps.HasPermission(req.Permission) {
		return false
	}
	if req.Feature != "" && !caps.HasDashboardFeature(req.Feature) {
		return false
	}
	return true
}

// VisibleNavigation returns the subset of nav that renders for caps. A group
// whose children are all hidden and that has no path of its own is dropped.
func VisibleNavigation(caps Capabilities, nav []NavItem) []NavItem {
	out := make([]NavItem, 0, len(nav))
	for _, item := range nav {
		if !Gate(caps, item.Requirement).Render {
			continue
		}
		if len(item.Children) > 0 {
			children := VisibleNavigation(caps, item.Children)
			if len(children) == 0 && item.Path == "" {
				continue
			}
			item.Children = children
		}
		out = append(out, item)
	}
	return out
}

// VisibleQuickActions returns the actions that render for caps, in order
func VisibleQuickActions(caps Capabilities, actions []QuickAction) []QuickAction {
	out := make([]QuickAction, 0, len(actions))
	for _, a := range actions {
		if Gate(caps, a.Requirement).Render {
			out = append(out, a)
		}
	}
	return out
}

// VisibleModules returns the registry modules whose feature is enabled, in registry order
func VisibleModules(caps Capabilities) []modules.Module {
	out := make([]modules.Module, 0)
	for _, m := range modules.List() {
		if Gate(caps, Requirement{Feature: m.PermissionKey()}).Render {
			out = append(out, m)
		}
	}
	return out
}

// ValidateConfig checks that navigation and quick actions only reference
// known permissions and feature keys, and that ids are unique
func ValidateConfig(nav []NavItem, actions []QuickAction) error {
	seen := make(map[string]bool)

	var walk func(items []NavItem) error
	walk = func(items []NavItem) error {
		for _, item := range items {
			if item.ID == "" {
				return fmt.Errorf("navigation item %q has no id", item.Label)
			}
			if seen[item.ID] {
				return fmt.Errorf("duplicate navigation id %q", item.ID)
			}
			seen[item.ID] = true
			if err := checkRequirement("navigation item "+item.ID, item.Requirement); err != nil {
				return err
			}
			if err := walk(item.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(nav); err != nil {
		return err
	}

	actionIDs := make(map[string]bool, len(actions))
	for _, a := range actions {
		if a.ID == "" {
			return fmt.Errorf("quick action %q has no id", a.Label)
		}
		if actionIDs[a.ID] {
			return fmt.Errorf("duplicate quick action id %q", a.ID)
		}
		actionIDs[a.ID] = true
		if err := checkRequirement("quick action "+a.ID, a.Requirement); err != nil {
			return err
		}
	}
	return nil
}

func checkRequirement(owner string, req Requirement) error {
	if req.Permission != "" && !rbac.IsKnownCorePermission(string(req.Permission)) {
		return fmt.Errorf("%s references unknown permission %q", owner, req.Permission)
	}
	if req.Feature != "" && !modules.IsKnownFeature(string(req.Feature)) {
		return fmt.Errorf("%s references unknown feature %q", owner, req.Feature)
	}
	return nil
}
