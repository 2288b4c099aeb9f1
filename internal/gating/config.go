package gating

import (
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/modules"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/rbac"
)

// NavItem is one entry of the dashboard sidebar
type NavItem struct {
	ID          string      `json:"id"`
	Label       string      `json:"label"`
	Path        string      `json:"path,omitempty"`
	Icon        string      `json:"icon,omitempty"`
	Requirement Requirement `json:"requirement"`
	Children    []NavItem   `json:"children,omitempty"`
}

// QuickAction is a shortcut button on the dashboard home
type QuickAction struct {
	ID          string      `json:"id"`
	Label       string      `json:"label"`
	Path        string      `json:"path"`
	Icon        string      `json:"icon,omitempty"`
	Requirement Requirement `json:"requirement"`
}

func feature(key modules.Key) modules.FeatureKey {
	m, _ := modules.Lookup(string(key))
	return m.PermissionKey()
}

// DefaultNavigation returns the admin dashboard sidebar
func DefaultNavigation() []NavItem {
	specialties := make([]NavItem, 0, len(modules.Healthcare()))
	for _, m := range modules.Healthcare() {
		specialties = append(specialties, NavItem{
			ID:          "module-" + string(m.Key),
			Label:       m.DisplayName,
			Path:        "/modules/" + string(m.Key),
			Icon:        m.Icon,
			Requirement: Requirement{Feature: m.PermissionKey()},
		})
	}

	return []NavItem{
		{ID: "dashboard", Label: "Dashboard", Path: "/dashboard", Icon: "home"},
		{
			ID: "users", Label: "Users", Path: "/users", Icon: "users",
			Requirement: Requirement{Permission: rbac.PermManageUsers, Feature: feature(modules.UserManagement)},
		},
		{
			ID: "patients", Label: "Patients", Path: "/patients", Icon: "user-injured",
			Requirement: Requirement{Permission: rbac.PermAccessPatientRecords, Feature: feature(modules.PatientManagement)},
		},
		{
			ID: "appointments", Label: "Appointments", Path: "/appointments", Icon: "calendar",
			Requirement: Requirement{Permission: rbac.PermManageAppointments, Feature: feature(modules.AppointmentScheduling)},
		},
		{ID: "specialties", Label: "Specialties", Icon: "hospital", Children: specialties},
		{
			ID: "billing", Label: "Billing", Path: "/billing", Icon: "file-invoice",
			Requirement: Requirement{Permission: rbac.PermAccessBilling, Feature: feature(modules.BillingReports)},
		},
		{
			ID: "analytics", Label: "Analytics", Path: "/analytics", Icon: "chart-line",
			Requirement: Requirement{Permission: rbac.PermViewAnalytics, Feature: feature(modules.AnalyticsDashboard)},
		},
		{
			ID: "reports", Label: "Reports", Path: "/reports", Icon: "file-alt",
			Requirement: Requirement{Permission: rbac.PermViewReports},
		},
		{
			ID: "emergency", Label: "Emergency", Path: "/emergency", Icon: "ambulance",
			Requirement: Requirement{Permission: rbac.PermAccessEmergency},
		},
		{
			ID: "ai-analysis", Label: "AI Analysis", Path: "/ai", Icon: "robot",
			Requirement: Requirement{Permission: rbac.PermAccessAIFeatures, Feature: feature(modules.AIAnalysis)},
		},
		{
			ID: "subscriptions", Label: "Subscriptions", Path: "/subscriptions", Icon: "credit-card",
			Requirement: Requirement{Permission: rbac.PermManageSubscriptions, Feature: feature(modules.SubscriptionManagement)},
		},
		{
			ID: "audit-logs", Label: "Audit Logs", Path: "/audit-logs", Icon: "clipboard-list",
			Requirement: Requirement{Feature: feature(modules.AuditLogs)},
		},
		{
			ID: "notifications", Label: "Notifications", Path: "/notifications", Icon: "bell",
			Requirement: Requirement{Feature: feature(modules.Notifications)},
		},
		{
			ID: "settings", Label: "Settings", Path: "/settings", Icon: "cog",
			Requirement: Requirement{Permission: rbac.PermManageSettings, Feature: feature(modules.SystemSettings)},
		},
		{
			ID: "administration", Label: "Administration", Icon: "user-shield",
			Requirement: Requirement{SuperAdminOnly: true},
			Children: []NavItem{
				{ID: "admin-permissions", Label: "Admin Permissions", Path: "/admin/permissions", Icon: "key",
					Requirement: Requirement{SuperAdminOnly: true}},
				{ID: "admin-create", Label: "Create Admin", Path: "/admin/create", Icon: "user-plus",
					Requirement: Requirement{CreateAdmins: true}},
			},
		},
	}
}

// DefaultQuickActions returns the dashboard home shortcuts
func DefaultQuickActions() []QuickAction {
	return []QuickAction{
		{ID: "create-user", Label: "Add User", Path: "/users/new", Icon: "user-plus",
			Requirement: Requirement{Permission: rbac.PermManageUsers, Feature: feature(modules.UserManagement)}},
		{ID: "book-appointment", Label: "Book Appointment", Path: "/appointments/new", Icon: "calendar-plus",
			Requirement: Requirement{Permission: rbac.PermManageAppointments, Feature: feature(modules.AppointmentScheduling)}},
		{ID: "view-reports", Label: "View Reports", Path: "/reports", Icon: "file-alt",
			Requirement: Requirement{Permission: rbac.PermViewReports}},
		{ID: "export-data", Label: "Export Data", Path: "/export", Icon: "download",
			Requirement: Requirement{Permission: rbac.PermExportData}},
		{ID: "ai-report-analysis", Label: "Analyze Report", Path: "/ai/analyze", Icon: "robot",
			Requirement: Requirement{Permission: rbac.PermAccessAIFeatures, Feature: feature(modules.AIAnalysis)}},
		{ID: "manage-permissions", Label: "Manage Permissions", Path: "/admin/permissions", Icon: "key",
			Requirement: Requirement{SuperAdminOnly: true}},
		{ID: "create-admin", Label: "Create Admin", Path: "/admin/create", Icon: "user-shield",
			Requirement: Requirement{CreateAdmins: true}},
	}
}
