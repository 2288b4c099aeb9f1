package rbac

// Role is one of the closed set of account roles
type Role string

// Six-role definitions; assigned at account creation, changed only by a super admin
const (
	RolePatient    Role = "patient"
	RoleDoctor     Role = "doctor"
	RoleNurse      Role = "nurse"
	RolePharmacist Role = "pharmacist"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

var allRoles = []Role{RolePatient, RoleDoctor, RoleNurse, RolePharmacist, RoleAdmin, RoleSuperAdmin}

// Roles returns every role in privilege order
func Roles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// IsValid reports whether r is a member of the role enumeration
func (r Role) IsValid() bool {
	for _, known := range allRoles {
		if r == known {
			return true
		}
	}
	return false
}

// ParseRole converts a wire value to a Role; ok is false for unknown values
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.IsValid()
}

// CorePermission names one of the fixed core permission flags
type CorePermission string

const (
	PermManageUsers          CorePermission = "can_manage_users"
	PermAccessBilling        CorePermission = "can_access_billing"
	PermAccessEmergency      CorePermission = "can_access_emergency"
	PermViewReports          CorePermission = "can_view_reports"
	PermManageSettings       CorePermission = "can_manage_settings"
	PermAccessPatientRecords CorePermission = "can_access_patient_records"
	PermManageAppointments   CorePermission = "can_manage_appointments"
	PermViewAnalytics        CorePermission = "can_view_analytics"
	PermManageSubscriptions  CorePermission = "can_manage_subscriptions"
	PermExportData           CorePermission = "can_export_data"
	PermAccessAIFeatures     CorePermission = "can_access_ai_features"
	PermManagePermissions    CorePermission = "can_manage_permissions"
)

var corePermissions = []CorePermission{
	PermManageUsers,
	PermAccessBilling,
	PermAccessEmergency,
	PermViewReports,
	PermManageSettings,
	PermAccessPatientRecords,
	PermManageAppointments,
	PermViewAnalytics,
	PermManageSubscriptions,
	PermExportData,
	PermAccessAIFeatures,
	PermManagePermissions,
}

// AllCorePermissions returns the core permission keys in declaration order
func AllCorePermissions() []CorePermission {
	out := make([]CorePermission, len(corePermissions))
	copy(out, corePermissions)
	return out
}

// IsKnownCorePermission reports whether key is a core permission
func IsKnownCorePermission(key string) bool {
	for _, p := range corePermissions {
		if string(p) == key {
			return true
		}
	}
	return false
}

// Audit event types
const (
	AuditEventPermissionsReplaced = "permissions_replaced"
	AuditEventAdminCreated        = "admin_created"
	AuditEventUserCreated         = "user_created"
	AuditEventQuotaUpdated        = "quota_updated"
	AuditEventQuotaReset          = "quota_reset"
	AuditEventAccessDenied        = "access_denied"
)
