package modules

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind distinguishes healthcare specialties from administrative features
type Kind string

const (
	KindHealthcare   Kind = "healthcare"
	KindAdminFeature Kind = "admin_feature"
)

// Key is the stable snake_case identifier of a module
type Key string

// FeatureKey is the lookup key used against the dashboard feature flags
type FeatureKey string

// moduleSuffix is appended to healthcare module keys to form their feature key
const moduleSuffix = "_module"

// Module represents one selectable healthcare specialty or admin feature
type Module struct {
	Key         Key    `json:"key"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Kind        Kind   `json:"kind"`
	Icon        string `json:"icon,omitempty"`
}

// PermissionKey returns the dashboard feature key that gates this module
func (m Module) PermissionKey() FeatureKey {
	if m.Kind == KindHealthcare {
		return FeatureKey(string(m.Key) + moduleSuffix)
	}
	return FeatureKey(m.Key)
}

// Healthcare module keys
const (
	Medicine      Key = "medicine"
	Radiology     Key = "radiology"
	Dentistry     Key = "dentistry"
	Dermatology   Key = "dermatology"
	Pathology     Key = "pathology"
	Cardiology    Key = "cardiology"
	Neurology     Key = "neurology"
	Pediatrics    Key = "pediatrics"
	Gynecology    Key = "gynecology"
	Orthopedics   Key = "orthopedics"
	Ophthalmology Key = "ophthalmology"
	Oncology      Key = "oncology"
	Psychiatry    Key = "psychiatry"
	Homeopathy    Key = "homeopathy"
	Allopathy     Key = "allopathy"
)

// Administrative feature keys
const (
	UserManagement         Key = "user_management"
	PatientManagement      Key = "patient_management"
	AppointmentScheduling  Key = "appointment_scheduling"
	BillingReports         Key = "billing_reports"
	AnalyticsDashboard     Key = "analytics_dashboard"
	SystemSettings         Key = "system_settings"
	AuditLogs              Key = "audit_logs"
	SubscriptionManagement Key = "subscription_management"
	AIAnalysis             Key = "ai_analysis"
	Notifications          Key = "notifications"
)

// catalog is declared in UI order and never mutated at runtime
var catalog = []Module{
	{Key: Medicine, DisplayName: "Medicine", Description: "General medicine consultations and prescriptions", Kind: KindHealthcare, Icon: "stethoscope"},
	{Key: Radiology, DisplayName: "Radiology", Description: "Imaging studies and AI-assisted report analysis", Kind: KindHealthcare, Icon: "x-ray"},
	{Key: Dentistry, DisplayName: "Dentistry", Description: "Dental charts, procedures and treatment plans", Kind: KindHealthcare, Icon: "tooth"},
	{Key: Dermatology, DisplayName: "Dermatology", Description: "Skin condition tracking and lesion imaging", Kind: KindHealthcare, Icon: "hand"},
	{Key: Pathology, DisplayName: "Pathology", Description: "Lab orders, specimens and results", Kind: KindHealthcare, Icon: "microscope"},
	{Key: Cardiology, DisplayName: "Cardiology", Description: "ECG, echo and cardiac care plans", Kind: KindHealthcare, Icon: "heart"},
	{Key: Neurology, DisplayName: "Neurology", Description: "Neurological assessments and EEG records", Kind: KindHealthcare, Icon: "brain"},
	{Key: Pediatrics, DisplayName: "Pediatrics", Description: "Child growth charts and immunizations", Kind: KindHealthcare, Icon: "baby"},
	{Key: Gynecology, DisplayName: "Gynecology", Description: "Women's health and antenatal care", Kind: KindHealthcare, Icon: "female"},
	{Key: Orthopedics, DisplayName: "Orthopedics", Description: "Musculoskeletal injuries and surgery follow-up", Kind: KindHealthcare, Icon: "bone"},
	{Key: Ophthalmology, DisplayName: "Ophthalmology", Description: "Vision tests and eye examinations", Kind: KindHealthcare, Icon: "eye"},
	{Key: Oncology, DisplayName: "Oncology", Description: "Cancer treatment regimens and tumour boards", Kind: KindHealthcare, Icon: "ribbon"},
	{Key: Psychiatry, DisplayName: "Psychiatry", Description: "Mental health assessments and therapy notes", Kind: KindHealthcare, Icon: "comments"},
	{Key: Homeopathy, DisplayName: "Homeopathy", Description: "Homeopathic case taking and remedies", Kind: KindHealthcare, Icon: "leaf"},
	{Key: Allopathy, DisplayName: "Allopathy", Description: "Conventional treatment protocols", Kind: KindHealthcare, Icon: "pills"},

	{Key: UserManagement, DisplayName: "User Management", Description: "Create and manage staff and patient accounts", Kind: KindAdminFeature, Icon: "users"},
	{Key: PatientManagement, DisplayName: "Patient Management", Description: "Patient registry and demographics", Kind: KindAdminFeature, Icon: "user-injured"},
	{Key: AppointmentScheduling, DisplayName: "Appointment Scheduling", Description: "Calendars and booking", Kind: KindAdminFeature, Icon: "calendar"},
	{Key: BillingReports, DisplayName: "Billing Reports", Description: "Invoices, payments and revenue reports", Kind: KindAdminFeature, Icon: "file-invoice"},
	{Key: AnalyticsDashboard, DisplayName: "Analytics Dashboard", Description: "Operational metrics and charts", Kind: KindAdminFeature, Icon: "chart-line"},
	{Key: SystemSettings, DisplayName: "System Settings", Description: "Tenant-wide configuration", Kind: KindAdminFeature, Icon: "cog"},
	{Key: AuditLogs, DisplayName: "Audit Logs", Description: "Access and change history", Kind: KindAdminFeature, Icon: "clipboard-list"},
	{Key: SubscriptionManagement, DisplayName: "Subscription Management", Description: "Plans, renewals and billing cycles", Kind: KindAdminFeature, Icon: "credit-card"},
	{Key: AIAnalysis, DisplayName: "AI Analysis", Description: "AI-assisted report analysis and chat", Kind: KindAdminFeature, Icon: "robot"},
	{Key: Notifications, DisplayName: "Notifications", Description: "Broadcasts and alert preferences", Kind: KindAdminFeature, Icon: "bell"},
}

var (
	byKey     map[Key]Module
	byFeature map[FeatureKey]Module
)

func init() {
	byKey = make(map[Key]Module, len(catalog))
	byFeature = make(map[FeatureKey]Module, len(catalog))
	for _, m := range catalog {
		byKey[m.Key] = m
		byFeature[m.PermissionKey()] = m
	}
}

// List returns every module in declaration order
func List() []Module {
	out := make([]Module, len(catalog))
	copy(out, catalog)
	return out
}

// Healthcare returns the healthcare specialty modules in declaration order
func Healthcare() []Module {
	return filter(KindHealthcare)
}

// AdminFeatures returns the administrative features in declaration order
func AdminFeatures() []Module {
	return filter(KindAdminFeature)
}

func filter(kind Kind) []Module {
	var out []Module
	for _, m := range catalog {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

// IsValidModule reports whether key names a registered module
func IsValidModule(key string) bool {
	_, ok := byKey[Key(key)]
	return ok
}

// Lookup returns the module registered under key
func Lookup(key string) (Module, bool) {
	m, ok := byKey[Key(key)]
	return m, ok
}

// FeatureKeys returns every dashboard feature key known to the registry, in declaration order
func FeatureKeys() []FeatureKey {
	keys := make([]FeatureKey, 0, len(catalog))
	for _, m := range catalog {
		keys = append(keys, m.PermissionKey())
	}
	return keys
}

// IsKnownFeature reports whether key is a dashboard feature key of some module
func IsKnownFeature(key string) bool {
	_, ok := byFeature[FeatureKey(key)]
	return ok
}

// ModuleForFeature maps a dashboard feature key back to its module
func ModuleForFeature(feature FeatureKey) (Module, bool) {
	m, ok := byFeature[feature]
	return m, ok
}

var snakeCase = regexp.MustCompile(`^[a-z][a-z0-9]*(_[a-z0-9]+)*$`)

// Validate checks the catalog for duplicate or malformed entries.
// Services call it once at startup.
func Validate() error {
	return validateCatalog(catalog)
}

func validateCatalog(entries []Module) error {
	seen := make(map[Key]bool, len(entries))
	features := make(map[FeatureKey]Key, len(entries))

	for _, m := range entries {
		if !snakeCase.MatchString(string(m.Key)) {
			return fmt.Errorf("module key %q is not snake_case", m.Key)
		}
		if seen[m.Key] {
			return fmt.Errorf("duplicate module key %q", m.Key)
		}
		seen[m.Key] = true

		if strings.TrimSpace(m.DisplayName) == "" {
			return fmt.Errorf("module %q has no display name", m.Key)
		}
		if m.Kind != KindHealthcare && m.Kind != KindAdminFeature {
			return fmt.Errorf("module %q has unknown kind %q", m.Key, m.Kind)
		}
		if m.Kind == KindAdminFeature && strings.HasSuffix(string(m.Key), moduleSuffix) {
			return fmt.Errorf("admin feature %q must not end in %s", m.Key, moduleSuffix)
		}

		fk := m.PermissionKey()
		if other, ok := features[fk]; ok {
			return fmt.Errorf("feature key %q produced by both %q and %q", fk, other, m.Key)
		}
		features[fk] = m.Key
	}

	return nil
}
