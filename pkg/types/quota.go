package types

import "time"

// ResetPeriod controls when quota usage counters return to zero
type ResetPeriod string

const (
	ResetMonthly ResetPeriod = "monthly"
	ResetYearly  ResetPeriod = "yearly"
	ResetNever   ResetPeriod = "never"
)

// IsValid reports whether p is a known reset period
func (p ResetPeriod) IsValid() bool {
	switch p {
	case ResetMonthly, ResetYearly, ResetNever:
		return true
	}
	return false
}

// QuotaUsage holds backend-owned creation counters for the current period
type QuotaUsage struct {
	Doctors     int `json:"doctors" db:"doctors_created"`
	Nurses      int `json:"nurses" db:"nurses_created"`
	Patients    int `json:"patients" db:"patients_created"`
	Pharmacists int `json:"pharmacists" db:"pharmacists_created"`
	TotalUsers  int `json:"total_users" db:"total_users_created"`
}

// UserCreationQuota holds an admin's creation ceilings and current usage
type UserCreationQuota struct {
	AdminID        string      `json:"admin_id,omitempty" db:"admin_id"`
	MaxDoctors     int         `json:"max_doctors" db:"max_doctors" validate:"gte=0"`
	MaxNurses      int         `json:"max_nurses" db:"max_nurses" validate:"gte=0"`
	MaxPatients    int         `json:"max_patients" db:"max_patients" validate:"gte=0"`
	MaxPharmacists int         `json:"max_pharmacists" db:"max_pharmacists" validate:"gte=0"`
	MaxTotalUsers  int         `json:"max_total_users" db:"max_total_users" validate:"gte=0"`
	ResetPeriod    ResetPeriod `json:"reset_period" db:"reset_period" validate:"required,oneof=monthly yearly never"`
	CurrentUsage   QuotaUsage  `json:"current_usage"`
	LastResetAt    time.Time   `json:"last_reset_at" db:"last_reset_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}

// DefaultQuota is applied when create-admin omits user_creation_quota
func DefaultQuota(adminID string) *UserCreationQuota {
	return &UserCreationQuota{
		AdminID:        adminID,
		MaxDoctors:     10,
		MaxNurses:      20,
		MaxPatients:    100,
		MaxPharmacists: 5,
		MaxTotalUsers:  100,
		ResetPeriod:    ResetMonthly,
	}
}
