package quota

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/TanzeemAgra/Healthcare-sub004/pkg/rbac"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/types"
)

// Status is the creation gate derived from a quota
type Status string

const (
	StatusAllowed Status = "ALLOWED"
	StatusBlocked Status = "BLOCKED"
)

// CreatableRoles are the roles an admin may create under quota, in display order
var CreatableRoles = []rbac.Role{rbac.RoleDoctor, rbac.RoleNurse, rbac.RolePatient, rbac.RolePharmacist}

var validate = validator.New()

// EffectiveTotalLimit is the binding total ceiling: the smaller of the
// per-type sum and max_total_users
func EffectiveTotalLimit(q *types.UserCreationQuota) int {
	if q == nil {
		return 0
	}
	sum := q.MaxDoctors + q.MaxNurses + q.MaxPatients + q.MaxPharmacists
	if q.MaxTotalUsers < sum {
		return q.MaxTotalUsers
	}
	return sum
}

// Evaluate returns BLOCKED once total usage reaches the effective total limit
// or any per-type ceiling is reached. A nil quota is BLOCKED.
func Evaluate(q *types.UserCreationQuota) Status {
	if q == nil {
		return StatusBlocked
	}
	if q.CurrentUsage.TotalUsers >= EffectiveTotalLimit(q) {
		return StatusBlocked
	}
	for _, role := range CreatableRoles {
		limit, used := ceiling(q, role)
		if used >= limit {
			return StatusBlocked
		}
	}
	return StatusAllowed
}

// EvaluateFor reports whether one more user of role may be created. Roles
// outside CreatableRoles are always BLOCKED; admins are created through
// create-admin, never under a quota.
func EvaluateFor(q *types.UserCreationQuota, role rbac.Role) Status {
	if q == nil || !isCreatable(role) {
		return StatusBlocked
	}
	if q.CurrentUsage.TotalUsers >= EffectiveTotalLimit(q) {
		return StatusBlocked
	}
	if limit, used := ceiling(q, role); used >= limit {
		return StatusBlocked
	}
	return StatusAllowed
}

// CheckCreate is EvaluateFor as an error, for server-side enforcement
func CheckCreate(q *types.UserCreationQuota, role rbac.Role) error {
	if EvaluateFor(q, role) == StatusAllowed {
		return nil
	}

	details := map[string]interface{}{"role": role}
	if q != nil {
		limit, used := ceiling(q, role)
		details["role_limit"] = limit
		details["role_used"] = used
		details["total_limit"] = EffectiveTotalLimit(q)
		details["total_used"] = q.CurrentUsage.TotalUsers
	}
	return types.NewQuotaError(types.ErrCodeQuotaExceeded,
		fmt.Sprintf("User creation quota reached for role %s", role), details)
}

// Remaining returns how many more users of each creatable role may be
// created, bounded by both the role ceiling and the remaining total
func Remaining(q *types.UserCreationQuota) map[rbac.Role]int {
	out := make(map[rbac.Role]int, len(CreatableRoles))
	for _, role := range CreatableRoles {
		out[role] = 0
	}
	if q == nil {
		return out
	}

	totalLeft := RemainingTotal(q)
	for _, role := range CreatableRoles {
		limit, used := ceiling(q, role)
		left := limit - used
		if left > totalLeft {
			left = totalLeft
		}
		if left < 0 {
			left = 0
		}
		out[role] = left
	}
	return out
}

// RemainingTotal returns the headroom under the effective total limit
func RemainingTotal(q *types.UserCreationQuota) int {
	if q == nil {
		return 0
	}
	left := EffectiveTotalLimit(q) - q.CurrentUsage.TotalUsers
	if left < 0 {
		return 0
	}
	return left
}

// NextReset returns the period boundary following the last reset. ok is
// false for ResetNever, whose ceilings are lifetime caps.
func NextReset(q *types.UserCreationQuota, now time.Time) (next time.Time, ok bool) {
	if q == nil {
		return time.Time{}, false
	}

	from := q.LastResetAt
	if from.IsZero() {
		from = now
	}
	from = from.UTC()

	switch q.ResetPeriod {
	case types.ResetMonthly:
		return time.Date(from.Year(), from.Month()+1, 1, 0, 0, 0, 0, time.UTC), true
	case types.ResetYearly:
		return time.Date(from.Year()+1, time.January, 1, 0, 0, 0, 0, time.UTC), true
	default:
		return time.Time{}, false
	}
}

// IsResetDue reports whether now has passed the next period boundary
func IsResetDue(q *types.UserCreationQuota, now time.Time) bool {
	next, ok := NextReset(q, now)
	return ok && !now.Before(next)
}

// Validate checks submitted ceilings: non-negative values and a known reset period
func Validate(q *types.UserCreationQuota) error {
	if q == nil {
		return types.NewValidationError(types.ErrCodeValidationFailed, "Quota is required", nil)
	}
	if err := validate.Struct(q); err != nil {
		details := map[string]interface{}{}
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
				fields = append(fields, fe.Field())
			}
		}
		return types.NewValidationError(types.ErrCodeValidationFailed,
			"Invalid quota: "+strings.Join(fields, ", "), details)
	}
	return nil
}

func ceiling(q *types.UserCreationQuota, role rbac.Role) (limit, used int) {
	switch role {
	case rbac.RoleDoctor:
		return q.MaxDoctors, q.CurrentUsage.Doctors
	case rbac.RoleNurse:
		return q.MaxNurses, q.CurrentUsage.Nurses
	case rbac.RolePatient:
		return q.MaxPatients, q.CurrentUsage.Patients
	case rbac.RolePharmacist:
		return q.MaxPharmacists, q.CurrentUsage.Pharmacists
	}
	return 0, 0
}

func isCreatable(role rbac.Role) bool {
	for _, r := range CreatableRoles {
		if r == role {
			return true
		}
	}
	return false
}
