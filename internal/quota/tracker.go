package quota

import (
	"context"
	"time"

	"github.com/TanzeemAgra/Healthcare-sub004/pkg/rbac"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/types"
)

// QuotaAPI is the read side of the permission backend used by the tracker
type QuotaAPI interface {
	GetQuota(ctx context.Context, adminID string) (*types.UserCreationQuota, error)
}

// Summary is a quota together with everything derived from it
type Summary struct {
	Quota               *types.UserCreationQuota `json:"quota"`
	Status              Status                   `json:"status"`
	EffectiveTotalLimit int                      `json:"effective_total_limit"`
	RemainingTotal      int                      `json:"remaining_total"`
	Remaining           map[rbac.Role]int        `json:"remaining"`
	RoleStatus          map[rbac.Role]Status     `json:"role_status"`
	NextReset           *time.Time               `json:"next_reset,omitempty"`
}

// Summarize derives the gate state of q at now. Nothing is cached; every
// read recomputes from the counters.
func Summarize(q *types.UserCreationQuota, now time.Time) *Summary {
	s := &Summary{
		Quota:               q,
		Status:              Evaluate(q),
		EffectiveTotalLimit: EffectiveTotalLimit(q),
		RemainingTotal:      RemainingTotal(q),
		Remaining:           Remaining(q),
		RoleStatus:          make(map[rbac.Role]Status, len(CreatableRoles)),
	}
	for _, role := range CreatableRoles {
		s.RoleStatus[role] = EvaluateFor(q, role)
	}
	if next, ok := NextReset(q, now); ok {
		s.NextReset = &next
	}
	return s
}

// Tracker reads quotas from the backend and summarizes them
type Tracker struct {
	api QuotaAPI
	now func() time.Time
}

// NewTracker creates a tracker over api
func NewTracker(api QuotaAPI) *Tracker {
	return &Tracker{api: api, now: time.Now}
}

// Get fetches adminID's quota and summarizes it
func (t *Tracker) Get(ctx context.Context, adminID string) (*Summary, error) {
	q, err := t.api.GetQuota(ctx, adminID)
	if err != nil {
		return nil, err
	}
	return Summarize(q, t.now()), nil
}
