package quota

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/TanzeemAgra/Healthcare-sub004/pkg/logger"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/monitoring"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/rbac"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/types"
)

// ResetStore is the storage the resetter needs
type ResetStore interface {
	ListResettable(ctx context.Context) ([]*types.UserCreationQuota, error)
	ResetUsage(ctx context.Context, adminID string, at time.Time) error
}

// Resetter zeroes usage counters of quotas whose period boundary has passed.
// It runs on a cron schedule; a run resets only quotas that are due, so the
// schedule may fire more often than the shortest period.
type Resetter struct {
	store   ResetStore
	cron    *cron.Cron
	logger  *logger.Logger
	metrics *monitoring.MetricsCollector
	now     func() time.Time
	timeout time.Duration

	mu      sync.Mutex
	running bool
}

// NewResetter schedules RunOnce on schedule (standard 5-field cron syntax, UTC)
func NewResetter(store ResetStore, schedule string, log *logger.Logger, metrics *monitoring.MetricsCollector) (*Resetter, error) {
	r := &Resetter{
		store:   store,
		cron:    cron.New(cron.WithLocation(time.UTC)),
		logger:  log,
		metrics: metrics,
		now:     time.Now,
		timeout: 5 * time.Minute,
	}

	if _, err := r.cron.AddFunc(schedule, r.scheduledRun); err != nil {
		return nil, fmt.Errorf("invalid quota reset schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Start begins the schedule in the background
func (r *Resetter) Start() {
	r.logger.WithComponent("quota_resetter").Info("Quota reset schedule started")
	r.cron.Start()
}

// Stop halts the schedule; the returned context is done once a running job finishes
func (r *Resetter) Stop() context.Context {
	return r.cron.Stop()
}

func (r *Resetter) scheduledRun() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if _, err := r.RunOnce(ctx); err != nil {
		r.logger.WithComponent("quota_resetter").WithError(err).Error("Quota reset run failed")
	}
}

// RunOnce resets every due quota and returns how many were reset. Runs do not overlap.
func (r *Resetter) RunOnce(ctx context.Context) (int, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return 0, nil
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	quotas, err := r.store.ListResettable(ctx)
	if err != nil {
		return 0, err
	}

	now := r.now().UTC()
	reset := 0
	var firstErr error

	for _, q := range quotas {
		if !IsResetDue(q, now) {
			continue
		}
		if err := r.store.ResetUsage(ctx, q.AdminID, now); err != nil {
			r.logger.WithComponent("quota_resetter").WithError(err).
				WithField("admin_id", q.AdminID).Error("Failed to reset quota usage")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		reset++
		r.logger.Audit("system", rbac.AuditEventQuotaReset, "quota:"+q.AdminID, true, map[string]interface{}{
			"reset_period":   q.ResetPeriod,
			"previous_total": q.CurrentUsage.TotalUsers,
		})
	}

	if r.metrics != nil && reset > 0 {
		r.metrics.RecordQuotaResets(reset)
	}
	return reset, firstErr
}
