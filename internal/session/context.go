package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/TanzeemAgra/Healthcare-sub004/pkg/logger"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/modules"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/rbac"
)

// State of a permission context
type State string

const (
	StateUninitialized State = "UNINITIALIZED"
	StateLoading       State = "LOADING"
	StateReady         State = "READY"
	StateError         State = "ERROR"
)

// ErrSuperseded is returned by Login and Refresh when a newer load or a
// logout happened while the fetch was in flight. The result was discarded.
var ErrSuperseded = errors.New("permission load superseded")

// Fetcher loads the signed-in user's identity and override record in one request
type Fetcher interface {
	FetchProfile(ctx context.Context) (*rbac.Identity, *rbac.PermissionRecord, error)
}

// Snapshot is an immutable view of the context at one point in time
type Snapshot struct {
	State        State              `json:"state"`
	Identity     *rbac.Identity     `json:"identity,omitempty"`
	Capabilities rbac.CapabilitySet `json:"capabilities"`
	Err          error              `json:"-"`
	Seq          uint64             `json:"seq"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Listener is notified after every state transition
type Listener func(Snapshot)

// Option configures a Context
type Option func(*Context)

// WithLogger sets the logger used for transition logs
func WithLogger(log *logger.Logger) Option {
	return func(c *Context) { c.logger = log }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Context) { c.now = now }
}

// Context is the session-scoped cache of the signed-in user's capabilities.
//
// Every transition into LOADING issues a new sequence number and exactly one
// fetch. A completion is applied only if its sequence is still the latest one,
// so stale responses and responses that arrive after Logout are dropped.
// Capability reads are false in every state but READY.
type Context struct {
	fetcher Fetcher
	policy  rbac.SuperAdminPolicy
	logger  *logger.Logger
	now     func() time.Time

	mu        sync.RWMutex
	state     State
	identity  *rbac.Identity
	record    *rbac.PermissionRecord
	caps      rbac.CapabilitySet
	err       error
	seq       uint64
	updatedAt time.Time

	listeners  map[uint64]Listener
	listenerID uint64

	// notifyMu serializes deliveries; delivered is the newest Seq handed out
	notifyMu  sync.Mutex
	delivered uint64
}

// New creates an uninitialized context
func New(fetcher Fetcher, policy rbac.SuperAdminPolicy, opts ...Option) *Context {
	c := &Context{
		fetcher:   fetcher,
		policy:    policy,
		now:       time.Now,
		state:     StateUninitialized,
		listeners: make(map[uint64]Listener),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.New("info")
	}
	return c
}

// Login loads the signed-in user's permissions. It may be called from any state.
func (c *Context) Login(ctx context.Context) error {
	return c.load(ctx, "login")
}

// Refresh reloads permissions, e.g. after the user's own record was edited
func (c *Context) Refresh(ctx context.Context) error {
	return c.load(ctx, "refresh")
}

// Logout clears the cache and discards any in-flight load
func (c *Context) Logout() {
	c.mu.Lock()
	userID := c.userIDLocked()
	c.seq++
	c.state = StateUninitialized
	c.identity = nil
	c.record = nil
	c.caps = rbac.CapabilitySet{}
	c.err = nil
	c.updatedAt = c.now()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.WithComponent("session").WithField("user_id", userID).Debug("Permission context cleared")
	c.notify(snap)
}

func (c *Context) load(ctx context.Context, reason string) error {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.state = StateLoading
	c.caps = rbac.CapabilitySet{}
	c.err = nil
	c.updatedAt = c.now()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	identity, record, err := c.fetcher.FetchProfile(ctx)

	c.mu.Lock()
	if c.seq != seq {
		c.mu.Unlock()
		c.logger.WithComponent("session").WithField("seq", seq).Debug("Discarding stale permission load")
		return ErrSuperseded
	}

	if err == nil && identity == nil {
		err = errors.New("permission service returned no identity")
	}

	if err != nil {
		c.state = StateError
		c.err = err
		c.caps = rbac.CapabilitySet{}
		c.record = nil
	} else {
		c.state = StateReady
		c.identity = identity
		c.record = record.Clone()
		c.caps = rbac.NewResolver(identity, c.record, c.policy).Resolve()
	}
	c.updatedAt = c.now()
	snap = c.snapshotLocked()
	c.mu.Unlock()

	entry := c.logger.WithComponent("session").WithField("reason", reason).WithField("seq", seq)
	if err != nil {
		entry.WithError(err).Warn("Permission load failed")
	} else {
		entry.WithField("user_id", identity.UserID).Debug("Permissions loaded")
	}

	c.notify(snap)
	return err
}

// Subscribe registers l for transition notifications. Listeners run
// synchronously, one snapshot at a time, in non-decreasing Seq order; a
// snapshot older than one already delivered is dropped. Listeners must not
// call Login, Refresh or Logout. The returned function unsubscribes; after it
// returns l is not called again.
func (c *Context) Subscribe(l Listener) (unsubscribe func()) {
	c.mu.Lock()
	c.listenerID++
	id := c.listenerID
	c.listeners[id] = l
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

func (c *Context) notify(snap Snapshot) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if snap.Seq < c.delivered {
		return
	}
	c.delivered = snap.Seq

	c.mu.RLock()
	ids := make([]uint64, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	c.mu.RUnlock()

	for _, id := range ids {
		c.mu.RLock()
		l, ok := c.listeners[id]
		c.mu.RUnlock()
		if ok {
			l(snap)
		}
	}
}

func (c *Context) snapshotLocked() Snapshot {
	var identity *rbac.Identity
	if c.identity != nil {
		cp := *c.identity
		identity = &cp
	}
	return Snapshot{
		State:        c.state,
		Identity:     identity,
		Capabilities: c.caps,
		Err:          c.err,
		Seq:          c.seq,
		UpdatedAt:    c.updatedAt,
	}
}

func (c *Context) userIDLocked() string {
	if c.identity == nil {
		return ""
	}
	return c.identity.UserID
}

// Snapshot returns the current state
func (c *Context) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// State returns the current state
func (c *Context) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Identity returns a copy of the last loaded identity, or nil
func (c *Context) Identity() *rbac.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.identity == nil {
		return nil
	}
	cp := *c.identity
	return &cp
}

// UserID returns the signed-in user's id, or "" before the first load
func (c *Context) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userIDLocked()
}

// Record returns a copy of the loaded override record while READY
func (c *Context) Record() *rbac.PermissionRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateReady {
		return nil
	}
	return c.record.Clone()
}

// Err returns the error that moved the context to ERROR
func (c *Context) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Capabilities returns the resolved set; the zero set unless READY
func (c *Context) Capabilities() rbac.CapabilitySet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateReady {
		return rbac.CapabilitySet{}
	}
	return c.caps
}

// HasPermission reports whether the core permission is granted
func (c *Context) HasPermission(key rbac.CorePermission) bool {
	return c.Capabilities().HasPermission(key)
}

// HasDashboardFeature reports whether the dashboard feature is enabled
func (c *Context) HasDashboardFeature(key modules.FeatureKey) bool {
	return c.Capabilities().HasDashboardFeature(key)
}

// CanCreateAdmins reports whether admin accounts may be created
func (c *Context) CanCreateAdmins() bool {
	return c.Capabilities().CanCreateAdmins()
}

// IsSuperAdmin reports the super-admin bypass
func (c *Context) IsSuperAdmin() bool {
	return c.Capabilities().IsSuperAdmin()
}

var _ rbac.Capabilities = (*Context)(nil)
