package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/TanzeemAgra/Healthcare-sub004/internal/client"
	"github.com/TanzeemAgra/Healthcare-sub004/internal/editor"
	"github.com/TanzeemAgra/Healthcare-sub004/internal/quota"
	"github.com/TanzeemAgra/Healthcare-sub004/internal/session"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/logger"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/monitoring"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/rbac"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/types"
)

// Session bundles everything the gateway keeps for one bearer token
type Session struct {
	Context *session.Context
	Editor  *editor.Editor
	Quotas  *quota.Tracker
	Backend *client.Client

	loadOnce sync.Once
	loadErr  error
}

// ensureLoaded performs the first load exactly once. Concurrent callers wait
// for it to finish.
func (s *Session) ensureLoaded(ctx context.Context) error {
	s.loadOnce.Do(func() {
		s.loadErr = s.Context.Login(ctx)
	})
	return s.loadErr
}

// SessionStore keeps one permission context per bearer token in a bounded,
// expiring LRU. Evicted sessions are logged out so late backend responses
// are discarded.
type SessionStore struct {
	cache   *expirable.LRU[string, *Session]
	backend *client.Client
	policy  rbac.SuperAdminPolicy
	logger  *logger.Logger
	metrics *monitoring.MetricsCollector

	mu     sync.Mutex
	active atomic.Int64
}

// NewSessionStore creates a store holding at most size sessions for ttl each
func NewSessionStore(backend *client.Client, policy rbac.SuperAdminPolicy, size int, ttl time.Duration, log *logger.Logger, metrics *monitoring.MetricsCollector) *SessionStore {
	st := &SessionStore{
		backend: backend,
		policy:  policy,
		logger:  log,
		metrics: metrics,
	}
	// The callback runs under the LRU's lock; it must not call back into the cache.
	st.cache = expirable.NewLRU[string, *Session](size, st.evicted, ttl)
	return st
}

func sessionKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Get returns the session for token, creating and loading it on first use.
// A token the backend rejects is not cached.
func (st *SessionStore) Get(ctx context.Context, token string) (*Session, error) {
	key := sessionKey(token)

	sess, created := st.getOrCreate(key, token)
	if err := sess.ensureLoaded(ctx); err != nil {
		if types.IsType(err, types.ErrorTypeAuthentication) {
			st.cache.Remove(key)
			return nil, err
		}
		// Any other failure leaves the session in ERROR; callers see a
		// fail-closed context and may refresh it.
		if created {
			st.logger.WithContext(ctx).WithError(err).Warn("Initial permission load failed")
		}
	}
	if created {
		st.logger.WithUserID(sess.Context.UserID()).Debug("Session created")
	}
	return sess, nil
}

func (st *SessionStore) getOrCreate(key, token string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if sess, ok := st.cache.Get(key); ok {
		return sess, false
	}

	backend := st.backend.WithToken(token)
	pc := session.New(backend, st.policy, session.WithLogger(st.logger))
	sess := &Session{
		Context: pc,
		Editor:  editor.New(backend, pc, editor.WithLogger(st.logger)),
		Quotas:  quota.NewTracker(backend),
		Backend: backend,
	}
	pc.Subscribe(func(snap session.Snapshot) {
		st.logger.WithComponent("session").WithFields(map[string]interface{}{
			"state": snap.State,
			"seq":   snap.Seq,
		}).Debug("Permission context transition")
	})

	st.cache.Add(key, sess)
	st.setActive(st.active.Add(1))
	return sess, true
}

// Remove logs the session of token out and drops it
func (st *SessionStore) Remove(token string) bool {
	return st.cache.Remove(sessionKey(token))
}

// Len returns the number of live sessions
func (st *SessionStore) Len() int {
	return st.cache.Len()
}

// Purge logs every session out
func (st *SessionStore) Purge() {
	st.cache.Purge()
}

func (st *SessionStore) evicted(_ string, sess *Session) {
	sess.Context.Logout()
	st.setActive(st.active.Add(-1))
}

func (st *SessionStore) setActive(n int64) {
	if st.metrics != nil {
		st.metrics.SetActiveSessions(int(n))
	}
}
