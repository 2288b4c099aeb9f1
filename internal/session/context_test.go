package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/TanzeemAgra/Healthcare-sub004/pkg/logger"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/modules"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/rbac"
)

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchProfile(ctx context.Context) (*rbac.Identity, *rbac.PermissionRecord, error) {
	args := m.Called(ctx)
	var identity *rbac.Identity
	var record *rbac.PermissionRecord
	if v := args.Get(0); v != nil {
		identity = v.(*rbac.Identity)
	}
	if v := args.Get(1); v != nil {
		record = v.(*rbac.PermissionRecord)
	}
	return identity, record, args.Error(2)
}

// gatedFetcher hands each call's reply channel to the test
type gatedFetcher struct {
	calls chan chan fetchResult
}

type fetchResult struct {
	identity *rbac.Identity
	record   *rbac.PermissionRecord
	err      error
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{calls: make(chan chan fetchResult, 4)}
}

func (g *gatedFetcher) FetchProfile(ctx context.Context) (*rbac.Identity, *rbac.PermissionRecord, error) {
	reply := make(chan fetchResult)
	g.calls <- reply
	r := <-reply
	return r.identity, r.record, r.err
}

func quietLogger() *logger.Logger {
	return logger.NewWithOutput("error", io.Discard)
}

func adminProfile() (*rbac.Identity, *rbac.PermissionRecord) {
	identity := &rbac.Identity{UserID: "admin-1", Email: "admin@clinic.example", Role: rbac.RoleAdmin}
	record := &rbac.PermissionRecord{
		UserID:            "admin-1",
		CorePermissions:   map[string]bool{"can_manage_users": true},
		DashboardFeatures: map[string]bool{"medicine_module": true},
	}
	return identity, record
}

func TestContext_InitialStateDeniesEverything(t *testing.T) {
	c := New(new(MockFetcher), rbac.SuperAdminPolicy{}, WithLogger(quietLogger()))

	assert.Equal(t, StateUninitialized, c.State())
	assert.False(t, c.HasPermission(rbac.PermManageUsers))
	assert.False(t, c.HasDashboardFeature("medicine_module"))
	assert.False(t, c.CanCreateAdmins())
	assert.False(t, c.IsSuperAdmin())
	assert.Nil(t, c.Identity())
	assert.Nil(t, c.Record())
}

func TestContext_LoginReady(t *testing.T) {
	fetcher := new(MockFetcher)
	identity, record := adminProfile()
	fetcher.On("FetchProfile", mock.Anything).Return(identity, record, nil).Once()

	c := New(fetcher, rbac.SuperAdminPolicy{}, WithLogger(quietLogger()))
	require.NoError(t, c.Login(context.Background()))

	assert.Equal(t, StateReady, c.State())
	assert.True(t, c.HasPermission(rbac.PermManageUsers))
	assert.False(t, c.HasPermission(rbac.PermAccessBilling))
	assert.True(t, c.HasDashboardFeature("medicine_module"))
	assert.False(t, c.HasDashboardFeature("radiology_module"))
	assert.False(t, c.CanCreateAdmins())
	assert.False(t, c.IsSuperAdmin())
	assert.Equal(t, "admin-1", c.UserID())

	fetcher.AssertNumberOfCalls(t, "FetchProfile", 1)
}

func TestContext_SuperAdminWithEmptyRecord(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("FetchProfile", mock.Anything).Return(
		&rbac.Identity{UserID: "root", Role: rbac.RoleSuperAdmin},
		&rbac.PermissionRecord{UserID: "root"},
		nil,
	)

	c := New(fetcher, rbac.SuperAdminPolicy{}, WithLogger(quietLogger()))
	require.NoError(t, c.Login(context.Background()))

	assert.True(t, c.IsSuperAdmin())
	assert.True(t, c.CanCreateAdmins())
	for _, p := range rbac.AllCorePermissions() {
		assert.True(t, c.HasPermission(p), p)
	}
	for _, fk := range modules.FeatureKeys() {
		assert.True(t, c.HasDashboardFeature(fk), fk)
	}
}

func TestContext_FetchErrorFailsClosed(t *testing.T) {
	fetcher := new(MockFetcher)
	identity, record := adminProfile()
	fetcher.On("FetchProfile", mock.Anything).Return(identity, record, nil).Once()
	fetchErr := errors.New("connection reset")
	fetcher.On("FetchProfile", mock.Anything).Return(nil, nil, fetchErr).Once()

	c := New(fetcher, rbac.SuperAdminPolicy{}, WithLogger(quietLogger()))
	require.NoError(t, c.Login(context.Background()))
	require.True(t, c.HasPermission(rbac.PermManageUsers))

	err := c.Refresh(context.Background())
	assert.ErrorIs(t, err, fetchErr)
	assert.Equal(t, StateError, c.State())
	assert.ErrorIs(t, c.Err(), fetchErr)
	assert.False(t, c.HasPermission(rbac.PermManageUsers))
	assert.False(t, c.HasDashboardFeature("medicine_module"))
	assert.Nil(t, c.Record())

	// Retry recovers
	fetcher.On("FetchProfile", mock.Anything).Return(identity, record, nil).Once()
	require.NoError(t, c.Refresh(context.Background()))
	assert.Equal(t, StateReady, c.State())
	assert.NoError(t, c.Err())
}

func TestContext_NilIdentityIsAnError(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("FetchProfile", mock.Anything).Return(nil, nil, nil)

	c := New(fetcher, rbac.SuperAdminPolicy{}, WithLogger(quietLogger()))
	assert.Error(t, c.Login(context.Background()))
	assert.Equal(t, StateError, c.State())
}

func TestContext_LoadingDeniesUntilResolved(t *testing.T) {
	fetcher := newGatedFetcher()
	c := New(fetcher, rbac.SuperAdminPolicy{}, WithLogger(quietLogger()))

	done := make(chan error, 1)
	go func() { done <- c.Login(context.Background()) }()

	reply := <-fetcher.calls
	assert.Equal(t, StateLoading, c.State())
	assert.False(t, c.HasPermission(rbac.PermManageUsers))

	identity, record := adminProfile()
	reply <- fetchResult{identity: identity, record: record}
	require.NoError(t, <-done)
	assert.True(t, c.HasPermission(rbac.PermManageUsers))
}

func TestContext_StaleResponseDiscarded(t *testing.T) {
	fetcher := newGatedFetcher()
	c := New(fetcher, rbac.SuperAdminPolicy{}, WithLogger(quietLogger()))

	first := make(chan error, 1)
	go func() { first <- c.Login(context.Background()) }()
	firstReply := <-fetcher.calls

	second := make(chan error, 1)
	go func() { second <- c.Refresh(context.Background()) }()
	secondReply := <-fetcher.calls

	identity, stale := adminProfile()
	fresh := &rbac.PermissionRecord{UserID: "admin-1", CorePermissions: map[string]bool{"can_view_reports": true}}

	// The newer request completes first, then the older one arrives late
	secondReply <- fetchResult{identity: identity, record: fresh}
	require.NoError(t, <-second)
	firstReply <- fetchResult{identity: identity, record: stale}
	assert.ErrorIs(t, <-first, ErrSuperseded)

	assert.Equal(t, StateReady, c.State())
	assert.True(t, c.HasPermission(rbac.PermViewReports))
	assert.False(t, c.HasPermission(rbac.PermManageUsers))
	assert.Equal(t, uint64(2), c.Snapshot().Seq)
}

func TestContext_OlderCompletionBeforeNewerIsDiscarded(t *testing.T) {
	fetcher := newGatedFetcher()
	c := New(fetcher, rbac.SuperAdminPolicy{}, WithLogger(quietLogger()))

	first := make(chan error, 1)
	go func() { first <- c.Login(context.Background()) }()
	firstReply := <-fetcher.calls

	second := make(chan error, 1)
	go func() { second <- c.Refresh(context.Background()) }()
	secondReply := <-fetcher.calls

	identity, record := adminProfile()
	firstReply <- fetchResult{identity: identity, record: record}
	assert.ErrorIs(t, <-first, ErrSuperseded)

	// Still loading: the superseded result must not surface
	assert.Equal(t, StateLoading, c.State())
	assert.False(t, c.HasPermission(rbac.PermManageUsers))

	secondReply <- fetchResult{err: errors.New("timeout")}
	assert.Error(t, <-second)
	assert.Equal(t, StateError, c.State())
}

func TestContext_LogoutDiscardsInFlight(t *testing.T) {
	fetcher := newGatedFetcher()
	c := New(fetcher, rbac.SuperAdminPolicy{}, WithLogger(quietLogger()))

	done := make(chan error, 1)
	go func() { done <- c.Login(context.Background()) }()
	reply := <-fetcher.calls

	c.Logout()

	identity, record := adminProfile()
	reply <- fetchResult{identity: identity, record: record}
	assert.ErrorIs(t, <-done, ErrSuperseded)

	assert.Equal(t, StateUninitialized, c.State())
	assert.False(t, c.HasPermission(rbac.PermManageUsers))
	assert.Nil(t, c.Identity())
}

func TestContext_LogoutClearsCache(t *testing.T) {
	fetcher := new(MockFetcher)
	identity, record := adminProfile()
	fetcher.On("FetchProfile", mock.Anything).Return(identity, record, nil)

	c := New(fetcher, rbac.SuperAdminPolicy{}, WithLogger(quietLogger()))
	require.NoError(t, c.Login(context.Background()))
	c.Logout()

	assert.Equal(t, StateUninitialized, c.State())
	assert.Empty(t, c.UserID())
	assert.False(t, c.HasPermission(rbac.PermManageUsers))
}

func TestContext_SubscribeReceivesTransitions(t *testing.T) {
	fetcher := new(MockFetcher)
	identity, record := adminProfile()
	fetcher.On("FetchProfile", mock.Anything).Return(identity, record, nil)

	c := New(fetcher, rbac.SuperAdminPolicy{}, WithLogger(quietLogger()))

	var mu sync.Mutex
	var states []State
	unsubscribe := c.Subscribe(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s.State)
	})

	require.NoError(t, c.Login(context.Background()))
	c.Logout()

	mu.Lock()
	assert.Equal(t, []State{StateLoading, StateReady, StateUninitialized}, states)
	mu.Unlock()

	unsubscribe()
	unsubscribe()
	require.NoError(t, c.Login(context.Background()))

	mu.Lock()
	assert.Len(t, states, 3)
	mu.Unlock()
}

func TestContext_ListenersNeverSeeOlderSnapshots(t *testing.T) {
	c := New(new(MockFetcher), rbac.SuperAdminPolicy{}, WithLogger(quietLogger()))

	var seen []Snapshot
	c.Subscribe(func(s Snapshot) { seen = append(seen, s) })

	// A LOADING notification for seq 1 that lost the race to seq 2's result
	c.notify(Snapshot{State: StateLoading, Seq: 2})
	c.notify(Snapshot{State: StateReady, Seq: 2})
	c.notify(Snapshot{State: StateLoading, Seq: 1})

	require.Len(t, seen, 2)
	assert.Equal(t, StateReady, seen[1].State)
	assert.Equal(t, uint64(2), seen[1].Seq)
}

func TestContext_OverlappingRefreshesDeliverInOrder(t *testing.T) {
	fetcher := newGatedFetcher()
	c := New(fetcher, rbac.SuperAdminPolicy{}, WithLogger(quietLogger()))

	var mu sync.Mutex
	var seqs []uint64
	c.Subscribe(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		seqs = append(seqs, s.Seq)
	})

	first := make(chan error, 1)
	go func() { first <- c.Login(context.Background()) }()
	stale := <-fetcher.calls

	second := make(chan error, 1)
	go func() { second <- c.Refresh(context.Background()) }()
	current := <-fetcher.calls

	identity, record := adminProfile()
	current <- fetchResult{identity: identity, record: record}
	require.NoError(t, <-second)
	stale <- fetchResult{identity: identity, record: record}
	assert.ErrorIs(t, <-first, ErrSuperseded)

	assert.Equal(t, StateReady, c.State())
	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(seqs); i++ {
		assert.GreaterOrEqual(t, seqs[i], seqs[i-1])
	}
}

func TestContext_UnsubscribedListenerMissesLateResult(t *testing.T) {
	fetcher := newGatedFetcher()
	c := New(fetcher, rbac.SuperAdminPolicy{}, WithLogger(quietLogger()))

	calls := 0
	unsubscribe := c.Subscribe(func(Snapshot) { calls++ })

	done := make(chan error, 1)
	go func() { done <- c.Login(context.Background()) }()
	reply := <-fetcher.calls
	unsubscribe()

	identity, record := adminProfile()
	reply <- fetchResult{identity: identity, record: record}
	require.NoError(t, <-done)

	// Only the LOADING notification, delivered before the fetch started
	assert.Equal(t, 1, calls)
}

func TestContext_RecordIsACopy(t *testing.T) {
	fetcher := new(MockFetcher)
	identity, record := adminProfile()
	fetcher.On("FetchProfile", mock.Anything).Return(identity, record, nil)

	c := New(fetcher, rbac.SuperAdminPolicy{}, WithLogger(quietLogger()))
	require.NoError(t, c.Login(context.Background()))

	record.CorePermissions["can_access_billing"] = true
	got := c.Record()
	got.CorePermissions["can_export_data"] = true

	assert.False(t, c.HasPermission(rbac.PermAccessBilling))
	assert.False(t, c.HasPermission(rbac.PermExportData))
}

func TestContext_EmailAllowlist(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("FetchProfile", mock.Anything).Return(
		&rbac.Identity{UserID: "ops", Email: "ops@clinic.example", Role: rbac.RoleAdmin},
		&rbac.PermissionRecord{UserID: "ops"},
		nil,
	)

	policy := rbac.SuperAdminPolicy{EmailAllowlist: []string{"ops@clinic.example"}}
	c := New(fetcher, policy, WithLogger(quietLogger()))
	require.NoError(t, c.Login(context.Background()))

	assert.True(t, c.IsSuperAdmin())
	assert.False(t, c.CanCreateAdmins())
}

func TestContext_SnapshotTimestamps(t *testing.T) {
	fixed := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	fetcher := new(MockFetcher)
	identity, record := adminProfile()
	fetcher.On("FetchProfile", mock.Anything).Return(identity, record, nil)

	c := New(fetcher, rbac.SuperAdminPolicy{}, WithLogger(quietLogger()), WithClock(func() time.Time { return fixed }))
	require.NoError(t, c.Login(context.Background()))

	snap := c.Snapshot()
	assert.Equal(t, fixed, snap.UpdatedAt)
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, "admin-1", snap.Identity.UserID)
	assert.True(t, snap.Capabilities.HasPermission(rbac.PermManageUsers))
}
