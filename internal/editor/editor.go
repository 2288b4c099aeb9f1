package editor

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/TanzeemAgra/Healthcare-sub004/pkg/logger"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/modules"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/rbac"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/types"
)

// ErrSaveInProgress is returned by Save while another save is pending
var ErrSaveInProgress = types.NewConflictError(types.ErrCodeSaveInProgress, "A permission save is already in progress")

// PermissionsAPI is the part of the permission service the editor calls
type PermissionsAPI interface {
	GetUserPermissions(ctx context.Context, userID string) (*types.PermissionUser, error)
	SaveUserPermissions(ctx context.Context, userID string, record *rbac.PermissionRecord) error
}

// Session is the signed-in editor's permission context
type Session interface {
	IsSuperAdmin() bool
	UserID() string
	Refresh(ctx context.Context) error
}

// Option configures an Editor
type Option func(*Editor)

// WithLogger sets the editor's logger
func WithLogger(log *logger.Logger) Option {
	return func(e *Editor) { e.logger = log }
}

// Editor lets a super admin read and replace other admins' permission records.
// It never applies changes locally before the server confirms them.
// Concurrent edits by different super admins are last-write-wins.
type Editor struct {
	api     PermissionsAPI
	session Session
	logger  *logger.Logger

	mu         sync.Mutex
	saving     bool
	lastLoaded map[string]*rbac.PermissionRecord
}

// New creates an editor acting on behalf of session
func New(api PermissionsAPI, session Session, opts ...Option) *Editor {
	e := &Editor{
		api:        api,
		session:    session,
		lastLoaded: make(map[string]*rbac.PermissionRecord),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.New("info")
	}
	return e
}

// Load fetches adminID's record. Callers that are not super admins are refused
// before any request is made.
func (e *Editor) Load(ctx context.Context, adminID string) (*rbac.PermissionRecord, error) {
	if err := e.authorize("load", adminID); err != nil {
		return nil, err
	}

	user, err := e.api.GetUserPermissions(ctx, adminID)
	if err != nil {
		return nil, err
	}

	record := user.Record()
	record.UserID = adminID

	e.mu.Lock()
	e.lastLoaded[adminID] = record.Clone()
	e.mu.Unlock()

	return record, nil
}

// Save replaces both maps of adminID's record with those of record
func (e *Editor) Save(ctx context.Context, adminID string, record *rbac.PermissionRecord) error {
	if err := e.authorize("save", adminID); err != nil {
		return err
	}
	if err := Validate(record); err != nil {
		return err
	}

	e.mu.Lock()
	if e.saving {
		e.mu.Unlock()
		return ErrSaveInProgress
	}
	e.saving = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.saving = false
		e.mu.Unlock()
	}()

	submitted := record.Clone()
	submitted.UserID = adminID

	if err := e.api.SaveUserPermissions(ctx, adminID, submitted); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithField("target_user_id", adminID).Warn("Permission save failed")
		return err
	}

	e.mu.Lock()
	previous := e.lastLoaded[adminID]
	e.lastLoaded[adminID] = submitted.Clone()
	e.mu.Unlock()

	granted, revoked := ChangedKeys(previous, submitted)
	e.logger.PermissionChange(ctx, e.session.UserID(), adminID, granted, revoked)

	if adminID == e.session.UserID() {
		if err := e.session.Refresh(ctx); err != nil {
			e.logger.WithContext(ctx).WithError(err).Warn("Refresh after self-edit failed")
		}
	}
	return nil
}

// Saving reports whether a save is pending
func (e *Editor) Saving() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saving
}

// LastLoaded returns the last server-confirmed record for adminID
func (e *Editor) LastLoaded(adminID string) (*rbac.PermissionRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.lastLoaded[adminID]
	return r.Clone(), ok
}

func (e *Editor) authorize(action, adminID string) error {
	if e.session != nil && e.session.IsSuperAdmin() {
		return nil
	}
	userID := ""
	if e.session != nil {
		userID = e.session.UserID()
	}
	e.logger.Security(rbac.AuditEventAccessDenied, userID, map[string]interface{}{
		"action":         "permissions_" + action,
		"target_user_id": adminID,
	})
	return types.NewAuthorizationError(types.ErrCodeForbidden, "Access Denied")
}

// Validate rejects records carrying keys outside the core permission list or
// the module registry. The error lists every offending key.
func Validate(record *rbac.PermissionRecord) error {
	if record == nil {
		return types.NewValidationError(types.ErrCodeInvalidInput, "Permission record is required", nil)
	}

	var unknownCore, unknownFeatures []string
	for key := range record.CorePermissions {
		if !rbac.IsKnownCorePermission(key) {
			unknownCore = append(unknownCore, key)
		}
	}
	for key := range record.DashboardFeatures {
		if !modules.IsKnownFeature(key) {
			unknownFeatures = append(unknownFeatures, key)
		}
	}
	if len(unknownCore) == 0 && len(unknownFeatures) == 0 {
		return nil
	}

	sort.Strings(unknownCore)
	sort.Strings(unknownFeatures)

	details := map[string]interface{}{}
	if len(unknownCore) > 0 {
		details["permissions"] = unknownCore
	}
	if len(unknownFeatures) > 0 {
		details["dashboard_features"] = unknownFeatures
	}
	all := append(append([]string{}, unknownCore...), unknownFeatures...)
	return types.NewValidationError(types.ErrCodeUnknownPermissionKey,
		"Unknown permission keys: "+strings.Join(all, ", "), details)
}

// ChangedKeys lists keys that flipped to true and to false between two
// records, sorted. A nil before counts as all-false.
func ChangedKeys(before, after *rbac.PermissionRecord) (granted, revoked []string) {
	was := func(m map[string]bool, k string) bool { return m != nil && m[k] }
	var beforeCore, beforeFeatures map[string]bool
	if before != nil {
		beforeCore, beforeFeatures = before.CorePermissions, before.DashboardFeatures
	}

	compare := func(old, cur map[string]bool) {
		for k, v := range cur {
			if v && !was(old, k) {
				granted = append(granted, k)
			}
		}
		for k, v := range old {
			if v && !was(cur, k) {
				revoked = append(revoked, k)
			}
		}
	}
	compare(beforeCore, after.CorePermissions)
	compare(beforeFeatures, after.DashboardFeatures)

	sort.Strings(granted)
	sort.Strings(revoked)
	return granted, revoked
}
