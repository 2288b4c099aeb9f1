package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/TanzeemAgra/Healthcare-sub004/internal/editor"
	"github.com/TanzeemAgra/Healthcare-sub004/internal/gating"
	"github.com/TanzeemAgra/Healthcare-sub004/internal/quota"
	"github.com/TanzeemAgra/Healthcare-sub004/internal/session"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/modules"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/rbac"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/types"
)

// errorResponse is the body of every failed request
type errorResponse struct {
	Success bool                   `json:"success"`
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

type sessionResponse struct {
	Success bool             `json:"success"`
	Session session.Snapshot `json:"session"`
	Error   string           `json:"error,omitempty"`
}

type navigationResponse struct {
	Success bool             `json:"success"`
	State   session.State    `json:"state"`
	Items   []gating.NavItem `json:"items"`
}

type quickActionsResponse struct {
	Success bool                 `json:"success"`
	State   session.State        `json:"state"`
	Actions []gating.QuickAction `json:"actions"`
}

type modulesResponse struct {
	Success bool             `json:"success"`
	State   session.State    `json:"state"`
	Modules []modules.Module `json:"modules"`
}

type recordResponse struct {
	Success bool                   `json:"success"`
	Record  *rbac.PermissionRecord `json:"record"`
}

type quotaSummaryResponse struct {
	Success bool `json:"success"`
	*quota.Summary
}

// handleLogin exchanges credentials for a token at the backend. No session
// is created until the token is first used.
func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds types.Credentials
	if !s.decode(w, r, &creds) {
		return
	}
	if creds.Email == "" || creds.Password == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, types.ErrCodeInvalidInput, "email and password are required")
		return
	}

	token, err := s.backend.Login(r.Context(), &creds)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, types.LoginResponse{Success: true, Token: token})
}

func (s *Service) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	s.writeSnapshot(w, sess.Context.Snapshot())
}

// handleRefreshSession reloads the caller's permissions from the backend
func (s *Service) handleRefreshSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	err := sess.Context.Refresh(r.Context())
	switch {
	case err == nil:
	case errors.Is(err, session.ErrSuperseded):
		s.writeErrorResponse(w, http.StatusConflict, types.ErrCodeConflict, "refresh superseded by a newer load")
		return
	case types.IsType(err, types.ErrorTypeAuthentication):
		s.writeError(w, r, err)
		return
	default:
		// The context is in ERROR now; the snapshot tells the client.
		s.logger.WithContext(r.Context()).WithError(err).Warn("Permission refresh failed")
	}

	s.writeSnapshot(w, sess.Context.Snapshot())
}

// handleLogout drops the cached session. Late responses of loads still in
// flight are discarded by the context.
func (s *Service) handleLogout(w http.ResponseWriter, r *http.Request) {
	removed := s.sessions.Remove(tokenFromContext(r.Context()))

	userID := ""
	if claims, ok := claimsFromContext(r.Context()); ok {
		userID = claims.UserID
	}
	s.logger.Audit(userID, "logout", "session", true, map[string]interface{}{
		"had_session": removed,
	})

	s.writeJSONResponse(w, http.StatusOK, types.StatusResponse{Success: true})
}

func (s *Service) handleNavigation(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	s.writeJSONResponse(w, http.StatusOK, navigationResponse{
		Success: true,
		State:   sess.Context.State(),
		Items:   gating.VisibleNavigation(sess.Context, s.navigation),
	})
}

func (s *Service) handleQuickActions(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	s.writeJSONResponse(w, http.StatusOK, quickActionsResponse{
		Success: true,
		State:   sess.Context.State(),
		Actions: gating.VisibleQuickActions(sess.Context, s.actions),
	})
}

func (s *Service) handleModules(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	s.writeJSONResponse(w, http.StatusOK, modulesResponse{
		Success: true,
		State:   sess.Context.State(),
		Modules: gating.VisibleModules(sess.Context),
	})
}

// handleGetUserPermissions loads an admin's record into the editor
func (s *Service) handleGetUserPermissions(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	record, err := sess.Editor.Load(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, recordResponse{Success: true, Record: record})
}

// handleSaveUserPermissions replaces both maps of an admin's record. Keys
// left out of the body are stored as absent, not kept.
func (s *Service) handleSaveUserPermissions(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	var req types.PermissionsUpdateRequest
	if !s.decode(w, r, &req) {
		return
	}

	record := &rbac.PermissionRecord{
		CorePermissions:   req.Permissions,
		DashboardFeatures: req.DashboardFeatures,
	}
	if record.CorePermissions == nil {
		record.CorePermissions = map[string]bool{}
	}
	if record.DashboardFeatures == nil {
		record.DashboardFeatures = map[string]bool{}
	}

	if err := sess.Editor.Save(r.Context(), mux.Vars(r)["id"], record); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, types.StatusResponse{Success: true})
}

// handleGetQuota answers with the quota and its derived gate state
func (s *Service) handleGetQuota(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	summary, err := sess.Quotas.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, quotaSummaryResponse{Success: true, Summary: summary})
}

func (s *Service) handleUpdateQuota(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	var q types.UserCreationQuota
	if !s.decode(w, r, &q) {
		return
	}
	if err := quota.Validate(&q); err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := sess.Backend.UpdateQuota(r.Context(), mux.Vars(r)["id"], &q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, types.QuotaResponse{Success: true, Quota: updated})
}

// handleCreateAdmin creates an admin. Unknown permission keys are rejected
// here so the backend never sees them.
func (s *Service) handleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	var req types.CreateAdminRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := editor.Validate(&rbac.PermissionRecord{
		CorePermissions:   req.Permissions,
		DashboardFeatures: req.DashboardFeatures,
	}); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.UserCreationQuota != nil {
		if err := quota.Validate(req.UserCreationQuota); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	user, err := sess.Backend.CreateAdmin(r.Context(), &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, types.UserResponse{Success: true, User: user})
}

// handleCreateUser creates a user under the caller's quota. Metered callers
// are checked against their current quota before the backend is asked; the
// backend enforces the same rule again.
func (s *Service) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	var req types.CreateUserRequest
	if !s.decode(w, r, &req) {
		return
	}

	if !sess.Context.IsSuperAdmin() {
		summary, err := sess.Quotas.Get(r.Context(), sess.Context.UserID())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := quota.CheckCreate(summary.Quota, req.Role); err != nil {
			if s.metrics != nil {
				s.metrics.RecordQuotaBlock(string(req.Role))
			}
			s.writeError(w, r, err)
			return
		}
	}

	user, err := sess.Backend.CreateUser(r.Context(), &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, types.UserResponse{Success: true, User: user})
}

func (s *Service) writeSnapshot(w http.ResponseWriter, snap session.Snapshot) {
	resp := sessionResponse{Success: true, Session: snap}
	if snap.Err != nil {
		resp.Error = snap.Err.Error()
	}
	s.writeJSONResponse(w, http.StatusOK, resp)
}

// decode reads a JSON body into v, answering 400 on failure
func (s *Service) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, types.ErrCodeInvalidInput, "invalid request body")
		return false
	}
	return true
}

// writeJSONResponse writes a JSON response
func (s *Service) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (s *Service) writeErrorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	s.writeJSONResponse(w, statusCode, errorResponse{Success: false, Error: message, Code: code})
}

// writeError answers with the status err maps to. A token the backend no
// longer accepts loses its session.
func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := types.HTTPStatus(err)

	var accessErr *types.AccessError
	if !errors.As(err, &accessErr) {
		s.logger.WithContext(r.Context()).WithError(err).Error("Request failed")
		s.writeErrorResponse(w, status, types.ErrCodeInternalError, "internal server error")
		return
	}

	if accessErr.Type == types.ErrorTypeAuthentication {
		if token := tokenFromContext(r.Context()); token != "" {
			s.sessions.Remove(token)
		}
	}
	if status >= http.StatusInternalServerError {
		s.logger.WithContext(r.Context()).WithError(err).Error("Request failed")
	}

	s.writeJSONResponse(w, status, errorResponse{
		Success: false,
		Error:   accessErr.Message,
		Code:    accessErr.Code,
		Details: accessErr.Details,
	})
}
