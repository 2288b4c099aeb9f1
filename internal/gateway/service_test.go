package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TanzeemAgra/Healthcare-sub004/internal/gating"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/auth"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/logger"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/monitoring"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/rbac"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/types"
)

type gatewayFixture struct {
	service  *Service
	backend  *fakeBackend
	tokens   *auth.TokenManager
	registry *prometheus.Registry
}

var (
	superAdmin  = &types.User{ID: "sa-1", Email: "root@clinic.test", Role: rbac.RoleSuperAdmin, IsActive: true}
	clinicAdmin = &types.User{ID: "admin-1", Email: "admin@clinic.test", Role: rbac.RoleAdmin, IsActive: true}
	otherAdmin  = &types.User{ID: "admin-2", Email: "other@clinic.test", Role: rbac.RoleAdmin, IsActive: true}
)

func setupGateway(t *testing.T, tweak ...func(*Config)) *gatewayFixture {
	t.Helper()

	tokens := auth.NewTokenManager("test-secret-key-for-unit-tests", "healthcare-test", "healthcare-api", time.Hour)
	backend := newFakeBackend(t, tokens)
	backend.addUser(superAdmin, nil, nil)
	backend.addUser(clinicAdmin,
		map[string]bool{"can_manage_users": true},
		map[string]bool{"medicine_module": true, "user_management": true})
	backend.addUser(otherAdmin,
		map[string]bool{"can_view_reports": true},
		map[string]bool{"cardiology_module": true})

	config := &Config{
		Addr:             ":0",
		BackendURL:       backend.URL(),
		RequestTimeout:   2 * time.Second,
		SessionCacheSize: 16,
		SessionTTL:       time.Minute,
		Version:          "test",
	}
	for _, f := range tweak {
		f(config)
	}

	registry := prometheus.NewRegistry()
	service, err := NewService(config, Dependencies{
		Tokens:  tokens,
		Logger:  logger.NewWithOutput("error", io.Discard),
		Metrics: monitoring.NewMetricsCollector("gateway-test", registry),
	})
	require.NoError(t, err)

	return &gatewayFixture{service: service, backend: backend, tokens: tokens, registry: registry}
}

func (f *gatewayFixture) token(t *testing.T, user *types.User) string {
	t.Helper()
	tok, err := f.tokens.Issue(user)
	require.NoError(t, err)
	return tok.AccessToken
}

func (f *gatewayFixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.service.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func ids(t *testing.T, items interface{}) []string {
	t.Helper()
	list, ok := items.([]interface{})
	require.True(t, ok)
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, item.(map[string]interface{})["id"].(string))
	}
	return out
}

func TestNewService_RejectsBrokenNavigation(t *testing.T) {
	_, err := NewService(&Config{BackendURL: "http://localhost"}, Dependencies{
		Logger: logger.NewWithOutput("error", io.Discard),
		QuickActions: []gating.QuickAction{
			{ID: "bad", Label: "Bad", Path: "/bad", Requirement: gating.Requirement{Permission: "can_fly"}},
		},
	})
	assert.Error(t, err)
}

func TestGateway_RequiresToken(t *testing.T) {
	f := setupGateway(t)

	w := f.do(t, http.MethodGet, "/api/v1/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, types.ErrCodeUnauthorized, decodeBody(t, w)["code"])

	w = f.do(t, http.MethodGet, "/api/v1/session", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, f.backend.meCalls.Load())
}

func TestGateway_Login(t *testing.T) {
	f := setupGateway(t)

	w := f.do(t, http.MethodPost, "/api/v1/auth/login", "", types.Credentials{Email: clinicAdmin.Email, Password: testPassword})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp types.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Token)
	claims, err := f.tokens.Validate(resp.Token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, clinicAdmin.ID, claims.UserID)

	w = f.do(t, http.MethodPost, "/api/v1/auth/login", "", types.Credentials{Email: clinicAdmin.Email, Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, types.ErrCodeAuthenticationFailed, decodeBody(t, w)["code"])

	w = f.do(t, http.MethodPost, "/api/v1/auth/login", "", types.Credentials{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGateway_SessionIsLoadedOnce(t *testing.T) {
	f := setupGateway(t)
	token := f.token(t, clinicAdmin)

	w := f.do(t, http.MethodGet, "/api/v1/session", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	sess := decodeBody(t, w)["session"].(map[string]interface{})
	assert.Equal(t, "READY", sess["state"])
	assert.Equal(t, "admin-1", sess["identity"].(map[string]interface{})["id"])
	caps := sess["capabilities"].(map[string]interface{})
	assert.Equal(t, false, caps["super_admin"])
	assert.Equal(t, true, caps["permissions"].(map[string]interface{})["can_manage_users"])

	f.do(t, http.MethodGet, "/api/v1/session", token, nil)
	assert.Equal(t, int32(1), f.backend.meCalls.Load())
	assert.Equal(t, 1, f.service.sessions.Len())
}

func TestGateway_RefreshReloads(t *testing.T) {
	f := setupGateway(t)
	token := f.token(t, clinicAdmin)

	f.do(t, http.MethodGet, "/api/v1/session", token, nil)
	f.backend.addUser(clinicAdmin, map[string]bool{"can_view_reports": true}, nil)

	w := f.do(t, http.MethodPost, "/api/v1/session/refresh", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	sess := decodeBody(t, w)["session"].(map[string]interface{})
	core := sess["capabilities"].(map[string]interface{})["permissions"].(map[string]interface{})
	assert.Equal(t, true, core["can_view_reports"])
	assert.NotContains(t, core, "can_manage_users")
	assert.Equal(t, int32(2), f.backend.meCalls.Load())
}

func TestGateway_NavigationFollowsCapabilities(t *testing.T) {
	f := setupGateway(t)
	token := f.token(t, clinicAdmin)

	w := f.do(t, http.MethodGet, "/api/v1/navigation", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "READY", body["state"])

	nav := ids(t, body["items"])
	assert.Contains(t, nav, "dashboard")
	assert.Contains(t, nav, "users")
	assert.Contains(t, nav, "specialties")
	assert.NotContains(t, nav, "billing")
	assert.NotContains(t, nav, "reports")

	w = f.do(t, http.MethodGet, "/api/v1/quick-actions", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"create-user"}, ids(t, decodeBody(t, w)["actions"]))
}

func TestGateway_SuperAdminSeesEverything(t *testing.T) {
	f := setupGateway(t)
	token := f.token(t, superAdmin)

	w := f.do(t, http.MethodGet, "/api/v1/quick-actions", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, ids(t, decodeBody(t, w)["actions"]), len(gating.DefaultQuickActions()))
}

func TestGateway_Modules(t *testing.T) {
	f := setupGateway(t)
	token := f.token(t, clinicAdmin)

	w := f.do(t, http.MethodGet, "/api/v1/modules", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var keys []string
	for _, m := range decodeBody(t, w)["modules"].([]interface{}) {
		keys = append(keys, m.(map[string]interface{})["key"].(string))
	}
	assert.Equal(t, []string{"medicine", "user_management"}, keys)
}

func TestGateway_PermissionEditorForbiddenForAdmins(t *testing.T) {
	f := setupGateway(t)
	token := f.token(t, clinicAdmin)

	w := f.do(t, http.MethodGet, "/api/v1/admin/users/admin-2/permissions", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Access Denied", body["error"])
	assert.Equal(t, types.ErrCodeForbidden, body["code"])

	w = f.do(t, http.MethodPut, "/api/v1/admin/users/admin-2/permissions", token, types.PermissionsUpdateRequest{
		Permissions: map[string]bool{"can_manage_users": true},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, f.backend.targetCalls.Load())
}

func TestGateway_SuperAdminEditsPermissions(t *testing.T) {
	f := setupGateway(t)
	token := f.token(t, superAdmin)

	w := f.do(t, http.MethodGet, "/api/v1/admin/users/admin-2/permissions", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	record := decodeBody(t, w)["record"].(map[string]interface{})
	assert.Equal(t, "admin-2", record["user_id"])
	assert.Equal(t, true, record["permissions"].(map[string]interface{})["can_view_reports"])

	w = f.do(t, http.MethodPut, "/api/v1/admin/users/admin-2/permissions", token, types.PermissionsUpdateRequest{
		Permissions:       map[string]bool{"can_manage_users": true},
		DashboardFeatures: map[string]bool{"medicine_module": true},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	f.backend.mu.Lock()
	saved := f.backend.saved["admin-2"]
	f.backend.mu.Unlock()
	assert.Equal(t, map[string]bool{"can_manage_users": true}, saved.Permissions)
	assert.Equal(t, map[string]bool{"medicine_module": true}, saved.DashboardFeatures)
}

func TestGateway_SaveRejectsUnknownKeys(t *testing.T) {
	f := setupGateway(t)
	token := f.token(t, superAdmin)

	w := f.do(t, http.MethodPut, "/api/v1/admin/users/admin-2/permissions", token, types.PermissionsUpdateRequest{
		DashboardFeatures: map[string]bool{"foo_module": true},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, types.ErrCodeUnknownPermissionKey, body["code"])
	assert.Equal(t, []interface{}{"foo_module"}, body["details"].(map[string]interface{})["dashboard_features"])
	assert.Zero(t, f.backend.targetCalls.Load())
}

func TestGateway_SelfEditRefreshesSession(t *testing.T) {
	f := setupGateway(t)
	token := f.token(t, superAdmin)

	w := f.do(t, http.MethodPut, "/api/v1/admin/users/sa-1/permissions", token, types.PermissionsUpdateRequest{
		Permissions: map[string]bool{"can_export_data": true},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int32(2), f.backend.meCalls.Load())
}

func TestGateway_MalformedBody(t *testing.T) {
	f := setupGateway(t)
	token := f.token(t, superAdmin)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/users/admin-2/permissions", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	f.service.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, types.ErrCodeInvalidInput, decodeBody(t, w)["code"])
}

func TestGateway_GetQuota(t *testing.T) {
	f := setupGateway(t)
	f.backend.setQuota(&types.UserCreationQuota{
		AdminID: "admin-1", MaxDoctors: 5, MaxNurses: 5, MaxPatients: 5, MaxPharmacists: 5, MaxTotalUsers: 3,
		ResetPeriod:  types.ResetMonthly,
		CurrentUsage: types.QuotaUsage{Doctors: 3, TotalUsers: 3},
		LastResetAt:  time.Now().Add(-24 * time.Hour),
	})
	token := f.token(t, clinicAdmin)

	w := f.do(t, http.MethodGet, "/api/v1/admin/users/admin-1/quota", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "BLOCKED", body["status"])
	assert.Equal(t, float64(0), body["remaining_total"])
	assert.NotNil(t, body["next_reset"])
}

func TestGateway_CreateUserBlockedByQuota(t *testing.T) {
	f := setupGateway(t)
	f.backend.setQuota(&types.UserCreationQuota{
		AdminID: "admin-1", MaxDoctors: 5, MaxNurses: 5, MaxPatients: 5, MaxPharmacists: 5, MaxTotalUsers: 3,
		ResetPeriod:  types.ResetNever,
		CurrentUsage: types.QuotaUsage{Nurses: 3, TotalUsers: 3},
	})
	token := f.token(t, clinicAdmin)

	w := f.do(t, http.MethodPost, "/api/v1/admin/users", token, types.CreateUserRequest{
		Email: "dr.who@clinic.test", FullName: "Dr Who", Password: "tardis-1963", Role: rbac.RoleDoctor,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, types.ErrCodeQuotaExceeded, decodeBody(t, w)["code"])

	f.backend.mu.Lock()
	assert.Empty(t, f.backend.created)
	f.backend.mu.Unlock()
}

func TestGateway_CreateUnderQuota(t *testing.T) {
	f := setupGateway(t)
	f.backend.setQuota(&types.UserCreationQuota{
		AdminID: "admin-1", MaxDoctors: 5, MaxNurses: 5, MaxPatients: 5, MaxPharmacists: 5, MaxTotalUsers: 10,
		ResetPeriod: types.ResetNever,
	})
	token := f.token(t, clinicAdmin)

	w := f.do(t, http.MethodPost, "/api/v1/admin/users", token, types.CreateUserRequest{
		Email: "dr.who@clinic.test", FullName: "Dr Who", Password: "tardis-1963", Role: rbac.RoleDoctor,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp types.UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, rbac.RoleDoctor, resp.User.Role)
	assert.Equal(t, "admin-1", resp.User.CreatedBy)
}

func TestGateway_CreateUserNeedsManageUsers(t *testing.T) {
	f := setupGateway(t)
	token := f.token(t, otherAdmin)

	w := f.do(t, http.MethodPost, "/api/v1/admin/users", token, types.CreateUserRequest{
		Email: "n@clinic.test", FullName: "Nurse", Password: "password-1", Role: rbac.RoleNurse,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGateway_CreateAdmin(t *testing.T) {
	f := setupGateway(t)
	req := types.CreateAdminRequest{
		Email: "new.admin@clinic.test", FullName: "New Admin", Password: "long-password",
		Permissions: map[string]bool{"can_manage_users": true},
	}

	w := f.do(t, http.MethodPost, "/api/v1/admin/users/create-admin", f.token(t, clinicAdmin), req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/admin/users/create-admin", f.token(t, superAdmin), req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password")

	req.DashboardFeatures = map[string]bool{"foo_module": true}
	w = f.do(t, http.MethodPost, "/api/v1/admin/users/create-admin", f.token(t, superAdmin), req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	f.backend.mu.Lock()
	assert.Len(t, f.backend.admins, 1)
	f.backend.mu.Unlock()
}

func TestGateway_UpdateQuota(t *testing.T) {
	f := setupGateway(t)
	q := types.UserCreationQuota{
		MaxDoctors: 1, MaxNurses: 2, MaxPatients: 3, MaxPharmacists: 4, MaxTotalUsers: 10,
		ResetPeriod: types.ResetYearly,
	}

	w := f.do(t, http.MethodPut, "/api/v1/admin/users/admin-1/quota", f.token(t, clinicAdmin), q)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPut, "/api/v1/admin/users/admin-1/quota", f.token(t, superAdmin), q)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp types.QuotaResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "admin-1", resp.Quota.AdminID)
	assert.Equal(t, 10, resp.Quota.MaxTotalUsers)

	q.ResetPeriod = "weekly"
	w = f.do(t, http.MethodPut, "/api/v1/admin/users/admin-1/quota", f.token(t, superAdmin), q)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGateway_Logout(t *testing.T) {
	f := setupGateway(t)
	token := f.token(t, clinicAdmin)

	f.do(t, http.MethodGet, "/api/v1/session", token, nil)
	require.Equal(t, 1, f.service.sessions.Len())

	w := f.do(t, http.MethodDelete, "/api/v1/session", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Zero(t, f.service.sessions.Len())

	f.do(t, http.MethodGet, "/api/v1/session", token, nil)
	assert.Equal(t, int32(2), f.backend.meCalls.Load())
}

func TestGateway_RevokedTokenIsNotCached(t *testing.T) {
	f := setupGateway(t)
	f.backend.revoked.Store(true)

	w := f.do(t, http.MethodGet, "/api/v1/navigation", f.token(t, clinicAdmin), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, f.service.sessions.Len())
}

func TestGateway_BackendFailureFailsClosed(t *testing.T) {
	f := setupGateway(t)
	f.backend.failMe.Store(true)
	token := f.token(t, superAdmin)

	w := f.do(t, http.MethodGet, "/api/v1/session", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "ERROR", body["session"].(map[string]interface{})["state"])
	assert.NotEmpty(t, body["error"])

	w = f.do(t, http.MethodGet, "/api/v1/quick-actions", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody(t, w)["actions"])

	w = f.do(t, http.MethodPost, "/api/v1/admin/users/create-admin", token, types.CreateAdminRequest{})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "PERMISSIONS_UNAVAILABLE", decodeBody(t, w)["code"])

	// Recovery goes through refresh
	f.backend.failMe.Store(false)
	w = f.do(t, http.MethodPost, "/api/v1/session/refresh", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "READY", decodeBody(t, w)["session"].(map[string]interface{})["state"])
}

func TestGateway_PermissionEditorUnavailableWhenLoadFailed(t *testing.T) {
	f := setupGateway(t)
	f.backend.failMe.Store(true)
	token := f.token(t, superAdmin)

	w := f.do(t, http.MethodGet, "/api/v1/admin/users/admin-1/permissions", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "PERMISSIONS_UNAVAILABLE", decodeBody(t, w)["code"])

	w = f.do(t, http.MethodPut, "/api/v1/admin/users/admin-1/permissions", token, types.PermissionsUpdateRequest{
		Permissions: map[string]bool{"can_manage_users": true},
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "PERMISSIONS_UNAVAILABLE", decodeBody(t, w)["code"])
	assert.Zero(t, f.backend.targetCalls.Load())

	f.backend.mu.Lock()
	assert.Empty(t, f.backend.saved)
	f.backend.mu.Unlock()

	f.backend.failMe.Store(false)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/session/refresh", token, nil).Code)

	w = f.do(t, http.MethodGet, "/api/v1/admin/users/admin-1/permissions", token, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestGateway_RateLimit(t *testing.T) {
	f := setupGateway(t, func(c *Config) {
		c.RateLimit = 2
		c.RatePeriod = time.Hour
	})
	token := f.token(t, clinicAdmin)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/session", token, nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/session", token, nil).Code)

	w := f.do(t, http.MethodGet, "/api/v1/session", token, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// Other users have their own bucket
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/session", f.token(t, superAdmin), nil).Code)
}

func TestGateway_Health(t *testing.T) {
	f := setupGateway(t)

	w := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report monitoring.HealthReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, monitoring.HealthStatusHealthy, report.Status)
	assert.Equal(t, "session-gateway", report.Service)
	assert.Len(t, report.Checks, 2)
}

func TestGateway_Metrics(t *testing.T) {
	f := setupGateway(t)
	f.do(t, http.MethodPost, "/api/v1/admin/users/create-admin", f.token(t, clinicAdmin), types.CreateAdminRequest{})

	w := f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "access_decisions_total")
	assert.Contains(t, w.Body.String(), "active_sessions")
}

func TestBackendHealthURL(t *testing.T) {
	u, err := backendHealthURL("http://iam:8081/api/v1?x=1")
	require.NoError(t, err)
	assert.Equal(t, "http://iam:8081/health", u)
}
