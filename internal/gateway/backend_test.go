package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gorilla/mux"

	"github.com/TanzeemAgra/Healthcare-sub004/pkg/auth"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/rbac"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/types"
)

const testPassword = "correct-horse-battery"

// fakeBackend plays the permission backend over HTTP. It trusts the same
// token manager as the gateway so tokens issued in tests are accepted.
type fakeBackend struct {
	server *httptest.Server
	tokens *auth.TokenManager

	mu       sync.Mutex
	users    map[string]*types.User
	profiles map[string]*types.PermissionUser
	quotas   map[string]*types.UserCreationQuota
	saved    map[string]types.PermissionsUpdateRequest
	created  []types.CreateUserRequest
	admins   []types.CreateAdminRequest

	meCalls     atomic.Int32
	targetCalls atomic.Int32
	revoked     atomic.Bool
	failMe      atomic.Bool
}

func newFakeBackend(t *testing.T, tokens *auth.TokenManager) *fakeBackend {
	t.Helper()
	b := &fakeBackend{
		tokens:   tokens,
		users:    make(map[string]*types.User),
		profiles: make(map[string]*types.PermissionUser),
		quotas:   make(map[string]*types.UserCreationQuota),
		saved:    make(map[string]types.PermissionsUpdateRequest),
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auth/login", b.login).Methods(http.MethodPost)
	api.HandleFunc("/permissions/me", b.me).Methods(http.MethodGet)
	api.HandleFunc("/users", b.createUser).Methods(http.MethodPost)
	api.HandleFunc("/users/create-admin", b.createAdmin).Methods(http.MethodPost)
	api.HandleFunc("/users/{id}/permissions", b.getPermissions).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/permissions", b.savePermissions).Methods(http.MethodPut)
	api.HandleFunc("/users/{id}/quota", b.getQuota).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/quota", b.updateQuota).Methods(http.MethodPut)

	b.server = httptest.NewServer(r)
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) URL() string {
	return b.server.URL + "/api/v1"
}

// addUser registers a user together with their override record
func (b *fakeBackend) addUser(user *types.User, core, features map[string]bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[user.ID] = user
	b.profiles[user.ID] = types.NewPermissionUser(user, &rbac.PermissionRecord{
		UserID:            user.ID,
		CorePermissions:   core,
		DashboardFeatures: features,
	})
}

func (b *fakeBackend) setQuota(q *types.UserCreationQuota) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quotas[q.AdminID] = q
}

func (b *fakeBackend) caller(w http.ResponseWriter, r *http.Request) (*types.UserClaims, bool) {
	token, err := auth.BearerToken(r.Header.Get("Authorization"))
	if err == nil && !b.revoked.Load() {
		if claims, err := b.tokens.Validate(token); err == nil {
			return claims, true
		}
	}
	writeTestJSON(w, http.StatusUnauthorized, types.StatusResponse{Error: "Invalid or expired token", Code: types.ErrCodeUnauthorized})
	return nil, false
}

func (b *fakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var creds types.Credentials
	_ = json.NewDecoder(r.Body).Decode(&creds)

	b.mu.Lock()
	var user *types.User
	for _, u := range b.users {
		if u.Email == creds.Email {
			user = u
		}
	}
	b.mu.Unlock()

	if user == nil || creds.Password != testPassword {
		writeTestJSON(w, http.StatusUnauthorized, types.StatusResponse{Error: "Invalid credentials", Code: types.ErrCodeAuthenticationFailed})
		return
	}
	token, _ := b.tokens.Issue(user)
	writeTestJSON(w, http.StatusOK, types.LoginResponse{Success: true, Token: token})
}

func (b *fakeBackend) me(w http.ResponseWriter, r *http.Request) {
	b.meCalls.Add(1)
	claims, ok := b.caller(w, r)
	if !ok {
		return
	}
	if b.failMe.Load() {
		writeTestJSON(w, http.StatusInternalServerError, types.StatusResponse{Error: "database unavailable", Code: types.ErrCodeInternalError})
		return
	}

	b.mu.Lock()
	profile := *b.profiles[claims.UserID]
	b.mu.Unlock()
	writeTestJSON(w, http.StatusOK, types.PermissionsResponse{Success: true, User: &profile})
}

func (b *fakeBackend) getPermissions(w http.ResponseWriter, r *http.Request) {
	b.targetCalls.Add(1)
	if _, ok := b.caller(w, r); !ok {
		return
	}

	b.mu.Lock()
	stored, found := b.profiles[mux.Vars(r)["id"]]
	var profile types.PermissionUser
	if found {
		profile = *stored
	}
	b.mu.Unlock()
	if !found {
		writeTestJSON(w, http.StatusNotFound, types.StatusResponse{Error: "User not found", Code: types.ErrCodeNotFound})
		return
	}
	writeTestJSON(w, http.StatusOK, types.PermissionsResponse{Success: true, User: &profile})
}

func (b *fakeBackend) savePermissions(w http.ResponseWriter, r *http.Request) {
	b.targetCalls.Add(1)
	if _, ok := b.caller(w, r); !ok {
		return
	}

	var req types.PermissionsUpdateRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	id := mux.Vars(r)["id"]

	b.mu.Lock()
	b.saved[id] = req
	if profile, ok := b.profiles[id]; ok {
		profile.Permissions = req.Permissions
		profile.DashboardFeatures = req.DashboardFeatures
	}
	b.mu.Unlock()
	writeTestJSON(w, http.StatusOK, types.StatusResponse{Success: true})
}

func (b *fakeBackend) getQuota(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.caller(w, r); !ok {
		return
	}

	b.mu.Lock()
	q, found := b.quotas[mux.Vars(r)["id"]]
	b.mu.Unlock()
	if !found {
		writeTestJSON(w, http.StatusNotFound, types.StatusResponse{Error: "Quota not found", Code: types.ErrCodeNotFound})
		return
	}
	writeTestJSON(w, http.StatusOK, types.QuotaResponse{Success: true, Quota: q})
}

func (b *fakeBackend) updateQuota(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.caller(w, r); !ok {
		return
	}

	var q types.UserCreationQuota
	_ = json.NewDecoder(r.Body).Decode(&q)
	q.AdminID = mux.Vars(r)["id"]

	b.mu.Lock()
	b.quotas[q.AdminID] = &q
	b.mu.Unlock()
	writeTestJSON(w, http.StatusOK, types.QuotaResponse{Success: true, Quota: &q})
}

func (b *fakeBackend) createUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := b.caller(w, r)
	if !ok {
		return
	}

	var req types.CreateUserRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	b.created = append(b.created, req)
	b.mu.Unlock()
	writeTestJSON(w, http.StatusCreated, types.UserResponse{Success: true, User: &types.User{
		ID: "user-new", Email: req.Email, FullName: req.FullName, Role: req.Role, IsActive: true, CreatedBy: claims.UserID,
	}})
}

func (b *fakeBackend) createAdmin(w http.ResponseWriter, r *http.Request) {
	claims, ok := b.caller(w, r)
	if !ok {
		return
	}

	var req types.CreateAdminRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	b.admins = append(b.admins, req)
	b.mu.Unlock()
	writeTestJSON(w, http.StatusCreated, types.UserResponse{Success: true, User: &types.User{
		ID: "admin-new", Email: req.Email, FullName: req.FullName, Role: rbac.RoleAdmin, IsActive: true, CreatedBy: claims.UserID,
	}})
}

func writeTestJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
