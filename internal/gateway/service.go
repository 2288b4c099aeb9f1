package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/TanzeemAgra/Healthcare-sub004/internal/client"
	"github.com/TanzeemAgra/Healthcare-sub004/internal/gating"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/auth"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/logger"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/modules"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/monitoring"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/rbac"
)

// Service implements the session gateway the dashboard talks to. It keeps a
// permission context per signed-in token and serves gated views from it.
type Service struct {
	config      *Config
	router      *mux.Router
	server      *http.Server
	sessions    *SessionStore
	rateLimiter *RateLimiter
	tokens      *auth.TokenManager
	backend     *client.Client
	logger      *logger.Logger
	metrics     *monitoring.MetricsCollector
	monitoring  *monitoring.MonitoringMiddleware
	health      *monitoring.HealthManager
	navigation  []gating.NavItem
	actions     []gating.QuickAction
	startTime   time.Time
}

// Config holds the gateway configuration
type Config struct {
	Addr             string
	BackendURL       string
	RequestTimeout   time.Duration
	SessionCacheSize int
	SessionTTL       time.Duration
	RateLimit        int
	RatePeriod       time.Duration
	RateBurst        int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	AllowedOrigins   []string
	Version          string
}

// Dependencies are the collaborators of the gateway. Tracing and Navigation
// are optional; Navigation defaults to the built-in dashboard layout.
type Dependencies struct {
	Tokens       *auth.TokenManager
	Policy       rbac.SuperAdminPolicy
	Logger       *logger.Logger
	Metrics      *monitoring.MetricsCollector
	Tracing      *monitoring.TracingManager
	Navigation   []gating.NavItem
	QuickActions []gating.QuickAction
}

// NewService creates a new gateway service
func NewService(config *Config, deps Dependencies) (*Service, error) {
	nav, actions := deps.Navigation, deps.QuickActions
	if nav == nil {
		nav = gating.DefaultNavigation()
	}
	if actions == nil {
		actions = gating.DefaultQuickActions()
	}
	if err := modules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid module catalog: %w", err)
	}
	if err := gating.ValidateConfig(nav, actions); err != nil {
		return nil, fmt.Errorf("invalid dashboard configuration: %w", err)
	}

	backend := client.New(config.BackendURL, config.RequestTimeout, deps.Logger, deps.Metrics)

	s := &Service{
		config:     config,
		router:     mux.NewRouter(),
		sessions:   NewSessionStore(backend, deps.Policy, config.SessionCacheSize, config.SessionTTL, deps.Logger, deps.Metrics),
		tokens:     deps.Tokens,
		backend:    backend,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		monitoring: monitoring.NewMonitoringMiddleware(deps.Metrics, deps.Tracing, deps.Logger),
		health:     monitoring.NewHealthManager("session-gateway", config.Version),
		navigation: nav,
		actions:    actions,
		startTime:  time.Now(),
	}
	if config.RateLimit > 0 {
		s.rateLimiter = NewRateLimiter(config.RateLimit, config.RatePeriod, config.RateBurst)
	}

	s.setupHealth()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s, nil
}

// Handler returns the root HTTP handler
func (s *Service) Handler() http.Handler {
	return s.router
}

// Start starts the gateway server and blocks until it stops
func (s *Service) Start(ctx context.Context) error {
	if s.rateLimiter != nil {
		s.rateLimiter.StartCleanup(ctx, 10*time.Minute)
	}

	s.logger.WithComponent("gateway").WithField("addr", s.server.Addr).Info("Starting session gateway")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop drains the server and logs every session out
func (s *Service) Stop(ctx context.Context) error {
	s.logger.WithComponent("gateway").Info("Stopping session gateway")
	err := s.server.Shutdown(ctx)
	s.sessions.Purge()
	return err
}

// setupRoutes sets up the routing
func (s *Service) setupRoutes() {
	s.router.Use(s.monitoring.HTTPMiddleware)
	s.router.Use(s.corsMiddleware)
	s.router.Use(s.securityHeadersMiddleware)
	s.router.Use(s.authMiddleware)
	s.router.Use(s.rateLimitMiddleware)

	// Preflight requests are answered by corsMiddleware.
	s.router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metricsHandler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	// Logout needs no loaded context; it only drops the cached one.
	api.HandleFunc("/session", s.handleLogout).Methods(http.MethodDelete)

	authed := api.NewRoute().Subrouter()
	authed.Use(s.sessionMiddleware)

	authed.HandleFunc("/session", s.handleGetSession).Methods(http.MethodGet)
	authed.HandleFunc("/session/refresh", s.handleRefreshSession).Methods(http.MethodPost)
	authed.HandleFunc("/navigation", s.handleNavigation).Methods(http.MethodGet)
	authed.HandleFunc("/quick-actions", s.handleQuickActions).Methods(http.MethodGet)
	authed.HandleFunc("/modules", s.handleModules).Methods(http.MethodGet)

	admin := authed.PathPrefix("/admin/users").Subrouter()
	editPermissions := s.requireCapability("permissions_edit", gating.Requirement{SuperAdminOnly: true})
	admin.Handle("/{id}/permissions", editPermissions(http.HandlerFunc(s.handleGetUserPermissions))).Methods(http.MethodGet)
	admin.Handle("/{id}/permissions", editPermissions(http.HandlerFunc(s.handleSaveUserPermissions))).Methods(http.MethodPut)
	admin.HandleFunc("/{id}/quota", s.handleGetQuota).Methods(http.MethodGet)

	admin.Handle("/{id}/quota",
		s.requireCapability("quota_update", gating.Requirement{SuperAdminOnly: true})(http.HandlerFunc(s.handleUpdateQuota)),
	).Methods(http.MethodPut)
	admin.Handle("/create-admin",
		s.requireCapability("create_admin", gating.Requirement{CreateAdmins: true})(http.HandlerFunc(s.handleCreateAdmin)),
	).Methods(http.MethodPost)
	admin.Handle("",
		s.requireCapability("create_user", gating.Requirement{Permission: rbac.PermManageUsers})(http.HandlerFunc(s.handleCreateUser)),
	).Methods(http.MethodPost)
}
