package iam

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/TanzeemAgra/Healthcare-sub004/internal/editor"
	"github.com/TanzeemAgra/Healthcare-sub004/internal/quota"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/auth"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/logger"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/monitoring"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/rbac"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/repository"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/types"
)

// Actor is an authenticated caller with its resolved capabilities
type Actor struct {
	User     *types.User
	Record   *rbac.PermissionRecord
	Resolver *rbac.Resolver
}

// Service implements the permission backend: override records, admin and
// user creation under quota, and login
type Service struct {
	repos     repository.Repositories
	tx        repository.Transactor
	cache     *CachedPermissions
	passwords PasswordHasher
	tokens    *auth.TokenManager
	policy    rbac.SuperAdminPolicy
	validate  *validator.Validate
	logger    *logger.Logger
	metrics   *monitoring.MetricsCollector
	tracing   *monitoring.TracingManager
	monitor   *monitoring.MonitoringMiddleware
	now       func() time.Time
}

// ServiceDeps groups the collaborators of a Service. Cache, Metrics and
// Tracing are optional.
type ServiceDeps struct {
	Repositories repository.Repositories
	Transactor   repository.Transactor
	Cache        *CachedPermissions
	Passwords    PasswordHasher
	Tokens       *auth.TokenManager
	Policy       rbac.SuperAdminPolicy
	Logger       *logger.Logger
	Metrics      *monitoring.MetricsCollector
	Tracing      *monitoring.TracingManager
}

// NewService creates a new permission service
func NewService(deps ServiceDeps) *Service {
	repos := deps.Repositories
	if deps.Cache != nil {
		repos.Permissions = deps.Cache
	}
	tracing := deps.Tracing
	if tracing == nil {
		tracing = monitoring.NewNoopTracingManager("permission-service")
	}

	return &Service{
		repos:     repos,
		tx:        deps.Transactor,
		cache:     deps.Cache,
		passwords: deps.Passwords,
		tokens:    deps.Tokens,
		policy:    deps.Policy,
		validate:  validator.New(),
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		tracing:   tracing,
		monitor:   monitoring.NewMonitoringMiddleware(deps.Metrics, tracing, deps.Logger),
		now:       time.Now,
	}
}

// Authenticate verifies credentials and issues an access token
func (s *Service) Authenticate(ctx context.Context, creds *types.Credentials) (*types.AuthToken, error) {
	if err := s.validateStruct(creds); err != nil {
		return nil, err
	}

	var token *types.AuthToken
	err := s.monitor.AuthMiddleware("password")(ctx, func(ctx context.Context) error {
		var err error
		token, err = s.authenticate(ctx, creds)
		return err
	})
	return token, err
}

func (s *Service) authenticate(ctx context.Context, creds *types.Credentials) (*types.AuthToken, error) {
	user, err := s.repos.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(creds.Email)))
	if err != nil {
		if types.IsType(err, types.ErrorTypeNotFound) {
			return nil, invalidCredentials()
		}
		return nil, err
	}

	ok, err := s.passwords.VerifyPassword(user.PasswordHash, creds.Password)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "Failed to verify credentials", err)
	}
	if !ok || !user.IsActive {
		s.logger.Security("login_failed", user.ID, map[string]interface{}{"active": user.IsActive})
		return nil, invalidCredentials()
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "Failed to issue token", err)
	}

	s.logger.Audit(user.ID, "login", "session", true, nil)
	return token, nil
}

// Actor loads the caller named by claims together with their override record.
// The stored account, not the token, is the source of truth for role and status.
func (s *Service) Actor(ctx context.Context, claims *types.UserClaims) (*Actor, error) {
	user, err := s.repos.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if types.IsType(err, types.ErrorTypeNotFound) {
			return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Account no longer exists")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Account is deactivated")
	}

	record, err := s.record(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &Actor{
		User:     user,
		Record:   record,
		Resolver: rbac.NewResolver(user.Identity(), record, s.policy),
	}, nil
}

// record returns the stored override record, or an empty one for users that
// never had one written
func (s *Service) record(ctx context.Context, userID string) (*rbac.PermissionRecord, error) {
	record, err := s.repos.Permissions.Get(ctx, userID)
	if err != nil {
		if types.IsType(err, types.ErrorTypeNotFound) {
			return &rbac.PermissionRecord{
				UserID:            userID,
				CorePermissions:   map[string]bool{},
				DashboardFeatures: map[string]bool{},
			}, nil
		}
		return nil, err
	}
	return record, nil
}

// Me returns the caller's profile and record
func (s *Service) Me(ctx context.Context, actor *Actor) *types.PermissionUser {
	out := types.NewPermissionUser(actor.User, actor.Record)
	out.IsSuperAdmin = actor.Resolver.IsSuperAdmin()
	return out
}

// GetPermissions returns targetID's record. Super admins only.
func (s *Service) GetPermissions(ctx context.Context, actor *Actor, targetID string) (*types.PermissionUser, error) {
	ctx, span := s.tracing.StartPermissionSpan(ctx, "get", targetID)
	defer span.End()

	if err := s.requireSuperAdmin(actor, "permissions_read", targetID); err != nil {
		return nil, err
	}

	target, err := s.repos.Users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	record, err := s.record(ctx, targetID)
	if err != nil {
		s.tracing.RecordError(span, err)
		return nil, err
	}
	return types.NewPermissionUser(target, record), nil
}

// ReplacePermissions overwrites both maps of targetID's record. Super admins only.
func (s *Service) ReplacePermissions(ctx context.Context, actor *Actor, targetID string, req *types.PermissionsUpdateRequest) error {
	ctx, span := s.tracing.StartPermissionSpan(ctx, "replace", targetID)
	defer span.End()

	if err := s.requireSuperAdmin(actor, "permissions_replace", targetID); err != nil {
		return err
	}

	record := &rbac.PermissionRecord{
		UserID:            targetID,
		CorePermissions:   nonNilFlags(req.Permissions),
		DashboardFeatures: nonNilFlags(req.DashboardFeatures),
		UpdatedAt:         s.now().UTC(),
	}
	if err := editor.Validate(record); err != nil {
		return err
	}

	if _, err := s.repos.Users.GetByID(ctx, targetID); err != nil {
		return err
	}

	previous, err := s.record(ctx, targetID)
	if err != nil {
		return err
	}

	if err := s.repos.Permissions.Replace(ctx, record, actor.User.ID); err != nil {
		s.tracing.RecordError(span, err)
		s.auditEvent(rbac.AuditEventPermissionsReplaced, false)
		return err
	}

	granted, revoked := editor.ChangedKeys(previous, record)
	s.logger.PermissionChange(ctx, actor.User.ID, targetID, granted, revoked)
	s.logger.Audit(actor.User.ID, rbac.AuditEventPermissionsReplaced, "user:"+targetID, true, nil)
	s.auditEvent(rbac.AuditEventPermissionsReplaced, true)
	return nil
}

// CreateAdmin creates an admin account, its override record and its quota in
// one transaction. Only the super_admin role may call it.
func (s *Service) CreateAdmin(ctx context.Context, actor *Actor, req *types.CreateAdminRequest) (*types.User, error) {
	if !actor.Resolver.CanCreateAdmins() {
		s.denied(actor, "create_admin", "")
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Only super admins can create admin accounts")
	}
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}

	overrides := &rbac.PermissionRecord{
		CorePermissions:   nonNilFlags(req.Permissions),
		DashboardFeatures: nonNilFlags(req.DashboardFeatures),
	}
	if err := editor.Validate(overrides); err != nil {
		return nil, err
	}

	user, err := s.newUser(req.Email, req.FullName, req.Password, rbac.RoleAdmin, actor.User.ID)
	if err != nil {
		return nil, err
	}

	q := req.UserCreationQuota
	if q == nil {
		q = types.DefaultQuota(user.ID)
	} else {
		cp := *q
		cp.AdminID = user.ID
		cp.CurrentUsage = types.QuotaUsage{}
		q = &cp
	}
	if err := quota.Validate(q); err != nil {
		return nil, err
	}

	record := rbac.DefaultRecord(user.ID).Overlay(overrides.CorePermissions, overrides.DashboardFeatures)
	record.UpdatedAt = user.CreatedAt

	err = s.inTx(ctx, "create_admin", "users", func(ctx context.Context, repos *repository.Repositories) error {
		if err := repos.Users.Create(ctx, user); err != nil {
			return err
		}
		if err := repos.Permissions.Replace(ctx, record, actor.User.ID); err != nil {
			return err
		}
		return repos.Quotas.Upsert(ctx, q)
	})
	if err != nil {
		s.auditEvent(rbac.AuditEventAdminCreated, false)
		return nil, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, user.ID)
	}
	s.logger.Audit(actor.User.ID, rbac.AuditEventAdminCreated, "user:"+user.ID, true, map[string]interface{}{
		"email": user.Email,
	})
	s.auditEvent(rbac.AuditEventAdminCreated, true)
	return user, nil
}

// CreateUser creates a doctor, nurse, patient or pharmacist. Admins create
// under their quota, checked and incremented under a row lock; super admins
// are not metered.
func (s *Service) CreateUser(ctx context.Context, actor *Actor, req *types.CreateUserRequest) (*types.User, error) {
	if !actor.Resolver.HasPermission(rbac.PermManageUsers) {
		s.denied(actor, "create_user", "")
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Missing permission can_manage_users")
	}
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.newUser(req.Email, req.FullName, req.Password, req.Role, actor.User.ID)
	if err != nil {
		return nil, err
	}

	metered := !actor.Resolver.IsSuperAdmin()
	err = s.inTx(ctx, "create_user", "users", func(ctx context.Context, repos *repository.Repositories) error {
		if metered {
			q, err := repos.Quotas.GetForUpdate(ctx, actor.User.ID)
			if err != nil {
				if types.IsType(err, types.ErrorTypeNotFound) {
					return quota.CheckCreate(nil, req.Role)
				}
				return err
			}
			if err := quota.CheckCreate(q, req.Role); err != nil {
				return err
			}
		}
		if err := repos.Users.Create(ctx, user); err != nil {
			return err
		}
		if metered {
			return repos.Quotas.IncrementUsage(ctx, actor.User.ID, req.Role)
		}
		return nil
	})
	if err != nil {
		if types.IsType(err, types.ErrorTypeQuota) && s.metrics != nil {
			s.metrics.RecordQuotaBlock(string(req.Role))
		}
		s.auditEvent(rbac.AuditEventUserCreated, false)
		return nil, err
	}

	s.logger.Audit(actor.User.ID, rbac.AuditEventUserCreated, "user:"+user.ID, true, map[string]interface{}{
		"role": user.Role,
	})
	s.auditEvent(rbac.AuditEventUserCreated, true)
	return user, nil
}

// GetQuota returns adminID's quota to the admin themself or a super admin
func (s *Service) GetQuota(ctx context.Context, actor *Actor, adminID string) (*types.UserCreationQuota, error) {
	if actor.User.ID != adminID && !actor.Resolver.IsSuperAdmin() {
		s.denied(actor, "quota_read", adminID)
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Access Denied")
	}
	return s.repos.Quotas.Get(ctx, adminID)
}

// UpdateQuota replaces adminID's ceilings and reset period. Usage counters
// are server-owned and ignored on input.
func (s *Service) UpdateQuota(ctx context.Context, actor *Actor, adminID string, q *types.UserCreationQuota) (*types.UserCreationQuota, error) {
	if err := s.requireSuperAdmin(actor, "quota_update", adminID); err != nil {
		return nil, err
	}
	if err := quota.Validate(q); err != nil {
		return nil, err
	}

	target, err := s.repos.Users.GetByID(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if target.Role != rbac.RoleAdmin {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Quotas apply to admin accounts only", nil)
	}

	update := *q
	update.AdminID = adminID
	if err := s.repos.Quotas.Upsert(ctx, &update); err != nil {
		return nil, err
	}

	s.logger.Audit(actor.User.ID, rbac.AuditEventQuotaUpdated, "quota:"+adminID, true, map[string]interface{}{
		"max_total_users": update.MaxTotalUsers,
		"reset_period":    update.ResetPeriod,
	})
	s.auditEvent(rbac.AuditEventQuotaUpdated, true)
	return s.repos.Quotas.Get(ctx, adminID)
}

func (s *Service) newUser(email, fullName, password string, role rbac.Role, createdBy string) (*types.User, error) {
	hash, err := s.passwords.HashPassword(password)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "Failed to hash password", err)
	}
	now := s.now().UTC()
	return &types.User{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		FullName:     strings.TrimSpace(fullName),
		Role:         role,
		IsActive:     true,
		CreatedBy:    createdBy,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// inTx runs fn in a transaction traced and timed as one database operation
func (s *Service) inTx(ctx context.Context, operation, table string, fn func(context.Context, *repository.Repositories) error) error {
	return s.monitor.DatabaseMiddleware(operation, table)(ctx, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(repos *repository.Repositories) error {
			return fn(ctx, repos)
		})
	})
}

func (s *Service) requireSuperAdmin(actor *Actor, action, targetID string) error {
	if actor.Resolver.IsSuperAdmin() {
		return nil
	}
	s.denied(actor, action, targetID)
	return types.NewAuthorizationError(types.ErrCodeForbidden, "Access Denied")
}

func (s *Service) denied(actor *Actor, action, targetID string) {
	s.logger.Security(rbac.AuditEventAccessDenied, actor.User.ID, map[string]interface{}{
		"action":         action,
		"target_user_id": targetID,
		"role":           actor.User.Role,
	})
	if s.metrics != nil {
		s.metrics.RecordAccessDecision("denied")
	}
}

func (s *Service) validateStruct(v interface{}) error {
	if err := s.validate.Struct(v); err != nil {
		details := map[string]interface{}{}
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
		}
		return types.NewValidationError(types.ErrCodeValidationFailed, "Invalid request", details)
	}
	return nil
}

func (s *Service) auditEvent(event string, success bool) {
	if s.metrics != nil {
		s.metrics.RecordAuditEvent(event, success)
	}
}

func invalidCredentials() error {
	return types.NewAuthenticationError(types.ErrCodeAuthenticationFailed, "Invalid email or password")
}

func nonNilFlags(m map[string]bool) map[string]bool {
	if m == nil {
		return map[string]bool{}
	}
	return m
}
