package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/TanzeemAgra/Healthcare-sub004/pkg/logger"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/monitoring"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/rbac"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/types"
)

const maxErrorBody = 64 << 10

// Client talks to the permission service over HTTP+JSON
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *logger.Logger
	metrics    *monitoring.MetricsCollector
}

// New creates a client for the service at baseURL. metrics may be nil.
func New(baseURL string, timeout time.Duration, log *logger.Logger, metrics *monitoring.MetricsCollector) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return "permissions-client " + r.Method
				}),
			),
		},
		logger:  log,
		metrics: metrics,
	}
}

// WithToken returns a copy of the client that authenticates as the bearer of token
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Me fetches the caller's profile and permission record
func (c *Client) Me(ctx context.Context) (*types.PermissionUser, error) {
	return c.fetchPermissions(ctx, "/permissions/me")
}

// FetchProfile returns the caller's identity and record in one request
func (c *Client) FetchProfile(ctx context.Context) (*rbac.Identity, *rbac.PermissionRecord, error) {
	user, err := c.Me(ctx)
	if err != nil {
		return nil, nil, err
	}
	return user.Identity(), user.Record(), nil
}

// GetUserPermissions fetches the permission record of another user
func (c *Client) GetUserPermissions(ctx context.Context, userID string) (*types.PermissionUser, error) {
	return c.fetchPermissions(ctx, "/users/"+url.PathEscape(userID)+"/permissions")
}

// SaveUserPermissions replaces both permission maps of userID
func (c *Client) SaveUserPermissions(ctx context.Context, userID string, record *rbac.PermissionRecord) error {
	body := types.PermissionsUpdateRequest{
		Permissions:       record.CorePermissions,
		DashboardFeatures: record.DashboardFeatures,
	}

	var resp types.StatusResponse
	err := c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(userID)+"/permissions", body, &resp)
	if err == nil && !resp.Success {
		err = unsuccessful(resp.Code, resp.Error)
	}

	if c.metrics != nil {
		c.metrics.RecordPermissionSave(outcome(err))
	}
	return err
}

// CreateAdmin creates an admin account with its permissions and quota
func (c *Client) CreateAdmin(ctx context.Context, req *types.CreateAdminRequest) (*types.User, error) {
	var resp types.UserResponse
	if err := c.do(ctx, http.MethodPost, "/users/create-admin", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.User == nil {
		return nil, unsuccessful(resp.Code, resp.Error)
	}
	return resp.User, nil
}

// CreateUser creates a doctor, nurse, patient or pharmacist under the caller's quota
func (c *Client) CreateUser(ctx context.Context, req *types.CreateUserRequest) (*types.User, error) {
	var resp types.UserResponse
	if err := c.do(ctx, http.MethodPost, "/users", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.User == nil {
		return nil, unsuccessful(resp.Code, resp.Error)
	}
	return resp.User, nil
}

// GetQuota fetches an admin's creation quota
func (c *Client) GetQuota(ctx context.Context, adminID string) (*types.UserCreationQuota, error) {
	var resp types.QuotaResponse
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(adminID)+"/quota", nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Quota == nil {
		return nil, unsuccessful("", resp.Error)
	}
	return resp.Quota, nil
}

// UpdateQuota replaces an admin's ceilings and reset period
func (c *Client) UpdateQuota(ctx context.Context, adminID string, q *types.UserCreationQuota) (*types.UserCreationQuota, error) {
	var resp types.QuotaResponse
	if err := c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(adminID)+"/quota", q, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Quota == nil {
		return nil, unsuccessful("", resp.Error)
	}
	return resp.Quota, nil
}

// Login exchanges credentials for a bearer token
func (c *Client) Login(ctx context.Context, creds *types.Credentials) (*types.AuthToken, error) {
	var resp types.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", creds, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Token == nil {
		return nil, types.NewAuthenticationError(types.ErrCodeAuthenticationFailed, resp.Error)
	}
	return resp.Token, nil
}

func (c *Client) fetchPermissions(ctx context.Context, path string) (*types.PermissionUser, error) {
	start := time.Now()

	var resp types.PermissionsResponse
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	if err == nil && (!resp.Success || resp.User == nil) {
		err = unsuccessful("", resp.Error)
	}

	if c.metrics != nil {
		c.metrics.RecordPermissionFetch(outcome(err), time.Since(start))
	}
	if err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return types.NewInternalError(types.ErrCodeInternalError, "failed to encode request", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return types.NewInternalError(types.ErrCodeInternalError, "failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if requestID := logger.RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set(monitoring.RequestIDHeader, requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).WithField("path", path).Warn("Permission service request failed")
		return types.NewExternalError(types.ErrCodeExternalError, "permission service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewExternalError(types.ErrCodeExternalError, "invalid response from permission service", err)
	}
	return nil
}

type errorEnvelope struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details"`
}

// statusError maps a non-2xx response onto the error taxonomy
func statusError(resp *http.Response) error {
	var env errorEnvelope
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err := json.Unmarshal(raw, &env); err != nil || env.Error == "" {
		env.Error = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return types.NewAuthenticationError(codeOr(env.Code, types.ErrCodeUnauthorized), env.Error)
	case http.StatusForbidden:
		return types.NewAuthorizationError(codeOr(env.Code, types.ErrCodeForbidden), env.Error)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return types.NewValidationError(codeOr(env.Code, types.ErrCodeValidationFailed), env.Error, env.Details)
	case http.StatusNotFound:
		return types.NewNotFoundError(codeOr(env.Code, types.ErrCodeNotFound), env.Error)
	case http.StatusConflict:
		if env.Code == types.ErrCodeQuotaExceeded {
			return types.NewQuotaError(env.Code, env.Error, env.Details)
		}
		return types.NewConflictError(codeOr(env.Code, types.ErrCodeConflict), env.Error)
	}
	return types.NewExternalError(codeOr(env.Code, types.ErrCodeExternalError), env.Error,
		fmt.Errorf("permission service returned %d", resp.StatusCode))
}

func unsuccessful(code, message string) error {
	if message == "" {
		message = "request was not successful"
	}
	return types.NewExternalError(codeOr(code, types.ErrCodeExternalError), message, nil)
}

func codeOr(code, fallback string) string {
	if code != "" {
		return code
	}
	return fallback
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return string(types.TypeOf(err))
}
