package iam

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TanzeemAgra/Healthcare-sub004/internal/quota"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/auth"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/logger"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/modules"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/types"
)

// Handlers contains HTTP handlers for the permission service
type Handlers struct {
	service *Service
	tokens  *auth.TokenManager
	logger  *logger.Logger
}

// NewHandlers creates new permission service HTTP handlers
func NewHandlers(service *Service, tokens *auth.TokenManager, log *logger.Logger) *Handlers {
	return &Handlers{
		service: service,
		tokens:  tokens,
		logger:  log,
	}
}

// RegisterRoutes registers the permission service routes with the router
func (h *Handlers) RegisterRoutes(router gin.IRouter) {
	router.POST("/auth/login", h.Login)
	router.GET("/modules", h.ListModules)

	authed := router.Group("")
	authed.Use(h.AuthMiddleware())
	{
		authed.GET("/permissions/me", h.GetMyPermissions)

		users := authed.Group("/users")
		{
			users.POST("", h.CreateUser)
			users.POST("/create-admin", h.CreateAdmin)
			users.GET("/:id/permissions", h.GetUserPermissions)
			users.PUT("/:id/permissions", h.ReplaceUserPermissions)
			users.POST("/:id/permissions", h.ReplaceUserPermissions)
			users.GET("/:id/quota", h.GetQuota)
			users.PUT("/:id/quota", h.UpdateQuota)
		}
	}
}

// Login handles user authentication
func (h *Handlers) Login(c *gin.Context) {
	var creds types.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		h.badRequest(c, err)
		return
	}

	token, err := h.service.Authenticate(c.Request.Context(), &creds)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.LoginResponse{Success: true, Token: token})
}

// ListModules returns the module registry
func (h *Handlers) ListModules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"healthcare":     modules.Healthcare(),
		"admin_features": modules.AdminFeatures(),
	})
}

// GetMyPermissions returns the caller's profile and override record
func (h *Handlers) GetMyPermissions(c *gin.Context) {
	actor := actorFrom(c)
	c.JSON(http.StatusOK, types.PermissionsResponse{
		Success: true,
		User:    h.service.Me(c.Request.Context(), actor),
	})
}

// GetUserPermissions returns another user's override record
func (h *Handlers) GetUserPermissions(c *gin.Context) {
	user, err := h.service.GetPermissions(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.PermissionsResponse{Success: true, User: user})
}

// ReplaceUserPermissions overwrites both maps of a user's record
func (h *Handlers) ReplaceUserPermissions(c *gin.Context) {
	var req types.PermissionsUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	if err := h.service.ReplacePermissions(c.Request.Context(), actorFrom(c), c.Param("id"), &req); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.StatusResponse{Success: true})
}

// CreateAdmin creates an admin account
func (h *Handlers) CreateAdmin(c *gin.Context) {
	var req types.CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	user, err := h.service.CreateAdmin(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, types.UserResponse{Success: true, User: user})
}

// CreateUser creates a staff or patient account under the caller's quota
func (h *Handlers) CreateUser(c *gin.Context) {
	var req types.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	user, err := h.service.CreateUser(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, types.UserResponse{Success: true, User: user})
}

// GetQuota returns an admin's quota with its derived status
func (h *Handlers) GetQuota(c *gin.Context) {
	q, err := h.service.GetQuota(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"quota":   q,
		"status":  quota.Evaluate(q),
	})
}

// UpdateQuota replaces an admin's ceilings and reset period
func (h *Handlers) UpdateQuota(c *gin.Context) {
	var q types.UserCreationQuota
	if err := c.ShouldBindJSON(&q); err != nil {
		h.badRequest(c, err)
		return
	}

	updated, err := h.service.UpdateQuota(c.Request.Context(), actorFrom(c), c.Param("id"), &q)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.QuotaResponse{Success: true, Quota: updated})
}

// Helper methods

func (h *Handlers) badRequest(c *gin.Context, err error) {
	h.logger.WithContext(c.Request.Context()).WithError(err).Debug("Invalid request body")
	c.JSON(http.StatusBadRequest, types.StatusResponse{
		Success: false,
		Error:   "Invalid request format",
		Code:    types.ErrCodeInvalidInput,
	})
}

func (h *Handlers) handleError(c *gin.Context, err error) {
	var accessErr *types.AccessError
	if errors.As(err, &accessErr) {
		body := gin.H{
			"success": false,
			"error":   accessErr.Message,
			"code":    accessErr.Code,
		}
		if len(accessErr.Details) > 0 {
			body["details"] = accessErr.Details
		}
		c.JSON(types.HTTPStatus(accessErr), body)
		return
	}

	h.logger.WithContext(c.Request.Context()).WithError(err).Error("Internal server error")
	c.JSON(http.StatusInternalServerError, types.StatusResponse{
		Success: false,
		Error:   "An internal error occurred",
		Code:    types.ErrCodeInternalError,
	})
}
