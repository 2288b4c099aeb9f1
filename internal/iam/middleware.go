package iam

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TanzeemAgra/Healthcare-sub004/pkg/auth"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/logger"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/types"
)

const (
	claimsKey = "claims"
	actorKey  = "actor"
)

// AuthMiddleware validates the bearer token and loads the caller's account
// and override record into the gin context
func (h *Handlers) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			h.abort(c, http.StatusUnauthorized, types.ErrCodeUnauthorized, "Authorization header required")
			return
		}

		claims, err := h.tokens.Validate(token)
		if err != nil {
			h.logger.WithContext(c.Request.Context()).WithError(err).Debug("Rejected bearer token")
			h.abort(c, http.StatusUnauthorized, types.ErrCodeUnauthorized, "Invalid or expired token")
			return
		}

		ctx := logger.ContextWithUserID(c.Request.Context(), claims.UserID)
		c.Request = c.Request.WithContext(ctx)

		actor, err := h.service.Actor(ctx, claims)
		if err != nil {
			h.handleError(c, err)
			c.Abort()
			return
		}

		c.Set(claimsKey, claims)
		c.Set(actorKey, actor)
		c.Next()
	}
}

func (h *Handlers) abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, types.StatusResponse{Success: false, Error: message, Code: code})
}

func actorFrom(c *gin.Context) *Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(*Actor); ok {
			return actor
		}
	}
	return nil
}
