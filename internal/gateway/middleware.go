package gateway

import (
	"context"
	"net/http"
	"strings"

	"github.com/TanzeemAgra/Healthcare-sub004/pkg/auth"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/logger"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/types"
)

type contextKey string

const (
	claimsContextKey  contextKey = "user_claims"
	tokenContextKey   contextKey = "bearer_token"
	sessionContextKey contextKey = "session"
)

// claimsFromContext returns the claims set by authMiddleware
func claimsFromContext(ctx context.Context) (*types.UserClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*types.UserClaims)
	return claims, ok
}

func tokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}

// sessionFromContext returns the session attached by sessionMiddleware
func sessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey).(*Session)
	return sess
}

// isPublic reports whether path skips authentication
func isPublic(r *http.Request) bool {
	switch r.URL.Path {
	case "/health", "/metrics", "/api/v1/auth/login":
		return true
	}
	return false
}

// corsMiddleware handles CORS headers
func (s *Service) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := s.allowedOrigin(r.Header.Get("Origin"))
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "86400")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Service) allowedOrigin(origin string) string {
	if len(s.config.AllowedOrigins) == 0 {
		return "*"
	}
	for _, allowed := range s.config.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// securityHeadersMiddleware adds security headers
func (s *Service) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates JWT tokens locally before any backend call
func (s *Service) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublic(r) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			s.recordAuth("failure")
			s.writeErrorResponse(w, http.StatusUnauthorized, types.ErrCodeUnauthorized, "missing or malformed authorization header")
			return
		}

		claims, err := s.tokens.Validate(token)
		if err != nil {
			s.recordAuth("failure")
			s.logger.WithContext(r.Context()).WithError(err).Debug("Token validation failed")
			s.writeErrorResponse(w, http.StatusUnauthorized, types.ErrCodeUnauthorized, "invalid token")
			return
		}
		s.recordAuth("success")

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		ctx = context.WithValue(ctx, tokenContextKey, token)
		ctx = logger.ContextWithUserID(ctx, claims.UserID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimitMiddleware applies per-user rate limiting
func (s *Service) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.rateLimiter == nil || isPublic(r) {
			next.ServeHTTP(w, r)
			return
		}

		claims, ok := claimsFromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		if !s.rateLimiter.Allow(claims.UserID) {
			s.logger.WithContext(r.Context()).Warn("Rate limit exceeded")
			w.Header().Set("Retry-After", "1")
			s.writeErrorResponse(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// sessionMiddleware attaches the caller's permission context. Routes that
// need capabilities are mounted behind it.
func (s *Service) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Get(r.Context(), tokenFromContext(r.Context()))
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) recordAuth(status string) {
	if s.metrics != nil {
		s.metrics.RecordAuthAttempt("jwt", status)
	}
}
