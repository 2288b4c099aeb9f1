package gateway

import (
	"net/http"

	"github.com/TanzeemAgra/Healthcare-sub004/internal/gating"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/rbac"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/types"
)

// requireCapability only lets requests through when the caller's permission
// context satisfies req. A context that is still loading answers 503 so the
// client retries; a failed load answers 503 as well and never grants access.
func (s *Service) requireCapability(action string, req gating.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := sessionFromContext(r.Context())
			if sess == nil {
				s.writeErrorResponse(w, http.StatusUnauthorized, types.ErrCodeUnauthorized, "no session")
				return
			}

			decision := gating.Gate(sess.Context, req)
			s.recordDecision(decision.Reason)

			switch decision.Reason {
			case gating.ReasonAllowed:
				next.ServeHTTP(w, r)
			case gating.ReasonLoading:
				w.Header().Set("Retry-After", "1")
				s.writeErrorResponse(w, http.StatusServiceUnavailable, "PERMISSIONS_LOADING", "permissions are still loading")
			case gating.ReasonError:
				s.writeErrorResponse(w, http.StatusServiceUnavailable, "PERMISSIONS_UNAVAILABLE", "permissions could not be loaded")
			default:
				claims, _ := claimsFromContext(r.Context())
				userID := ""
				if claims != nil {
					userID = claims.UserID
				}
				s.logger.Security(rbac.AuditEventAccessDenied, userID, map[string]interface{}{
					"action": action,
					"path":   r.URL.Path,
				})
				s.writeErrorResponse(w, http.StatusForbidden, types.ErrCodeForbidden, "Access Denied")
			}
		})
	}
}

func (s *Service) recordDecision(reason gating.Reason) {
	if s.metrics != nil {
		s.metrics.RecordAccessDecision(string(reason))
	}
}
