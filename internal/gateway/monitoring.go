package gateway

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/TanzeemAgra/Healthcare-sub004/pkg/monitoring"
)

// setupHealth registers the checks behind /health: the permission backend
// and the session store
func (s *Service) setupHealth() {
	timeout := s.config.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	s.health.SetTimeout(timeout)

	if healthURL, err := backendHealthURL(s.config.BackendURL); err == nil {
		s.health.RegisterChecker("backend", monitoring.NewHTTPHealthChecker(healthURL, timeout))
	} else {
		s.logger.WithError(err).Warn("Backend health check disabled")
	}

	s.health.RegisterChecker("sessions", monitoring.CheckFunc(func(ctx context.Context) monitoring.HealthCheck {
		return monitoring.HealthCheck{
			Name:        "sessions",
			Status:      monitoring.HealthStatusHealthy,
			LastChecked: time.Now(),
			Details: map[string]interface{}{
				"active": s.sessions.Len(),
				"uptime": time.Since(s.startTime).String(),
			},
		}
	}))
}

// backendHealthURL turns the API base URL into the backend's /health URL
func backendHealthURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u.Path = "/health"
	u.RawQuery = ""
	return u.String(), nil
}

// handleHealth handles health check requests
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.health.HTTPHandler()(w, r)
}

func (s *Service) metricsHandler() http.Handler {
	if s.metrics == nil {
		return http.NotFoundHandler()
	}
	return s.metrics.Handler()
}
