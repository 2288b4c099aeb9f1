package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/TanzeemAgra/Healthcare-sub004/internal/gateway"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/auth"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/config"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/logger"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/monitoring"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/rbac"
)

const (
	serviceName = "session-gateway"
	version     = "1.0.0"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel)
	log.WithService(serviceName).WithField("version", version).Info("Starting session gateway")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracing, err := monitoring.NewTracingManager(ctx, monitoring.TracingConfig{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: version,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		Environment:    cfg.Tracing.Environment,
		SamplingRate:   cfg.Tracing.SampleRatio,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize tracing")
	}

	gatewayConfig := &gateway.Config{
		Addr:             cfg.Server.Address(),
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		BackendURL:       cfg.Permissions.BackendURL,
		RequestTimeout:   cfg.Permissions.Timeout(),
		SessionCacheSize: cfg.Session.CacheSize,
		SessionTTL:       cfg.Session.Lifetime(),
		ReadTimeout:      time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:     time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:      time.Duration(cfg.Server.IdleTimeout) * time.Second,
		Version:          version,
	}
	if cfg.RateLimit.Enabled {
		gatewayConfig.RateLimit = cfg.RateLimit.RequestsPerMin
		gatewayConfig.RatePeriod = time.Minute
		gatewayConfig.RateBurst = cfg.RateLimit.BurstSize
	}

	service, err := gateway.NewService(gatewayConfig, gateway.Dependencies{
		Tokens: auth.NewTokenManager(cfg.JWT.SecretKey, cfg.JWT.Issuer, cfg.JWT.Audience,
			time.Duration(cfg.JWT.AccessTokenTTL)*time.Second),
		Policy:  rbac.SuperAdminPolicy{EmailAllowlist: cfg.Permissions.SuperAdminEmails},
		Logger:  log,
		Metrics: monitoring.NewMetricsCollector(serviceName, prometheus.NewRegistry()),
		Tracing: tracing,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to create gateway")
	}

	// Start the server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- service.Start(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Fatal("Session gateway failed")
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down session gateway...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := service.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("Failed to shutdown server gracefully")
	}
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Failed to flush traces")
	}

	log.Info("Session gateway stopped")
}
