package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/TanzeemAgra/Healthcare-sub004/internal/iam"
	"github.com/TanzeemAgra/Healthcare-sub004/internal/quota"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/auth"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/config"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/database"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/logger"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/modules"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/monitoring"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/rbac"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/repository"
)

const (
	serviceName = "permission-service"
	version     = "1.0.0"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Database.Validate(); err != nil {
		fmt.Printf("Invalid database configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel)
	log.WithService(serviceName).WithField("version", version).Info("Starting permission service")

	if err := modules.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid module catalog")
	}

	ctx := context.Background()

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
	metrics := monitoring.NewMetricsCollector(serviceName, prometheus.NewRegistry())

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.CreateSchema(ctx); err != nil {
		log.WithError(err).Fatal("Failed to create database schema")
	}

	health := monitoring.NewHealthManager(serviceName, version)
	health.RegisterChecker("database", monitoring.NewDatabaseHealthChecker(db.DB))

	store := repository.NewStore(db.DB, log)

	var cache *iam.CachedPermissions
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer rdb.Close()

		cache = iam.NewCachedPermissions(store.Permissions, rdb,
			time.Duration(cfg.Redis.CacheTTL)*time.Second, cfg.Redis.KeyPrefix, log)
		health.RegisterChecker("redis", monitoring.NewRedisHealthChecker(rdb))
	}

	tokens := auth.NewTokenManager(cfg.JWT.SecretKey, cfg.JWT.Issuer, cfg.JWT.Audience,
		time.Duration(cfg.JWT.AccessTokenTTL)*time.Second)

	service := iam.NewService(iam.ServiceDeps{
		Repositories: store.Repositories,
		Transactor:   store,
		Cache:        cache,
		Passwords:    iam.NewPasswordManager(bcrypt.DefaultCost),
		Tokens:       tokens,
		Policy:       rbac.SuperAdminPolicy{EmailAllowlist: cfg.Permissions.SuperAdminEmails},
		Logger:       log,
		Metrics:      metrics,
		Tracing:      tracing,
	})

	var resetter *quota.Resetter
	if cfg.Quota.ResetEnabled {
		resetter, err = quota.NewResetter(store.Quotas, cfg.Quota.ResetSchedule, log, metrics)
		if err != nil {
			log.WithError(err).Fatal("Failed to schedule quota resets")
		}
		resetter.Start()
	}

	// Setup Gin router
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.NewMonitoringMiddleware(metrics, tracing, log).GinMiddleware())

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET(cfg.Monitoring.HealthPath, gin.WrapF(health.HTTPHandler()))
	if cfg.Monitoring.Enabled {
		router.GET(cfg.Monitoring.MetricsPath, gin.WrapH(metrics.Handler()))
	}

	iam.NewHandlers(service, tokens, log).RegisterRoutes(router.Group("/api/v1"))

	// Setup HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.WithField("address", server.Addr).Info("Starting HTTP server")
		var err error
		if cfg.Server.TLSEnabled {
			err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down permission service...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if resetter != nil {
		<-resetter.Stop().Done()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Failed to flush traces")
	}

	log.Info("Permission service stopped")
}
