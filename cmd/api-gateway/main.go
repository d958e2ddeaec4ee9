package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/satudata-api/api/swagger"
	"github.com/noah-isme/satudata-api/internal/handler"
	"github.com/noah-isme/satudata-api/internal/repository"
	"github.com/noah-isme/satudata-api/internal/service"
	"github.com/noah-isme/satudata-api/pkg/cache"
	"github.com/noah-isme/satudata-api/pkg/config"
	"github.com/noah-isme/satudata-api/pkg/database"
	"github.com/noah-isme/satudata-api/pkg/jobs"
	"github.com/noah-isme/satudata-api/pkg/logger"
)

// @title Satu Data API
// @version 1.0.0
// @description Priority dataset registry, catalog publication and public catalog API.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if cfg.Migrations.Enabled {
		if err := database.RunMigrations(db.DB, cfg.Migrations.Dir, logr.Named("migrations")); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, continuing without shared cache and rate limit counters", zap.Error(err))
		redisClient = nil
	}

	app := buildApp(cfg, db, redisClient, logr)
	app.start(context.Background())

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, app, logr),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	app.stop(shutdownCtx)
	if redisClient != nil {
		_ = redisClient.Close()
	}
}

// app holds the wired services and handlers.
type app struct {
	metrics *service.MetricsService
	queues  []*jobs.Queue

	tokens    *service.TokenService
	apiKeys   *service.APIKeyService
	rateLimit *service.RateLimitService
	activity  *repository.ActivityRepository

	priority      *handler.PriorityDatasetHandler
	catalog       *handler.CatalogHandler
	publicCatalog *handler.PublicCatalogHandler
	organizations *handler.OrganizationHandler
	dataTables    *handler.DataTableHandler
	ops           *handler.MetricsHandler
}

func buildApp(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) *app {
	validate := validator.New()
	metrics := service.NewMetricsService()

	priorityRepo := repository.NewPriorityDatasetRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	auditRepo := repository.NewPriorityAuditRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	telemetryRepo := repository.NewTelemetryRepository(db)
	dataTableRepo := repository.NewDataTableRepository(db)

	cacheSvc := service.NewCacheService(
		repository.NewCacheRepository(redisClient, logr.Named("cache")),
		metrics, cfg.Catalog.CacheTTL, logr.Named("cache"),
		cfg.Catalog.CacheEnabled && redisClient != nil,
	)

	auditSvc := service.NewPriorityAuditService(auditRepo, logr.Named("audit"))
	slugs := service.NewSlugAllocator(catalogRepo, logr.Named("slug"))
	links := service.NewCatalogLinkService(catalogRepo, slugs, cacheSvc, logr.Named("catalog_link"))

	a := &app{metrics: metrics}

	registryOpts := []service.PriorityRegistryOption{service.WithRegistryMetrics(metrics)}
	if cfg.SideEffects.RetryEnabled {
		outbox := jobs.NewQueue("side-effects", service.NewAuditRetryHandler(auditSvc), jobs.QueueConfig{
			Workers:    1,
			MaxRetries: cfg.SideEffects.Retries,
			RetryDelay: cfg.SideEffects.RetryDelay,
			Logger:     logr.Named("side_effects"),
			OnDrop: func(job jobs.Job, err error) {
				metrics.RecordSideEffectFailure(service.SideEffectAudit)
				logr.Error("audit retry exhausted", zap.String("job_id", job.ID), zap.Error(err))
			},
		})
		a.queues = append(a.queues, outbox)
		registryOpts = append(registryOpts, service.WithSideEffectQueue(outbox))
	}
	registry := service.NewPriorityRegistryService(priorityRepo, links, auditSvc, validate, logr.Named("registry"), registryOpts...)

	catalogSvc := service.NewCatalogService(catalogRepo, cacheSvc, cfg.Catalog.CacheTTL, validate, logr.Named("catalog"))
	telemetrySvc := service.NewTelemetryService(catalogSvc, telemetryRepo, metrics, logr.Named("telemetry"))
	telemetryQueue := jobs.NewQueue("telemetry", telemetrySvc.Handler(), jobs.QueueConfig{
		Workers:    cfg.Telemetry.Workers,
		BufferSize: cfg.Telemetry.BufferSize,
		MaxRetries: cfg.Telemetry.Retries,
		Logger:     logr.Named("telemetry"),
	})
	telemetrySvc.AttachQueue(telemetryQueue)
	a.queues = append(a.queues, telemetryQueue)

	a.tokens = service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)
	a.apiKeys = service.NewAPIKeyService(telemetryRepo, logr.Named("api_key"))
	if cfg.RateLimit.Enabled {
		var limiter service.RateLimiter = service.NewLocalWindowLimiter(cfg.RateLimit.Window)
		if redisClient != nil {
			limiter = service.NewRedisWindowLimiter(repository.NewRateLimitRepository(redisClient), cfg.RateLimit.Window)
		}
		a.rateLimit = service.NewRateLimitService(limiter, service.RateLimitPolicy{
			AnonymousLimit: cfg.RateLimit.AnonymousLimit,
			APIKeyLimit:    cfg.RateLimit.APIKeyLimit,
		}, metrics, logr.Named("rate_limit"))
	}
	a.activity = repository.NewActivityRepository(db)

	exporter := service.NewExportService(auditSvc, logr.Named("export"), nil, nil)
	a.priority = handler.NewPriorityDatasetHandler(registry, auditSvc, exporter)
	a.catalog = handler.NewCatalogHandler(catalogSvc)
	a.publicCatalog = handler.NewPublicCatalogHandler(catalogSvc, telemetrySvc)
	a.organizations = handler.NewOrganizationHandler(service.NewOrganizationService(orgRepo, logr.Named("organizations")))
	a.dataTables = handler.NewDataTableHandler(service.NewDataTableService(dataTableRepo, logr.Named("data_tables")))

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}
	a.ops = handler.NewMetricsHandler(metrics, checks)
	return a
}

func (a *app) start(ctx context.Context) {
	for _, q := range a.queues {
		q.Start(ctx)
	}
}

// stop drains the queues after the server has stopped accepting requests.
func (a *app) stop(ctx context.Context) {
	for _, q := range a.queues {
		q.Drain(ctx)
	}
}
