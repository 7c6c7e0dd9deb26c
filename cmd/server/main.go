package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	eventapp "github.com/afrinict/nbcportal-sub001/internal/application/event"
	identityapp "github.com/afrinict/nbcportal-sub001/internal/application/identity"
	ledgerapp "github.com/afrinict/nbcportal-sub001/internal/application/ledger"
	licensingapp "github.com/afrinict/nbcportal-sub001/internal/application/licensing"
	workflowapp "github.com/afrinict/nbcportal-sub001/internal/application/workflow"
	"github.com/afrinict/nbcportal-sub001/internal/domain/ledger"
	"github.com/afrinict/nbcportal-sub001/internal/domain/licensing"
	"github.com/afrinict/nbcportal-sub001/internal/infrastructure/auth"
	"github.com/afrinict/nbcportal-sub001/internal/infrastructure/cache"
	"github.com/afrinict/nbcportal-sub001/internal/infrastructure/config"
	"github.com/afrinict/nbcportal-sub001/internal/infrastructure/event"
	"github.com/afrinict/nbcportal-sub001/internal/infrastructure/logger"
	"github.com/afrinict/nbcportal-sub001/internal/infrastructure/persistence"
	"github.com/afrinict/nbcportal-sub001/internal/infrastructure/scheduler"
	"github.com/afrinict/nbcportal-sub001/internal/infrastructure/storage"
	"github.com/afrinict/nbcportal-sub001/internal/infrastructure/telemetry"
	"github.com/afrinict/nbcportal-sub001/internal/interfaces/http/handler"
	"github.com/afrinict/nbcportal-sub001/internal/interfaces/http/middleware"
	"github.com/afrinict/nbcportal-sub001/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
		Service:    cfg.App.Name,
		Env:        cfg.App.Env,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting NBC licensing service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	exportLevel, err := logger.ParseLevel(cfg.Telemetry.LogsLevel)
	if err != nil {
		log.Fatal("Invalid telemetry.logs_level", zap.Error(err))
	}
	log = loggerProvider.Bridge(log, exportLevel)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServerAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
		ProfileTypes:    cfg.Telemetry.ProfileTypes,
		Env:             cfg.App.Env,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
		ProfileSpans:      cfg.Telemetry.ProfilingEnabled,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)

	// Database
	dbMetrics, err := telemetry.NewDBMetrics(meter, telemetry.DBMetricsConfig{
		Enabled:            cfg.Telemetry.MetricsEnabled,
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	if err != nil {
		log.Fatal("Failed to create database metrics", zap.Error(err))
	}
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithGormLogger(logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
			logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
			logger.WithMaxSQLLength(sqlLogLimit(cfg.Telemetry.DBLogFullSQL)))),
		persistence.WithPlugins(
			telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
				Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
				LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
				SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			}, log),
			dbMetrics,
		),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Redis-backed coordination, with in-process fallback outside production
	coordination := cache.NewFactory(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	},
		cache.WithLogger(log),
		cache.WithBackend(cfg.Workflow.LockBackend),
		cache.WithFactoryLockTTL(cfg.Workflow.LockTTL),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	if err := coordination.Connect(); err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	capabilityCache := coordination.CapabilityCache(cfg.Workflow.CapabilityTTL)
	go func() {
		if err := capabilityCache.StartInvalidationSubscription(ctx); err != nil && ctx.Err() == nil {
			log.Error("Capability invalidation subscription stopped", zap.Error(err))
		}
	}()

	documents, err := newDocumentStore(ctx, &cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize document store", zap.Error(err))
	}

	// Events: serializer, transactional outbox and in-process bus
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	outboxPublisher := event.NewOutboxPublisher(serializer, event.WithMaxRetries(cfg.Event.MaxRetries))
	outboxRepo := event.NewGormOutboxRepository(db.DB)
	scope := persistence.NewGormScope(db.DB, outboxPublisher)

	// Repositories
	departmentRepo := persistence.NewGormDepartmentRepository(db.DB)
	grantRepo := persistence.NewGormGrantRepository(db.DB)
	workflowRepo := persistence.NewGormWorkflowRepository(db.DB)
	applicationRepo := persistence.NewGormApplicationRepository(db.DB)
	activityRepo := persistence.NewGormActivityRepository(db.DB)
	metricRepo := persistence.NewGormMetricRepository(db.DB)

	// Application services
	permissionService := identityapp.NewPermissionService(departmentRepo, grantRepo, log,
		identityapp.WithCapabilityCache(capabilityCache))
	departmentService := identityapp.NewDepartmentService(scope, departmentRepo, grantRepo, permissionService, log)
	catalog := workflowapp.NewCatalog(workflowRepo)
	definitionService := workflowapp.NewDefinitionService(scope, catalog, departmentRepo, permissionService, log)
	ledgerService := ledgerapp.NewService(activityRepo, metricRepo, applicationRepo, departmentRepo, permissionService, log)
	outboxService := eventapp.NewOutboxService(outboxRepo, log)

	workflowMetrics, err := telemetry.NewWorkflowMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create workflow metrics", zap.Error(err))
	}

	periods, err := metricPeriods(cfg.Workflow.MetricPeriods)
	if err != nil {
		log.Fatal("Invalid metric periods", zap.Error(err))
	}
	engine := licensingapp.NewEngine(
		scope,
		applicationRepo,
		catalog,
		permissionService,
		licensingapp.NewDocumentVerifier(documents, cfg.Storage.LookupTimeout),
		coordination.Locker(),
		log,
		licensingapp.WithObserver(workflowMetrics),
		licensingapp.WithConfig(licensingapp.EngineConfig{
			Periods:          periods,
			TransientRetries: cfg.Workflow.TransientRetries,
			RetryBaseDelay:   cfg.Workflow.RetryBaseDelay,
			LockWait:         cfg.Workflow.LockWaitTimeout,
		}),
	)

	// Event bus subscribers
	eventBus := event.NewInMemoryEventBus(log, event.WithBusTracer(tracerProvider.Tracer("nbc.events")))
	eventBus.Subscribe(workflowMetrics)
	eventBus.Subscribe(event.NewIdempotentHandler(
		licensingapp.NewApplicantNotificationHandler(nil, log),
		coordination.IdempotencyStore(),
		log,
	))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, serializer, event.OutboxProcessorConfig{
		BatchSize:        cfg.Event.BatchSize,
		PollInterval:     cfg.Event.PollInterval,
		CleanupEnabled:   cfg.Event.CleanupEnabled,
		CleanupRetention: cfg.Event.CleanupRetention,
		CleanupInterval:  time.Hour,
	}, log, event.WithDeliveryObserver(workflowMetrics))
	if cfg.Event.ProcessorEnabled {
		if err := outboxProcessor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
	}

	var backlogScheduler *scheduler.BacklogScheduler
	if cfg.Scheduler.Enabled {
		backlogScheduler, err = scheduler.NewBacklogScheduler(scheduler.BacklogSchedulerConfig{
			Schedule:       cfg.Scheduler.BacklogCron,
			JobTimeout:     cfg.Scheduler.JobTimeout,
			RetryAttempts:  cfg.Scheduler.RetryAttempts,
			RetryDelay:     cfg.Scheduler.RetryDelay,
			RunImmediately: cfg.Scheduler.RunImmediately,
		}, ledgerService, log)
		if err != nil {
			log.Fatal("Failed to create backlog scheduler", zap.Error(err))
		}
		if err := backlogScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start backlog scheduler", zap.Error(err))
		}
	}

	// Authentication
	tokens := auth.NewJWTService(cfg.JWT)
	var revocations auth.RevocationList
	if coordination.Distributed() {
		revocations = auth.NewRedisRevocationList(coordination.Client())
	} else {
		revocations = auth.NewInMemoryRevocationList()
	}

	// HTTP
	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}

	var httpMeter metric.Meter
	if cfg.Telemetry.MetricsEnabled {
		httpMeter = meter
	}
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	ginEngine, err := router.NewEngine(router.EngineOptions{
		Logger:         log,
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.Enabled,
		Meter:          httpMeter,
		HSTS:           cfg.App.Env == "production",
		CORS:           cors,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		RequestTimeout: cfg.HTTP.WriteTimeout,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	jwtConfig := middleware.DefaultJWTConfig(tokens)
	jwtConfig.Revocations = revocations
	jwtConfig.Logger = log

	protection := []gin.HandlerFunc{middleware.JWTAuth(jwtConfig), middleware.SpanAttributes()}
	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateLimitWindow)
		protection = append(protection, middleware.RateLimit(limiter))
	}

	checks := map[string]handler.Pinger{"database": db}
	if pinger, ok := documents.(handler.Pinger); ok {
		checks["storage"] = pinger
	}
	if coordination.Distributed() {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return coordination.Client().Ping(ctx).Err()
		})
	}

	r := router.NewRouter(ginEngine, router.WithAPIVersion("v1"), router.WithProtection(protection...))
	r.Public(handler.NewSystemHandler(cfg.App.Name, version, checks)).
		Register(handler.NewApplicationHandler(engine, ledgerService)).
		Register(handler.NewWorkflowHandler(definitionService)).
		Register(handler.NewPermissionHandler(permissionService)).
		Register(handler.NewDepartmentHandler(departmentService, ledgerService)).
		Register(handler.NewAuthHandler(revocations, tokens.Expiration())).
		Register(handler.NewOutboxHandler(outboxService))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        ginEngine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-serverErr:
		log.Error("Server failed", zap.Error(err))
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if limiter != nil {
		limiter.Stop()
	}
	if backlogScheduler != nil {
		if err := backlogScheduler.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping backlog scheduler", zap.Error(err))
		}
	}
	if cfg.Event.ProcessorEnabled {
		if err := outboxProcessor.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping outbox processor", zap.Error(err))
		}
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	capabilityCache.Close()
	if err := coordination.Close(); err != nil {
		log.Error("Error closing Redis", zap.Error(err))
	}
	if err := dbMetrics.Stop(); err != nil {
		log.Error("Error unregistering database metrics", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newDocumentStore selects the document store backend
func newDocumentStore(ctx context.Context, cfg *config.StorageConfig, log *zap.Logger) (licensing.DocumentStore, error) {
	if cfg.Backend == "memory" {
		log.Warn("Using in-memory document store; uploaded documents are not persisted")
		return storage.NewMemoryDocumentStore(), nil
	}
	return storage.NewS3DocumentStore(ctx, cfg, storage.WithLogger(log))
}

func metricPeriods(names []string) ([]ledger.Period, error) {
	periods := make([]ledger.Period, 0, len(names))
	for _, name := range names {
		p, err := ledger.ParsePeriod(name)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, nil
}

// sqlLogLimit keeps statement logs short unless full SQL logging is enabled
func sqlLogLimit(full bool) int {
	if full {
		return 0
	}
	return 1024
}
