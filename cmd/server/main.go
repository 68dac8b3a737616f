package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	chequeapp "github.com/erp/cheques/internal/application/cheque"
	currencyapp "github.com/erp/cheques/internal/application/currency"
	reportapp "github.com/erp/cheques/internal/application/report"
	"github.com/erp/cheques/internal/domain/currency"
	"github.com/erp/cheques/internal/infrastructure/auth"
	"github.com/erp/cheques/internal/infrastructure/cache"
	"github.com/erp/cheques/internal/infrastructure/config"
	"github.com/erp/cheques/internal/infrastructure/event"
	"github.com/erp/cheques/internal/infrastructure/hostrpc"
	"github.com/erp/cheques/internal/infrastructure/logger"
	"github.com/erp/cheques/internal/infrastructure/persistence"
	"github.com/erp/cheques/internal/infrastructure/storage"
	"github.com/erp/cheques/internal/infrastructure/telemetry"
	"github.com/erp/cheques/internal/interfaces/http/handler"
	"github.com/erp/cheques/internal/interfaces/http/middleware"
	"github.com/erp/cheques/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

// Field edits and submissions are small JSON documents
const jsonBodyLimit = 1 << 20

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// OTLP log bridge: rebuild the logger with the exporter core teed in
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	if logProvider.IsEnabled() {
		logCfg.ExtraCores = []zapcore.Core{logProvider.Core(logger.ParseLevel(cfg.Log.Level))}
		if log, err = logger.New(logCfg); err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting cheque entry service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		Exporter:          cfg.Telemetry.MetricsExporter,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}

	var chequeMetrics *telemetry.ChequeMetrics
	if meterProvider.IsEnabled() {
		chequeMetrics, err = telemetry.NewChequeMetrics(telemetry.ChequeMetricsConfig{
			Meter:  meterProvider.Meter("cheques"),
			Logger: log,
		})
		if err != nil {
			log.Fatal("Failed to create cheque metrics", zap.Error(err))
		}
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.DefaultDBTracingConfig()
		dbTracing.Enabled = true
		dbTracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
		dbTracing.DBSystem = db.DBSystem()
		if cfg.Telemetry.DBSlowQueryThresh > 0 {
			dbTracing.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
		}
		if err := telemetry.RegisterDBTracing(db.DB, dbTracing, log); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}
	log.Info("Database connected", zap.String("driver", db.Driver))

	entryRepo := persistence.NewGormChequeEntryRepository(db.DB)
	rateRepo := persistence.NewGormExchangeRateRepository(db.DB)

	// Host system
	hostClient, err := hostrpc.NewClient(cfg.Host, hostrpc.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to configure host client", zap.Error(err))
	}
	directory := hostrpc.NewDirectory(hostClient)
	gateway := hostrpc.NewPaymentEntryGateway(hostClient)

	// Redis is optional; every consumer has an in-process fallback
	var redisClient redis.UniversalClient
	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, rate cache and issuance marks stay in-process", zap.Error(err))
		} else {
			redisClient = client
			defer client.Close()
		}
	}

	// Exchange rates
	var rateSource currency.RateRepository = rateRepo
	if cfg.FX.Source == config.FXSourceHost {
		rateSource = hostrpc.NewRateStore(hostClient)
	}
	rateCache := cache.NewRateCache(rateSource, cache.RateCacheConfig{
		TTL:    cfg.FX.CacheTTL,
		Redis:  redisClient,
		Logger: log,
	})
	rateLookup := currency.NewExchangeRateLookup(rateCache)
	log.Info("Exchange rate source selected", zap.String("source", cfg.FX.Source))

	idempotencyStore := cache.NewIdempotencyStore(redisClient, log)
	defer idempotencyStore.Close()

	// Events
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewAuditLogHandler(log))
	if cfg.Events.KafkaEnabled {
		forwarder := event.NewKafkaForwarder(
			event.NewKafkaWriter(cfg.Events.Brokers, cfg.Events.Topic),
			event.NewEventSerializer(),
			log,
		)
		defer func() {
			if err := forwarder.Close(); err != nil {
				log.Error("Error closing Kafka writer", zap.Error(err))
			}
		}()
		eventBus.Subscribe(event.NewIdempotentHandler(forwarder, idempotencyStore, "kafka", cfg.Issuance.IdempotencyTTL, log))
		log.Info("Forwarding cheque entry events to Kafka",
			zap.Strings("brokers", cfg.Events.Brokers),
			zap.String("topic", cfg.Events.Topic))
	}
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Cheque pictures
	var (
		pictures    chequeapp.PictureStore
		memPictures *storage.MemoryImageStore
	)
	switch {
	case cfg.Storage.Enabled:
		s3Store, err := storage.NewS3ChequeImageStore(ctx, cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to configure picture storage", zap.Error(err))
		}
		if err := s3Store.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare picture bucket", zap.Error(err), zap.String("bucket", s3Store.Bucket()))
		}
		pictures = s3Store
	case cfg.App.Env == "development":
		memPictures = storage.NewMemoryImageStore()
		memPictures.BaseURL = "http://localhost:" + cfg.App.Port + "/pictures"
		pictures = memPictures
		log.Warn("Picture storage disabled, keeping uploads in memory")
	}

	// Application services
	entryService := chequeapp.NewEntryService(chequeapp.EntryServiceConfig{
		Repo:             entryRepo,
		Directory:        directory,
		Rates:            rateLookup,
		Gateway:          gateway,
		Idempotency:      idempotencyStore,
		Publisher:        eventBus,
		Pictures:         pictures,
		Metrics:          chequeMetrics,
		Logger:           log,
		IssueConcurrency: cfg.Issuance.MaxConcurrency,
		IdempotencyTTL:   cfg.Issuance.IdempotencyTTL,
	})
	rateService := currencyapp.NewRateService(rateLookup, rateCache, log)
	glService := reportapp.NewGLService(directory, log)
	balanceService := reportapp.NewCustomerBalanceService(hostrpc.NewLedger(hostClient), log)

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracerProvider.IsEnabled(),
	}))
	engine.Use(middleware.SpanEnricher())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		Enabled:       meterProvider.IsEnabled(),
	}))
	engine.Use(middleware.Secure(cfg.App.Env == "production"))
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
		MaxBytes:          jsonBodyLimit,
		MaxMultipartBytes: cfg.HTTP.MaxBodySize,
	}))

	router.RegisterSystem(engine, handler.NewSystemHandler(handler.SystemHandlerConfig{
		Name:    cfg.App.Name,
		Version: version,
		DB:      db,
		Metrics: meterProvider.Handler(),
	}))
	if memPictures != nil {
		engine.GET("/pictures/*key", memoryPictureHandler(memPictures))
	}

	var apiMiddleware []gin.HandlerFunc
	if cfg.Auth.Enabled {
		tokens, err := auth.NewTokenService(cfg.Auth)
		if err != nil {
			log.Fatal("Failed to configure token verification", zap.Error(err))
		}
		apiMiddleware = append(apiMiddleware, middleware.JWTAuth(middleware.JWTMiddlewareConfig{
			Verifier: tokens,
			Logger:   log,
		}))
	} else {
		log.Warn("API authentication disabled")
	}
	// After auth so limits are keyed by subject when one is known
	if cfg.HTTP.RateLimitEnabled {
		apiMiddleware = append(apiMiddleware,
			middleware.RateLimit(middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"), router.WithAPIMiddleware(apiMiddleware...))
	router.Handlers{
		ChequeEntry:  handler.NewChequeEntryHandler(entryService),
		ExchangeRate: handler.NewExchangeRateHandler(rateService),
		PaymentEntry: handler.NewPaymentEntryHandler(),
		Report:       handler.NewReportHandler(glService, balanceService),
	}.Register(r)
	r.Setup()
	log.Debug("API routes mounted", zap.Strings("routes", r.Routes()))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	for name, shutdown := range map[string]func(context.Context) error{
		"tracer": tracerProvider.Shutdown,
		"meter":  meterProvider.Shutdown,
		"logs":   logProvider.Shutdown,
	} {
		if err := shutdown(shutdownCtx); err != nil {
			log.Error("Telemetry shutdown failed", zap.String("provider", name), zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}

// memoryPictureHandler serves pictures kept by the development image store
func memoryPictureHandler(store *storage.MemoryImageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, contentType, ok := store.Object(strings.TrimPrefix(c.Param("key"), "/"))
		if !ok {
			c.Status(http.StatusNotFound)
			return
		}
		c.Data(http.StatusOK, contentType, data)
	}
}
