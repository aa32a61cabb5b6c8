package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/go-redis/redis/v8"

	"github.com/trabamex/mir-bff-go/internal/config"
	"github.com/trabamex/mir-bff-go/internal/domain"
	"github.com/trabamex/mir-bff-go/internal/handler"
	"github.com/trabamex/mir-bff-go/internal/infra/cache"
	"github.com/trabamex/mir-bff-go/internal/infra/checklist"
	"github.com/trabamex/mir-bff-go/internal/infra/email"
	"github.com/trabamex/mir-bff-go/internal/infra/events"
	"github.com/trabamex/mir-bff-go/internal/infra/export"
	"github.com/trabamex/mir-bff-go/internal/infra/observability"
	"github.com/trabamex/mir-bff-go/internal/infra/realtime"
	"github.com/trabamex/mir-bff-go/internal/infra/resilience"
	"github.com/trabamex/mir-bff-go/internal/infra/supabase"
	"github.com/trabamex/mir-bff-go/internal/port"
	"github.com/trabamex/mir-bff-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("supabase_url", cfg.SupabaseURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Duration("dashboard_cache_ttl", cfg.DashboardCacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Bool("redis", cfg.RedisAddr != ""),
		zap.Bool("mqtt", cfg.MQTTBroker != ""),
		zap.Bool("contact_email", cfg.ContactEmailEnabled()),
	)
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "mir-bff")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	// --- Supabase ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	db := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		resilience.NewCircuitBreaker("supabase"),
		resilienceCfg,
		logger,
	)
	db.OnExternalError(metrics.IncrExternalError)

	authClient := supabase.NewAuthClient(
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		cfg.HTTPTimeout,
		resilience.NewCircuitBreaker("supabase-auth"),
		logger,
	)

	// --- Caches ---
	observer := cache.WithObserver(metrics.CacheObserver())
	profileCache := cache.New[*domain.Profile](cfg.CacheTTL, cache.WithName("profiles"), observer)
	defer profileCache.Close()
	planCache := cache.New[[]domain.SubscriptionPlan](cfg.CacheTTL, cache.WithName("plans"), observer)
	defer planCache.Close()
	dashboardCache := cache.New[*domain.DashboardSummary](cfg.DashboardCacheTTL, cache.WithName("dashboard"), observer)
	defer dashboardCache.Close()

	// --- Checklist store ---
	var kv checklist.KV = checklist.NewMemoryKV()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable at startup, will keep retrying per request",
				zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		cancel()
		kv = checklist.NewRedisKV(rdb)
		logger.Info("checklists stored in redis", zap.String("addr", cfg.RedisAddr))
	} else {
		logger.Warn("REDIS_ADDR not set: checklists kept in memory")
	}

	// --- Events ---
	var publisher port.EventPublisher = events.Noop{}
	if cfg.MQTTBroker != "" {
		p, err := events.NewMQTTPublisher(events.Config{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
		}, logger)
		if err != nil {
			logger.Fatal("failed to connect to MQTT broker", zap.String("broker", cfg.MQTTBroker), zap.Error(err))
		}
		publisher = p
		logger.Info("lifecycle events published over MQTT", zap.String("broker", cfg.MQTTBroker))
	}
	defer publisher.Close()

	// --- Contact mailer ---
	var mailer port.Mailer = email.LogMailer{Logger: logger}
	if cfg.ContactEmailEnabled() {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.SESRegion))
		if err != nil {
			logger.Fatal("failed to load AWS config", zap.Error(err))
		}
		mailer = email.NewSESMailer(awsCfg, cfg.SESFromEmail, cfg.ContactToEmail, logger)
	} else {
		logger.Warn("SES_FROM_EMAIL/CONTACT_TO_EMAIL not set: contact messages are only logged")
	}

	// --- Realtime ---
	hub := realtime.NewHub(logger, metrics.SubscriberAdded, metrics.SubscriberRemoved)

	// --- Services ---
	activitySvc := service.NewActivityService(db, logger)
	authSvc := service.NewAuthService(authClient, db, profileCache, activitySvc, cfg.SupabaseJWTSecret, logger)
	planSvc := service.NewPlanService(db, db, planCache, activitySvc, metrics, logger)
	orderSvc := service.NewOrderService(db, db, planSvc, activitySvc, publisher, export.XLSX{}, metrics, logger)
	suppliesSvc := service.NewSuppliesService(db, db, activitySvc, publisher, metrics, logger)
	incidentSvc := service.NewIncidentService(db, hub, activitySvc, metrics, logger)
	adminSvc := service.NewAdminService(db, authClient, metrics, logger)
	contactSvc := service.NewContactService(mailer, 15*time.Second, metrics, logger)
	checklistSvc := service.NewChecklistService(checklist.NewStore(kv, logger))
	dashboardSvc := service.NewDashboardService(db, db, db, db, planSvc, dashboardCache, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Auth:      authSvc,
		Plans:     planSvc,
		Orders:    orderSvc,
		Supplies:  suppliesSvc,
		Incidents: incidentSvc,
		Activity:  activitySvc,
		Admin:     adminSvc,
		Contact:   contactSvc,
		Checklist: checklistSvc,
		Dashboard: dashboardSvc,
		Hub:       hub,

		Supabase: db,
		Metrics:  metrics,
		Logger:   logger,

		AllowedOrigins:    cfg.AllowedOrigins,
		ContactRatePerMin: cfg.ContactRatePerMin,
	})

	// --- Server ---
	// No WriteTimeout: incident streams are long-lived websockets.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Streams are hijacked connections that Shutdown does not wait for.
	hub.Shutdown()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}
	contactSvc.Wait()

	logger.Info("server stopped")
}
