package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/boddenberg/modcar-console-bfa-go/internal/config"
	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"
	"github.com/boddenberg/modcar-console-bfa-go/internal/handler"
	"github.com/boddenberg/modcar-console-bfa-go/internal/infra/cache"
	"github.com/boddenberg/modcar-console-bfa-go/internal/infra/client"
	"github.com/boddenberg/modcar-console-bfa-go/internal/infra/observability"
	"github.com/boddenberg/modcar-console-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/modcar-console-bfa-go/internal/infra/storage"
	"github.com/boddenberg/modcar-console-bfa-go/internal/infra/supabase"
	"github.com/boddenberg/modcar-console-bfa-go/internal/port"
	"github.com/boddenberg/modcar-console-bfa-go/internal/service"

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

	if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
		logger.Fatal("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required")
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("session_cache_ttl", cfg.SessionCacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Bool("redis", cfg.RedisURL != ""),
		zap.Bool("local_token_verification", cfg.SupabaseJWTSecret != ""),
		zap.Bool("erp_key", cfg.ERPKeyHash != ""),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "modcar-console-bfa")
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

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	supabaseClient := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		resilience.NewCircuitBreaker("supabase"),
		resilienceCfg,
		logger,
	)

	// A nil *TokenVerifier must not end up inside the interface.
	var verifier port.TokenVerifier
	if cfg.SupabaseJWTSecret != "" {
		verifier = supabase.NewTokenVerifier(cfg.SupabaseJWTSecret)
	} else {
		logger.Warn("SUPABASE_JWT_SECRET not set, tokens are verified through GoTrue")
	}

	var sessionCache port.Cache[domain.Session]
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(cfg.RedisURL)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		sessionCache = cache.NewRedis[domain.Session](rdb, "modcar:session:", cfg.SessionCacheTTL, logger)
		logger.Info("session cache backed by redis")
	} else {
		sessionCache = cache.New[domain.Session](cfg.SessionCacheTTL)
	}

	var images port.ImageStore
	if cfg.StorageAccessKey != "" {
		store, err := storage.NewS3ImageStore(context.Background(), storage.Config{
			Endpoint:      cfg.StorageEndpoint,
			Region:        cfg.StorageRegion,
			AccessKey:     cfg.StorageAccessKey,
			SecretKey:     cfg.StorageSecretKey,
			Bucket:        cfg.StorageBucket,
			PublicBaseURL: publicBucketURL(cfg.SupabaseURL, cfg.StorageBucket),
			Timeout:       cfg.HTTPTimeout,
		}, logger)
		if err != nil {
			logger.Fatal("failed to init image storage", zap.Error(err))
		}
		images = store
	} else {
		logger.Warn("storage credentials not set, image uploads unavailable")
	}

	var mailer port.Mailer
	if cfg.ResendAPIKey != "" {
		mailer = client.NewResendMailer(
			httpClient,
			client.DefaultResendURL,
			cfg.ResendAPIKey,
			cfg.MailFrom,
			cfg.AppURL,
			resilience.NewCircuitBreaker("resend"),
			logger,
		)
	} else {
		logger.Warn("RESEND_API_KEY not set, welcome emails are not sent")
	}

	// --- Services ---
	notifier := service.NewNotificationService(mailer, metrics, logger)
	assumptions := service.NewKPIAssumptions(
		cfg.KPIChurnRatePct,
		cfg.KPIAvgRetentionMonths,
		cfg.KPICAC,
		cfg.KPIProfitMarginPct,
	)

	svc := handler.Services{
		Sessions:      service.NewSessionService(verifier, supabaseClient, supabaseClient, supabaseClient, sessionCache, metrics, logger),
		Provisioning:  service.NewProvisioningService(supabaseClient, supabaseClient, supabaseClient, supabaseClient, notifier, metrics, logger),
		Approval:      service.NewApprovalService(supabaseClient, supabaseClient, metrics, logger),
		Catalog:       service.NewCatalogService(supabaseClient, supabaseClient, supabaseClient, images, metrics, logger),
		Campaigns:     service.NewCampaignService(supabaseClient, supabaseClient, logger),
		Customers:     service.NewCustomerService(supabaseClient, supabaseClient, logger),
		Partners:      service.NewPartnerService(supabaseClient, supabaseClient, supabaseClient, logger),
		KPIs:          service.NewKPIService(supabaseClient, supabaseClient, supabaseClient, supabaseClient, assumptions, metrics, logger),
		Dashboard:     service.NewDashboardService(supabaseClient, supabaseClient, supabaseClient, supabaseClient, supabaseClient, metrics, logger),
		Notifications: notifier,
		StockSync:     service.NewStockSyncService(supabaseClient, cfg.ERPKeyHash, metrics, logger),
		Funnel:        service.NewFunnelService(supabaseClient, notifier, metrics, logger),
		Supabase:      supabaseClient,
	}

	// --- Router ---
	router := handler.NewRouter(svc, handler.Options{
		CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
		PublicRateLimitRPS:   cfg.PublicRateLimitRPS,
		PublicRateLimitBurst: cfg.PublicRateLimitBurst,
		TrustProxyHeaders:    cfg.TrustProxyHeaders,
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
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

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	// welcome emails still in flight
	notifier.Wait()

	logger.Info("server stopped")
}

// publicBucketURL is where Supabase Storage serves public objects.
func publicBucketURL(supabaseURL, bucket string) string {
	return strings.TrimSuffix(supabaseURL, "/") + "/storage/v1/object/public/" + bucket
}
