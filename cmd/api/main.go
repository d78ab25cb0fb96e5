package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/vetcare-platform/cmd/mainconfig"
	"github.com/wolfman30/vetcare-platform/internal/api/router"
	"github.com/wolfman30/vetcare-platform/internal/app/bootstrap"
	"github.com/wolfman30/vetcare-platform/internal/availability"
	"github.com/wolfman30/vetcare-platform/internal/bookings"
	appconfig "github.com/wolfman30/vetcare-platform/internal/config"
	"github.com/wolfman30/vetcare-platform/internal/dashboard"
	"github.com/wolfman30/vetcare-platform/internal/events"
	httpmiddleware "github.com/wolfman30/vetcare-platform/internal/http/middleware"
	"github.com/wolfman30/vetcare-platform/internal/meetings"
	"github.com/wolfman30/vetcare-platform/internal/notify"
	"github.com/wolfman30/vetcare-platform/internal/observability/metrics"
	"github.com/wolfman30/vetcare-platform/internal/payments"
	"github.com/wolfman30/vetcare-platform/internal/pets"
	"github.com/wolfman30/vetcare-platform/internal/prescriptions"
	"github.com/wolfman30/vetcare-platform/internal/profiles"
	"github.com/wolfman30/vetcare-platform/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Default().Warn("failed to read .env", "error", err)
	}
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting vetcare API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := connectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool != nil {
		defer pool.Close()
	}
	repos := buildRepositories(pool)

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	metricsHandler, bookingMetrics := setupMetrics()

	var awsCfg *aws.Config
	if mainconfig.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		awsCfg = &loaded
	}

	notifier := bootstrap.BuildNotifier(cfg, bootstrap.BuildEmailSender(cfg, awsCfg, logger), bookingMetrics, logger.Component("notify"))
	provisioner := bootstrap.BuildMeetingProvisioner(cfg, logger.Component("meetings"))

	svc := bootstrap.BuildServices(repos, cfg.Policy, cfg, bootstrap.Options{
		Locker:   bootstrap.BuildSlotLocker(redisClient, cfg.Policy.BookingLockTTL),
		Meetings: provisioner,
		Metrics:  bookingMetrics,
	}, logger)

	// Without Postgres there is no separate worker process to drain events.
	if memRepo, ok := repos.Bookings.(*bookings.InMemoryRepository); ok {
		startInlineWorkers(ctx, cfg, memRepo, svc, notifier, provisioner, bookingMetrics, logger)
	}

	limiter := buildRateLimiter(ctx, cfg, redisClient)

	routerCfg := &router.Config{
		Logger:             logger,
		Profiles:           profiles.NewHandler(svc.Profiles, logger),
		Availability:       availability.NewHandler(svc.Availability, logger),
		Bookings:           bookings.NewHandler(svc.Bookings, logger),
		Pets:               pets.NewHandler(svc.Pets, logger),
		Prescriptions:      prescriptions.NewHandler(svc.Prescriptions, logger),
		Payments:           payments.NewHandler(svc.Payments, logger),
		Dashboard:          setupDashboard(pool, cfg, logger),
		Functions:          notify.NewFunctionsHandler(notifier, logger),
		MetricsHandler:     metricsHandler,
		AuthSecret:         cfg.AuthJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
		ReadinessChecks:    readinessChecks(pool, redisClient),
	}
	if cfg.AuthJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set; authenticated routes will reject every request")
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// connectPostgresPool returns nil when no URL is configured, in which case the
// API runs on in-memory storage. An unreachable database is fatal.
func connectPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if databaseURL == "" {
		logger.Warn("DATABASE_URL not set; using in-memory storage")
		return nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		os.Exit(1)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Error("failed to connect postgres", "error", err)
		pool.Close()
		os.Exit(1)
	}
	return pool
}

func buildRepositories(pool *pgxpool.Pool) bootstrap.Repositories {
	if pool == nil {
		return bootstrap.InMemoryRepositories()
	}
	return bootstrap.PostgresRepositories(pool)
}

func setupMetrics() (http.Handler, *metrics.BookingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewBookingMetrics(reg)
}

// setupDashboard reads through database/sql on the same pool; the dashboard
// is unavailable on in-memory storage.
func setupDashboard(pool *pgxpool.Pool, cfg *appconfig.Config, logger *logging.Logger) *dashboard.Handler {
	if pool == nil {
		return nil
	}
	return dashboard.NewHandler(dashboard.NewSQLLoader(stdlib.OpenDBFromPool(pool)), dashboard.Options{
		TrendDays:   cfg.Policy.DashboardTrendDays,
		PlatformFee: cfg.Policy.PlatformFee,
		Location:    cfg.Policy.Location(),
	}, logger.Component("dashboard"))
}

func buildRateLimiter(ctx context.Context, cfg *appconfig.Config, redisClient *redis.Client) httpmiddleware.Limiter {
	if cfg.RateLimitRPS <= 0 {
		return nil
	}
	if redisClient != nil {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = int(cfg.RateLimitRPS)
		}
		return httpmiddleware.NewRedisLimiter(redisClient, burst, time.Second)
	}
	local := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go local.StartSweeper(ctx, time.Minute)
	return local
}

func readinessChecks(pool *pgxpool.Pool, redisClient *redis.Client) map[string]router.ReadinessCheck {
	checks := map[string]router.ReadinessCheck{}
	if pool != nil {
		checks["postgres"] = func(ctx context.Context) error { return pool.Ping(ctx) }
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	return checks
}

// startInlineWorkers runs event delivery and meeting retries in-process for
// local runs on in-memory storage.
func startInlineWorkers(
	ctx context.Context,
	cfg *appconfig.Config,
	repo *bookings.InMemoryRepository,
	svc *bootstrap.Services,
	notifier *notify.Service,
	provisioner bookings.MeetingProvisioner,
	m *metrics.BookingMetrics,
	logger *logging.Logger,
) {
	deliverer := events.NewDeliverer(events.NewMemoryOutbox(repo.Events), notifier, logger.Component("outbox")).
		WithBatchSize(int32(cfg.OutboxBatchSize)).
		WithInterval(cfg.OutboxPollInterval)
	go deliverer.Start(ctx)

	if provisioner != nil {
		retry := meetings.NewRetryWorker(svc.Bookings, provisioner, logger.Component("meetings")).
			WithInterval(cfg.MeetingRetryInterval).
			WithMetrics(m)
		go retry.Start(ctx)
	}
}
