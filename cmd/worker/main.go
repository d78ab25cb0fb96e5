package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/vetcare-platform/cmd/mainconfig"
	"github.com/wolfman30/vetcare-platform/internal/app/bootstrap"
	"github.com/wolfman30/vetcare-platform/internal/bookings"
	appconfig "github.com/wolfman30/vetcare-platform/internal/config"
	"github.com/wolfman30/vetcare-platform/internal/events"
	"github.com/wolfman30/vetcare-platform/internal/meetings"
	"github.com/wolfman30/vetcare-platform/internal/observability/metrics"
	"github.com/wolfman30/vetcare-platform/pkg/logging"
)

const consumerName = "notify-worker"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Default().Warn("failed to read .env", "error", err)
	}
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" {
		logger.Error("worker requires DATABASE_URL")
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var awsCfg *aws.Config
	if mainconfig.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		awsCfg = &loaded
	}

	bookingMetrics := metrics.NewBookingMetrics(prometheus.NewRegistry())

	handler := deliveryHandler(cfg, awsCfg, pool, bookingMetrics, logger)
	deliverer := events.NewDeliverer(events.NewOutboxStore(pool), handler, logger.Component("outbox")).
		WithBatchSize(int32(cfg.OutboxBatchSize)).
		WithInterval(cfg.OutboxPollInterval)
	go deliverer.Start(ctx)

	if provisioner := bootstrap.BuildMeetingProvisioner(cfg, logger.Component("meetings")); provisioner != nil {
		retry := newMeetingRetry(cfg, pool, provisioner, bookingMetrics, logger)
		go retry.Start(ctx)
	} else {
		logger.Info("WHEREBY_API_KEY not set; meeting retries disabled")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("worker shutting down")
	cancel()
	time.Sleep(2 * time.Second)
}

// deliveryHandler forwards outbox events to SQS for the email lambda when a
// queue is configured, and sends the emails in-process otherwise.
func deliveryHandler(cfg *appconfig.Config, awsCfg *aws.Config, pool *pgxpool.Pool, m *metrics.BookingMetrics, logger *logging.Logger) events.DeliveryHandler {
	if cfg.NotificationQueueURL != "" && awsCfg != nil {
		logger.Info("publishing booking events to SQS", "queue_url", cfg.NotificationQueueURL)
		return events.NewSQSPublisher(sqs.NewFromConfig(*awsCfg), cfg.NotificationQueueURL)
	}
	notifier := bootstrap.BuildNotifier(cfg, bootstrap.BuildEmailSender(cfg, awsCfg, logger), m, logger.Component("notify"))
	if pool == nil {
		return notifier
	}
	store := events.NewProcessedStore(pool)
	notifier.WithSentLog(store)
	return events.NewIdempotentHandler(consumerName, store, notifier, logger)
}

func newMeetingRetry(cfg *appconfig.Config, pool *pgxpool.Pool, provisioner bookings.MeetingProvisioner, m *metrics.BookingMetrics, logger *logging.Logger) *meetings.RetryWorker {
	svc := bootstrap.BuildServices(bootstrap.PostgresRepositories(pool), cfg.Policy, cfg, bootstrap.Options{
		Meetings: provisioner,
		Metrics:  m,
	}, logger)
	return meetings.NewRetryWorker(svc.Bookings, provisioner, logger.Component("meetings")).
		WithInterval(cfg.MeetingRetryInterval).
		WithMetrics(m)
}
