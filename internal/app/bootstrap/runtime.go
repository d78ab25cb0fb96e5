package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/vetcare-platform/internal/bookings"
	appconfig "github.com/wolfman30/vetcare-platform/internal/config"
	"github.com/wolfman30/vetcare-platform/internal/meetings"
	"github.com/wolfman30/vetcare-platform/internal/notify"
	"github.com/wolfman30/vetcare-platform/internal/observability/metrics"
	"github.com/wolfman30/vetcare-platform/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildSlotLocker uses Redis when available so replicas share slot locks.
func BuildSlotLocker(redisClient *redis.Client, ttl time.Duration) bookings.SlotLocker {
	if redisClient == nil {
		return bookings.NewLocalSlotLocker()
	}
	return bookings.NewRedisSlotLocker(redisClient, ttl)
}

// BuildEmailSender picks the provider named by EMAIL_PROVIDER, falling back
// to the stub when the chosen provider is not configured.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.EmailProvider {
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sender != nil {
			logger.Info("email provider configured", "provider", "sendgrid")
			return sender
		}
		logger.Warn("sendgrid selected but SENDGRID_API_KEY is empty; using stub sender")
	case "ses":
		if awsCfg != nil && cfg.SESFromEmail != "" {
			logger.Info("email provider configured", "provider", "ses")
			return notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
				FromEmail: cfg.SESFromEmail,
				FromName:  cfg.SendGridFromName,
			}, logger)
		}
		logger.Warn("ses selected but AWS config or SES_FROM_EMAIL missing; using stub sender")
	}
	return notify.NewStubEmailSender(logger)
}

// BuildNotifier wires the email service with captcha and metrics.
func BuildNotifier(cfg *appconfig.Config, sender notify.EmailSender, m *metrics.BookingMetrics, logger *logging.Logger) *notify.Service {
	svc := notify.NewService(sender, logger).
		WithMetrics(m).
		WithContactInbox(cfg.ContactInboxEmail).
		WithAppURL(cfg.PublicBaseURL)
	if v := notify.NewRecaptchaVerifier(cfg.RecaptchaSecret, cfg.RecaptchaMinScore); v != nil {
		svc.WithCaptcha(v)
	} else if logger != nil {
		logger.Warn("RECAPTCHA_SECRET not set; contact form captcha disabled")
	}
	return svc
}

// BuildMeetingProvisioner returns nil when no provider key is configured.
func BuildMeetingProvisioner(cfg *appconfig.Config, logger *logging.Logger) bookings.MeetingProvisioner {
	client := meetings.NewWherebyClient(cfg.WherebyBaseURL, cfg.WherebyAPIKey, cfg.WherebyRoomMode, logger)
	if client == nil {
		return nil
	}
	return meetings.NewProvisioner(client, cfg.Policy.Location())
}
