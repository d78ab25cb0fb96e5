package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	PublicBaseURL      string
	LogLevel           string
	DatabaseURL        string
	RedisAddr          string
	RedisPassword      string
	RedisTLS           bool
	AuthJWTSecret      string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	// Email
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	ContactInboxEmail string
	RecaptchaSecret   string
	RecaptchaMinScore float64

	// AWS
	AWSRegion            string
	AWSAccessKeyID       string
	AWSSecretAccessKey   string
	AWSEndpointOverride  string
	NotificationQueueURL string

	// Video meetings
	WherebyAPIKey        string
	WherebyBaseURL       string
	WherebyRoomMode      string
	MeetingRetryInterval time.Duration

	// Payments
	PaymentSigningSecret string

	// Workers
	OutboxPollInterval time.Duration
	OutboxBatchSize    int

	Policy Policy
}

// Policy groups the marketplace business rules that used to be hard-coded
// in several places.
type Policy struct {
	PlatformFee          int64
	Currency             string
	RefundFullNotice     time.Duration
	RefundPartialNotice  time.Duration
	RefundPartialPercent int
	SlotDuration         time.Duration
	BookingLockTTL       time.Duration
	ClinicTimezone       string
	DashboardTrendDays   int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		PublicBaseURL:      getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisTLS:           getEnvAsBool("REDIS_TLS", false),
		AuthJWTSecret:      getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "VetCare"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		ContactInboxEmail: getEnv("CONTACT_INBOX_EMAIL", ""),
		RecaptchaSecret:   getEnv("RECAPTCHA_SECRET", ""),
		RecaptchaMinScore: getEnvAsFloat("RECAPTCHA_MIN_SCORE", 0.5),

		AWSRegion:            getEnv("AWS_REGION", "ap-south-1"),
		AWSAccessKeyID:       getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride:  getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		NotificationQueueURL: getEnv("NOTIFICATION_QUEUE_URL", ""),

		WherebyAPIKey:        getEnv("WHEREBY_API_KEY", ""),
		WherebyBaseURL:       getEnv("WHEREBY_BASE_URL", "https://api.whereby.dev"),
		WherebyRoomMode:      getEnv("WHEREBY_ROOM_MODE", "normal"),
		MeetingRetryInterval: getEnvAsDuration("MEETING_RETRY_INTERVAL", 5*time.Minute),

		PaymentSigningSecret: getEnv("PAYMENT_SIGNING_SECRET", ""),

		OutboxPollInterval: getEnvAsDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize:    getEnvAsInt("OUTBOX_BATCH_SIZE", 25),

		Policy: Policy{
			PlatformFee:          int64(getEnvAsInt("PLATFORM_FEE", 121)),
			Currency:             getEnv("PLATFORM_CURRENCY", "INR"),
			RefundFullNotice:     getEnvAsDuration("REFUND_FULL_NOTICE", 12*time.Hour),
			RefundPartialNotice:  getEnvAsDuration("REFUND_PARTIAL_NOTICE", 4*time.Hour),
			RefundPartialPercent: getEnvAsInt("REFUND_PARTIAL_PERCENT", 50),
			SlotDuration:         getEnvAsDuration("SLOT_DURATION", 30*time.Minute),
			BookingLockTTL:       getEnvAsDuration("BOOKING_LOCK_TTL", 10*time.Second),
			ClinicTimezone:       getEnv("CLINIC_TIMEZONE", "Asia/Kolkata"),
			DashboardTrendDays:   getEnvAsInt("DASHBOARD_TREND_DAYS", 30),
		},
	}
}

// IsDevelopment reports a local environment ("development", "dev" or "local").
func (c *Config) IsDevelopment() bool {
	switch strings.ToLower(strings.TrimSpace(c.Env)) {
	case "development", "dev", "local":
		return true
	}
	return false
}

// Location resolves the clinic timezone, falling back to UTC.
func (p Policy) Location() *time.Location {
	loc, err := time.LoadLocation(p.ClinicTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
