package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("PLATFORM_FEE", "")
	t.Setenv("REFUND_FULL_NOTICE", "")
	t.Setenv("SLOT_DURATION", "")
	t.Setenv("EMAIL_PROVIDER", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.Policy.PlatformFee != 121 {
		t.Fatalf("expected platform fee 121, got %d", cfg.Policy.PlatformFee)
	}
	if cfg.Policy.RefundFullNotice != 12*time.Hour {
		t.Fatalf("expected 12h full refund notice, got %s", cfg.Policy.RefundFullNotice)
	}
	if cfg.Policy.RefundPartialNotice != 4*time.Hour {
		t.Fatalf("expected 4h partial refund notice, got %s", cfg.Policy.RefundPartialNotice)
	}
	if cfg.Policy.SlotDuration != 30*time.Minute {
		t.Fatalf("expected 30m slots, got %s", cfg.Policy.SlotDuration)
	}
	if cfg.EmailProvider != "stub" {
		t.Fatalf("expected stub email provider, got %s", cfg.EmailProvider)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("PLATFORM_FEE", "150")
	t.Setenv("REFUND_PARTIAL_PERCENT", "40")
	t.Setenv("SLOT_DURATION", "15m")
	t.Setenv("EMAIL_PROVIDER", " SendGrid ")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.Policy.PlatformFee != 150 {
		t.Fatalf("expected fee override, got %d", cfg.Policy.PlatformFee)
	}
	if cfg.Policy.RefundPartialPercent != 40 {
		t.Fatalf("expected partial percent override, got %d", cfg.Policy.RefundPartialPercent)
	}
	if cfg.Policy.SlotDuration != 15*time.Minute {
		t.Fatalf("expected slot override, got %s", cfg.Policy.SlotDuration)
	}
	if cfg.EmailProvider != "sendgrid" {
		t.Fatalf("expected normalized provider, got %q", cfg.EmailProvider)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("expected two origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestPolicyLocationFallsBackToUTC(t *testing.T) {
	p := Policy{ClinicTimezone: "Not/AZone"}
	if p.Location() != time.UTC {
		t.Fatalf("expected UTC fallback")
	}
}

func TestIsDevelopment(t *testing.T) {
	for env, want := range map[string]bool{
		"development": true, "Dev": true, "local": true,
		"production": false, "staging": false, "": false,
	} {
		if got := (&Config{Env: env}).IsDevelopment(); got != want {
			t.Fatalf("IsDevelopment(%q) = %v, want %v", env, got, want)
		}
	}
}
