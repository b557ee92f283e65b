package api

import (
	"strings"
	"testing"
	"time"
)

func setStripeEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_PRICE_ID", "price_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_123")
}

func TestLoadConfigDefaults(t *testing.T) {
	setStripeEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("listen addr: got %q", cfg.ListenAddr)
	}
	if cfg.RateLimitAuth != 10 || cfg.RateLimitOther != 300 {
		t.Errorf("rate limits: got %d/%d", cfg.RateLimitAuth, cfg.RateLimitOther)
	}
	if cfg.AuthEventRetention != 90*24*time.Hour {
		t.Errorf("auth event retention: got %v", cfg.AuthEventRetention)
	}
	if !cfg.AllowSignup {
		t.Error("expected signup allowed by default")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	setStripeEnv(t)
	t.Setenv("SUTRA_LISTEN_ADDR", ":9999")
	t.Setenv("SUTRA_ALLOW_SIGNUP", "false")
	t.Setenv("SUTRA_RATE_LIMIT_OTHER", "42")
	t.Setenv("SUTRA_RATE_LIMIT_AUTH", "not-a-number")
	t.Setenv("SUTRA_AUTH_EVENT_RETENTION", "7d")
	t.Setenv("SUTRA_CORS_ALLOWED_ORIGINS", " https://a.example.com, ,https://b.example.com ")
	t.Setenv("SUTRA_SHUTDOWN_TIMEOUT", "5s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddr != ":9999" {
		t.Errorf("listen addr: got %q", cfg.ListenAddr)
	}
	if cfg.AllowSignup {
		t.Error("expected signup disabled")
	}
	if cfg.RateLimitOther != 42 {
		t.Errorf("rate limit other: got %d", cfg.RateLimitOther)
	}
	if cfg.RateLimitAuth != 10 {
		t.Errorf("invalid rate limit should keep default, got %d", cfg.RateLimitAuth)
	}
	if cfg.AuthEventRetention != 7*24*time.Hour {
		t.Errorf("retention: got %v", cfg.AuthEventRetention)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("cors origins: got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("shutdown timeout: got %v", cfg.ShutdownTimeout)
	}
}

func TestLoadConfigRequiresPaymentCredentials(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("STRIPE_PRICE_ID", "price_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("expected error without stripe credentials")
	}
	for _, name := range []string{"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should name %s: %v", name, err)
		}
	}
	if strings.Contains(err.Error(), "STRIPE_PRICE_ID") {
		t.Errorf("error should not name a set variable: %v", err)
	}
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	cfg := testConfig(":memory:")
	cfg.LogFormat = "xml"
	cfg.AppURL = "not a url"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "SUTRA_LOG_FORMAT") || !strings.Contains(err.Error(), "SUTRA_APP_URL") {
		t.Fatalf("expected both fields reported, got %v", err)
	}
}

func TestParseDaysDuration(t *testing.T) {
	tests := map[string]time.Duration{
		"90d":  90 * 24 * time.Hour,
		"36h":  36 * time.Hour,
		"0d":   0,
		"junk": 0,
	}
	for in, want := range tests {
		if got := parseDaysDuration(in); got != want {
			t.Errorf("parseDaysDuration(%q) = %v, want %v", in, got, want)
		}
	}
}
