package api

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the server configuration, loaded from environment variables.
type Config struct {
	ListenAddr      string        `env:"SUTRA_LISTEN_ADDR" validate:"required"`
	ServerDBPath    string        `env:"SUTRA_SERVER_DB_PATH" validate:"required"`
	AppURL          string        `env:"SUTRA_APP_URL" validate:"required,url"`
	ShutdownTimeout time.Duration `env:"SUTRA_SHUTDOWN_TIMEOUT" validate:"gt=0"`
	AllowSignup     bool          `env:"SUTRA_ALLOW_SIGNUP"`
	LogFormat       string        `env:"SUTRA_LOG_FORMAT" validate:"oneof=json text"`            // "json" (default) or "text"
	LogLevel        string        `env:"SUTRA_LOG_LEVEL" validate:"oneof=debug info warn error"` // "info" (default)

	RateLimitAuth  int `env:"SUTRA_RATE_LIMIT_AUTH" validate:"gt=0"`  // /v1/auth/* per IP per minute (default: 10)
	RateLimitOther int `env:"SUTRA_RATE_LIMIT_OTHER" validate:"gt=0"` // authenticated routes per API key per minute (default: 300)

	CORSAllowedOrigins []string `env:"SUTRA_CORS_ALLOWED_ORIGINS" validate:"dive,required"` // empty = disabled

	AuthEventRetention time.Duration `env:"SUTRA_AUTH_EVENT_RETENTION" validate:"gt=0"` // default: 90 days

	StripeSecretKey     string `env:"STRIPE_SECRET_KEY" validate:"required"`
	StripePriceID       string `env:"STRIPE_PRICE_ID" validate:"required"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET" validate:"required"`
}

// DefaultConfig returns the configuration used when no environment is set.
// The payment credentials have no defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:      ":8080",
		ServerDBPath:    "./data/server.db",
		AppURL:          "http://localhost:3000",
		ShutdownTimeout: 30 * time.Second,
		AllowSignup:     true,
		LogFormat:       "json",
		LogLevel:        "info",

		RateLimitAuth:  10,
		RateLimitOther: 300,

		AuthEventRetention: 90 * 24 * time.Hour,
	}
}

// LoadConfig reads configuration from environment variables with sensible
// defaults and validates it. A missing payment credential is an error.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("SUTRA_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("SUTRA_SERVER_DB_PATH"); v != "" {
		cfg.ServerDBPath = v
	}
	if v := os.Getenv("SUTRA_APP_URL"); v != "" {
		cfg.AppURL = v
	}
	if v := os.Getenv("SUTRA_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ShutdownTimeout = d
		}
	}
	if v := os.Getenv("SUTRA_ALLOW_SIGNUP"); v == "false" || v == "0" {
		cfg.AllowSignup = false
	}
	if v := os.Getenv("SUTRA_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("SUTRA_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if v := os.Getenv("SUTRA_RATE_LIMIT_AUTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimitAuth = n
		}
	}
	if v := os.Getenv("SUTRA_RATE_LIMIT_OTHER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimitOther = n
		}
	}

	if v := os.Getenv("SUTRA_AUTH_EVENT_RETENTION"); v != "" {
		if d := parseDaysDuration(v); d > 0 {
			cfg.AuthEventRetention = d
		}
	}

	if v := os.Getenv("SUTRA_CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for _, o := range origins {
			o = strings.TrimSpace(o)
			if o != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
			}
		}
	}

	cfg.StripeSecretKey = os.Getenv("STRIPE_SECRET_KEY")
	cfg.StripePriceID = os.Getenv("STRIPE_PRICE_ID")
	cfg.StripeWebhookSecret = os.Getenv("STRIPE_WEBHOOK_SECRET")

	return cfg, cfg.Validate()
}

// Validate checks cfg and reports every invalid field by its environment
// variable name.
func (c Config) Validate() error {
	err := configValidator.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" must be set")
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

var configValidator = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}()

// parseDaysDuration parses a string like "90d", "30d" into a time.Duration.
// Falls back to time.ParseDuration for standard Go durations.
func parseDaysDuration(s string) time.Duration {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "d") {
		numStr := strings.TrimSuffix(s, "d")
		if n, err := strconv.Atoi(numStr); err == nil && n > 0 {
			return time.Duration(n) * 24 * time.Hour
		}
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return 0
}
