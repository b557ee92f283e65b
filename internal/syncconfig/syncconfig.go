package syncconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SyncConfig holds settings for talking to the journey server.
type SyncConfig struct {
	URL     string `json:"url"`
	Enabled *bool  `json:"enabled,omitempty"` // nil = default true
	Timeout string `json:"timeout,omitempty"` // duration string, default "10s"
}

// DisplayConfig holds presentation overrides.
type DisplayConfig struct {
	Locale string `json:"locale,omitempty"` // empty = detect from the environment
}

// Config is the global sutra config stored at ~/.config/sutra/config.json.
type Config struct {
	Sync    SyncConfig    `json:"sync"`
	Display DisplayConfig `json:"display"`
}

// AuthCredentials stores authentication state at ~/.config/sutra/auth.json.
type AuthCredentials struct {
	APIKey    string `json:"api_key"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	ServerURL string `json:"server_url"`
	ExpiresAt string `json:"expires_at"`
}

const defaultServerURL = "http://localhost:8080"

// ConfigDir returns ~/.config/sutra (or $SUTRA_CONFIG_DIR), creating it if necessary.
func ConfigDir() (string, error) {
	dir := os.Getenv("SUTRA_CONFIG_DIR")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home dir: %w", err)
		}
		dir = filepath.Join(home, ".config", "sutra")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// DataDir returns the directory holding locally persisted journey blobs.
func DataDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

// LoadConfig reads the global config from config.json.
func LoadConfig() (*Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveConfig writes the global config to config.json.
func SaveConfig(cfg *Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// LoadAuth reads auth credentials from auth.json. It returns nil, nil when
// the user has never logged in.
func LoadAuth() (*AuthCredentials, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "auth.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var creds AuthCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// SaveAuth writes auth credentials to auth.json (0600 perms).
func SaveAuth(creds *AuthCredentials) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "auth.json"), data, 0600)
}

// ClearAuth removes the auth.json file.
func ClearAuth() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(dir, "auth.json"))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// GetServerURL returns the journey server URL.
// Priority: SUTRA_SERVER_URL env > config.json > default.
func GetServerURL() string {
	if v := os.Getenv("SUTRA_SERVER_URL"); v != "" {
		return v
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.Sync.URL != "" {
		return cfg.Sync.URL
	}
	return defaultServerURL
}

// GetAPIKey returns the API key.
// Priority: SUTRA_AUTH_KEY env > auth.json.
func GetAPIKey() string {
	if v := os.Getenv("SUTRA_AUTH_KEY"); v != "" {
		return v
	}
	creds, err := LoadAuth()
	if err == nil && creds != nil {
		return creds.APIKey
	}
	return ""
}

// IsAuthenticated returns true if an API key is available.
func IsAuthenticated() bool {
	return GetAPIKey() != ""
}

// parseBoolEnv returns nil if env not set, pointer to bool if set.
func parseBoolEnv(envKey string) *bool {
	v := os.Getenv(envKey)
	if v == "" {
		return nil
	}
	v = strings.ToLower(v)
	if v == "1" || v == "true" {
		b := true
		return &b
	}
	if v == "0" || v == "false" {
		b := false
		return &b
	}
	return nil
}

// GetSyncEnabled returns whether journey changes are mirrored to the server.
// Priority: SUTRA_SYNC env > config.json sync.enabled > true
func GetSyncEnabled() bool {
	if v := parseBoolEnv("SUTRA_SYNC"); v != nil {
		return *v
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.Sync.Enabled != nil {
		return *cfg.Sync.Enabled
	}
	return true
}

// GetRequestTimeout returns the per-request timeout for server calls.
// Priority: SUTRA_SYNC_TIMEOUT env > config.json sync.timeout > 10s
func GetRequestTimeout() time.Duration {
	if v := os.Getenv("SUTRA_SYNC_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.Sync.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Sync.Timeout); err == nil && d > 0 {
			return d
		}
	}
	return 10 * time.Second
}

// GetLocale returns the configured display locale, or "" to detect one.
// Priority: SUTRA_LOCALE env > config.json display.locale
func GetLocale() string {
	if v := os.Getenv("SUTRA_LOCALE"); v != "" {
		return v
	}
	cfg, err := LoadConfig()
	if err == nil {
		return cfg.Display.Locale
	}
	return ""
}
