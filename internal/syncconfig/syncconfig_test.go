package syncconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeTestConfig points SUTRA_CONFIG_DIR at a temp dir holding cfg.
func writeTestConfig(t *testing.T, cfg *Config) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SUTRA_CONFIG_DIR", dir)
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func boolPtr(b bool) *bool { return &b }

func TestServerURLDefault(t *testing.T) {
	t.Setenv("SUTRA_CONFIG_DIR", t.TempDir())
	t.Setenv("SUTRA_SERVER_URL", "")

	if got := GetServerURL(); got != defaultServerURL {
		t.Fatalf("default url: got %q, want %q", got, defaultServerURL)
	}
}

func TestServerURLEnvOverridesConfig(t *testing.T) {
	writeTestConfig(t, &Config{Sync: SyncConfig{URL: "https://from-config"}})
	t.Setenv("SUTRA_SERVER_URL", "https://from-env")

	if got := GetServerURL(); got != "https://from-env" {
		t.Fatalf("env override: got %q", got)
	}
}

func TestServerURLFromConfig(t *testing.T) {
	writeTestConfig(t, &Config{Sync: SyncConfig{URL: "https://from-config"}})
	t.Setenv("SUTRA_SERVER_URL", "")

	if got := GetServerURL(); got != "https://from-config" {
		t.Fatalf("config url: got %q", got)
	}
}

func TestSyncEnabled(t *testing.T) {
	writeTestConfig(t, &Config{Sync: SyncConfig{Enabled: boolPtr(false)}})
	t.Setenv("SUTRA_SYNC", "")
	if GetSyncEnabled() {
		t.Error("expected sync disabled from config")
	}

	// Config says disabled, env says enabled; env wins.
	t.Setenv("SUTRA_SYNC", "1")
	if !GetSyncEnabled() {
		t.Error("env should override config")
	}

	// Garbage falls through to config.
	t.Setenv("SUTRA_SYNC", "maybe")
	if GetSyncEnabled() {
		t.Error("invalid env should fall through to config")
	}
}

func TestRequestTimeout(t *testing.T) {
	writeTestConfig(t, &Config{Sync: SyncConfig{Timeout: "3s"}})
	t.Setenv("SUTRA_SYNC_TIMEOUT", "")
	if d := GetRequestTimeout(); d != 3*time.Second {
		t.Errorf("expected 3s from config, got %v", d)
	}

	t.Setenv("SUTRA_SYNC_TIMEOUT", "-1s")
	if d := GetRequestTimeout(); d != 3*time.Second {
		t.Errorf("negative env should fall through, got %v", d)
	}

	t.Setenv("SUTRA_SYNC_TIMEOUT", "250ms")
	if d := GetRequestTimeout(); d != 250*time.Millisecond {
		t.Errorf("expected env value, got %v", d)
	}
}

func TestLocale(t *testing.T) {
	writeTestConfig(t, &Config{Display: DisplayConfig{Locale: "da-DK"}})
	t.Setenv("SUTRA_LOCALE", "")
	if got := GetLocale(); got != "da-DK" {
		t.Errorf("config locale: got %q", got)
	}
	t.Setenv("SUTRA_LOCALE", "en-US")
	if got := GetLocale(); got != "en-US" {
		t.Errorf("env locale: got %q", got)
	}
}

func TestAuthRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SUTRA_CONFIG_DIR", dir)
	t.Setenv("SUTRA_AUTH_KEY", "")

	creds, err := LoadAuth()
	if err != nil || creds != nil {
		t.Fatalf("expected no creds, got %v, %v", creds, err)
	}
	if IsAuthenticated() {
		t.Fatal("should not be authenticated")
	}

	if err := SaveAuth(&AuthCredentials{APIKey: "sk-1", UserID: "u1", Email: "a@b.c"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, "auth.json"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("auth.json perms: got %o, want 600", info.Mode().Perm())
	}
	if got := GetAPIKey(); got != "sk-1" {
		t.Errorf("api key: got %q", got)
	}

	if err := ClearAuth(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := ClearAuth(); err != nil {
		t.Fatalf("clear twice: %v", err)
	}
	if IsAuthenticated() {
		t.Fatal("should be logged out")
	}
}

func TestDataDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SUTRA_CONFIG_DIR", dir)
	got, err := DataDir()
	if err != nil {
		t.Fatalf("data dir: %v", err)
	}
	if got != filepath.Join(dir, "data") {
		t.Errorf("got %q", got)
	}
}
