package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var keys = []string{
	"APP_ENV", "PORT", "STORAGE", "DB_PATH", "MONGODB_URI", "MONGODB_DB",
	"JWT_SECRET", "ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL", "CORS_ORIGIN",
	"GEMINI_API_KEY", "GEMINI_MODEL", "REMINDER_SCHEDULE", "DEFAULT_CURRENCY",
}

// clearEnv blanks every config key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Storage != StorageSQLite {
		t.Errorf("Storage = %q, want sqlite", cfg.Storage)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Errorf("AccessTokenTTL = %v", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 168*time.Hour {
		t.Errorf("RefreshTokenTTL = %v", cfg.RefreshTokenTTL)
	}
	if cfg.DefaultCurrency != "INR" {
		t.Errorf("DefaultCurrency = %q", cfg.DefaultCurrency)
	}
	if cfg.JWTSecret == "" {
		t.Error("development config should get a fallback secret")
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	content := strings.Join([]string{
		"PORT=9090",
		"STORAGE=mongo",
		"MONGODB_DB=finwise_test",
		"ACCESS_TOKEN_TTL=5m",
		"DEFAULT_CURRENCY=usd",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	// Real environment takes precedence over the file.
	t.Setenv("PORT", "7070")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Port != "7070" {
		t.Errorf("Port = %q, want 7070", cfg.Port)
	}
	if cfg.Storage != StorageMongo || cfg.MongoDB != "finwise_test" {
		t.Errorf("unexpected storage config: %q %q", cfg.Storage, cfg.MongoDB)
	}
	if cfg.AccessTokenTTL != 5*time.Minute {
		t.Errorf("AccessTokenTTL = %v", cfg.AccessTokenTTL)
	}
	if cfg.DefaultCurrency != "USD" {
		t.Errorf("DefaultCurrency = %q", cfg.DefaultCurrency)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown storage", map[string]string{"STORAGE": "postgres"}},
		{"bad duration", map[string]string{"ACCESS_TOKEN_TTL": "soon"}},
		{"missing secret in production", map[string]string{"APP_ENV": "production"}},
		{"short secret in production", map[string]string{"APP_ENV": "production", "JWT_SECRET": "short"}},
		{"bad currency", map[string]string{"DEFAULT_CURRENCY": "RUPEE"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.env")); err == nil {
				t.Error("expected error")
			}
		})
	}
}
