package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// chdir changes the working directory for the duration of the test
// (equivalent to testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}

// unset clears key for the duration of the test.
func unset(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unset %s: %v", key, err)
	}
}

func TestLoadDotEnv_LoadsValuesAndIgnoresNoise(t *testing.T) {
	unset(t, "A")
	unset(t, "B")
	unset(t, "C")

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := []byte(`
# comment

A=one
export B=two
C="three"
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}

	if got := os.Getenv("A"); got != "one" {
		t.Fatalf("A=%q, want %q", got, "one")
	}
	if got := os.Getenv("B"); got != "two" {
		t.Fatalf("B=%q, want %q", got, "two")
	}
	if got := os.Getenv("C"); got != "three" {
		t.Fatalf("C=%q, want %q", got, "three")
	}
}

func TestLoadDotEnv_DoesNotOverwriteExistingEnv(t *testing.T) {
	t.Setenv("KEEP", "already")

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("KEEP=fromfile\n"), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}

	if got := os.Getenv("KEEP"); got != "already" {
		t.Fatalf("KEEP=%q, want %q", got, "already")
	}
}

func TestLoadDotEnv_MissingFileIsIgnored(t *testing.T) {
	if err := loadDotEnv(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	for key := range defaults {
		unset(t, key)
	}

	cfg, err := Load(discardLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" || cfg.DBPath != "./dev.db" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.IsDev() {
		t.Fatalf("expected development mode by default")
	}
	if cfg.QuoteValidity() != 30*24*time.Hour {
		t.Fatalf("QuoteValidity=%v", cfg.QuoteValidity())
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Fatalf("SessionTTL=%v", cfg.SessionTTL)
	}
	if cfg.ExpirySchedule != "@hourly" {
		t.Fatalf("ExpirySchedule=%q", cfg.ExpirySchedule)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("APP_ENV", "production")
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("QUOTE_VALIDITY_DAYS", "14")
	t.Setenv("CORS_ORIGINS", "https://app.example.com, https://admin.example.com ,")

	cfg, err := Load(discardLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.IsDev() {
		t.Fatalf("expected production mode")
	}
	if cfg.Port != "9090" {
		t.Fatalf("Port=%q", cfg.Port)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("SessionTTL=%v", cfg.SessionTTL)
	}
	if cfg.QuoteValidityDays != 14 {
		t.Fatalf("QuoteValidityDays=%d", cfg.QuoteValidityDays)
	}
	origins := cfg.AllowedOrigins()
	if len(origins) != 2 || origins[0] != "https://app.example.com" || origins[1] != "https://admin.example.com" {
		t.Fatalf("AllowedOrigins=%v", origins)
	}
}

func TestLoad_ProductionRequiresSessionSecret(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("APP_ENV", "production")
	unset(t, "SESSION_SECRET")

	if _, err := Load(discardLogger()); err == nil {
		t.Fatalf("expected error without SESSION_SECRET in production")
	}
}

func TestLoad_ReadsDotEnvInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	unset(t, "PORT")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=7070\n"), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("PORT") })

	cfg, err := Load(discardLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "7070" {
		t.Fatalf("Port=%q, want 7070", cfg.Port)
	}
}
