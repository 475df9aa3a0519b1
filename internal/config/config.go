package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envDevelopment = "development"
	envProduction  = "production"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env               string        `mapstructure:"APP_ENV"`
	Port              string        `mapstructure:"PORT"`
	DBPath            string        `mapstructure:"DB_PATH"`
	AdminEmail        string        `mapstructure:"ADMIN_EMAIL"`
	AdminPassword     string        `mapstructure:"ADMIN_PASSWORD"`
	InstallerEmail    string        `mapstructure:"INSTALLER_EMAIL"`
	InstallerPassword string        `mapstructure:"INSTALLER_PASSWORD"`
	SessionSecret     string        `mapstructure:"SESSION_SECRET"`
	SessionTTL        time.Duration `mapstructure:"SESSION_TTL"`
	CORSOrigins       string        `mapstructure:"CORS_ORIGINS"`
	QuoteValidityDays int           `mapstructure:"QUOTE_VALIDITY_DAYS"`
	ExpirySchedule    string        `mapstructure:"EXPIRY_SCHEDULE"`
	CatalogueFile     string        `mapstructure:"CATALOGUE_FILE"`
}

var defaults = map[string]any{
	"APP_ENV":             envDevelopment,
	"PORT":                "8080",
	"DB_PATH":             "./dev.db",
	"ADMIN_EMAIL":         "",
	"ADMIN_PASSWORD":      "",
	"INSTALLER_EMAIL":     "",
	"INSTALLER_PASSWORD":  "",
	"SESSION_SECRET":      "",
	"SESSION_TTL":         "12h",
	"CORS_ORIGINS":        "http://localhost:5173",
	"QUOTE_VALIDITY_DAYS": 30,
	"EXPIRY_SCHEDULE":     "@hourly",
	"CATALOGUE_FILE":      "./catalogue.yaml",
}

// Load reads .env (if present) and the process environment into a Config.
func Load(logger *slog.Logger) (Config, error) {
	// Local development convenience; production injects real environment.
	if err := loadDotEnv(".env"); err != nil {
		logger.Warn("could not load .env", "error", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		_ = v.BindEnv(key)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if cfg.QuoteValidityDays <= 0 {
		return Config{}, fmt.Errorf("QUOTE_VALIDITY_DAYS must be > 0")
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("SESSION_TTL must be > 0")
	}

	if cfg.AdminEmail == "" {
		logger.Warn("ADMIN_EMAIL is not set")
	}
	if cfg.AdminPassword == "" {
		logger.Warn("ADMIN_PASSWORD is not set")
	}
	if cfg.SessionSecret == "" {
		if !cfg.IsDev() {
			return Config{}, fmt.Errorf("SESSION_SECRET is required outside development")
		}
		logger.Warn("SESSION_SECRET is not set")
	}

	return cfg, nil
}

// IsDev reports whether the app runs in development mode.
func (c Config) IsDev() bool {
	return c.Env != envProduction
}

// QuoteValidity is how long a new quote stays valid.
func (c Config) QuoteValidity() time.Duration {
	return time.Duration(c.QuoteValidityDays) * 24 * time.Hour
}

// AllowedOrigins splits CORS_ORIGINS.
func (c Config) AllowedOrigins() []string {
	var out []string
	for _, origin := range strings.Split(c.CORSOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}
