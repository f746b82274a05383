// Package config loads the ledger settings from the environment, reading a
// .env file first when one is present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"

	"github.com/goliatone/go-expense-ledger/cache"
	"github.com/goliatone/go-expense-ledger/internal/logger"
)

// Store backends.
const (
	StoreMemory    = "memory"
	StoreSQL       = "sql"
	StoreFirestore = "firestore"
)

// Settings backends.
const (
	SettingsFile  = "file"
	SettingsRedis = "redis"
)

type Config struct {
	Server   ServerConfig
	Firebase FirebaseConfig
	Store    StoreConfig
	Cache    CacheConfig
	Query    QueryConfig
	Settings SettingsConfig
	Auth     AuthConfig
	Export   ExportConfig
	App      AppConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsPath string
}

type StoreConfig struct {
	Backend   string
	SQLDriver string
	SQLDSN    string
}

type CacheConfig struct {
	Capacity int
	TTL      time.Duration
}

type QueryConfig struct {
	StaleTime time.Duration
}

type SettingsConfig struct {
	Backend   string
	Path      string
	RedisAddr string
	RedisKey  string
}

type AuthConfig struct {
	// OwnerEmail may manage allowed users and skips the allow list.
	OwnerEmail string
}

type ExportConfig struct {
	CurrencySymbol string
}

type AppConfig struct {
	Environment string
	LogLevel    string
}

// Load reads the given env files, or .env when none is named, then builds
// and validates the configuration. A missing env file is not an error;
// variables already set in the process win over the file.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds the configuration from process variables without
// validating it. Unparsable numbers and durations are reported together.
func FromEnv() (*Config, error) {
	var env envReader

	cfg := &Config{
		Server: ServerConfig{
			Port:           env.str("PORT", "8080"),
			AllowedOrigins: env.list("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Firebase: FirebaseConfig{
			ProjectID:       env.str("FIREBASE_PROJECT_ID", ""),
			CredentialsPath: env.str("FIREBASE_CREDENTIALS_PATH", ""),
		},
		Store: StoreConfig{
			Backend:   env.str("STORE_BACKEND", StoreMemory),
			SQLDriver: env.str("SQL_DRIVER", "sqlite3"),
			SQLDSN:    env.str("SQL_DSN", "file:ledger.db?cache=shared"),
		},
		Cache: CacheConfig{
			Capacity: env.int("CACHE_CAPACITY", 10000),
			TTL:      env.duration("CACHE_TTL", 5*time.Minute),
		},
		Query: QueryConfig{
			StaleTime: env.duration("QUERY_STALE_TIME", 30*time.Second),
		},
		Settings: SettingsConfig{
			Backend:   env.str("SETTINGS_BACKEND", SettingsFile),
			Path:      env.str("SETTINGS_PATH", "./data/settings.json"),
			RedisAddr: env.str("REDIS_ADDR", "localhost:6379"),
			RedisKey:  env.str("SETTINGS_REDIS_KEY", "ledger:settings"),
		},
		Auth: AuthConfig{
			OwnerEmail: env.str("OWNER_EMAIL", ""),
		},
		Export: ExportConfig{
			CurrencySymbol: env.str("EXPORT_CURRENCY_SYMBOL", "₦"),
		},
		App: AppConfig{
			Environment: env.str("APP_ENV", "development"),
			LogLevel:    env.str("LOG_LEVEL", "info"),
		},
	}

	if err := env.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting in one error.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Server.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Server.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StoreSQL:
		if c.Store.SQLDriver != "sqlite3" && c.Store.SQLDriver != "postgres" {
			errs = append(errs, fmt.Sprintf("invalid SQL driver '%s': must be sqlite3 or postgres", c.Store.SQLDriver))
		}
		if c.Store.SQLDSN == "" {
			errs = append(errs, "SQL_DSN is required when STORE_BACKEND is sql")
		}
	case StoreFirestore:
		if c.Firebase.ProjectID == "" {
			errs = append(errs, "FIREBASE_PROJECT_ID is required when STORE_BACKEND is firestore")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid store backend '%s': must be one of %v", c.Store.Backend, []string{StoreMemory, StoreSQL, StoreFirestore}))
	}

	if c.Cache.Capacity < 1 {
		errs = append(errs, fmt.Sprintf("invalid cache capacity %d: must be positive", c.Cache.Capacity))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, fmt.Sprintf("invalid cache TTL %s: must be positive", c.Cache.TTL))
	}
	if c.Query.StaleTime < 0 {
		errs = append(errs, fmt.Sprintf("invalid query stale time %s: must not be negative", c.Query.StaleTime))
	}

	switch c.Settings.Backend {
	case SettingsFile:
		if c.Settings.Path == "" {
			errs = append(errs, "SETTINGS_PATH is required when SETTINGS_BACKEND is file")
		}
	case SettingsRedis:
		if c.Settings.RedisAddr == "" {
			errs = append(errs, "REDIS_ADDR is required when SETTINGS_BACKEND is redis")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid settings backend '%s': must be file or redis", c.Settings.Backend))
	}

	if c.Auth.OwnerEmail != "" {
		if err := is.EmailFormat.Validate(c.Auth.OwnerEmail); err != nil {
			errs = append(errs, fmt.Sprintf("invalid owner email '%s': %v", c.Auth.OwnerEmail, err))
		}
	}

	if !logger.ValidLevel(c.App.LogLevel) {
		errs = append(errs, fmt.Sprintf("invalid log level '%s'", c.App.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// CacheService maps the cache settings onto the profile cache defaults.
func (c CacheConfig) CacheService() cache.Config {
	cfg := cache.DefaultConfig()
	cfg.Capacity = c.Capacity
	cfg.TTL = c.TTL
	return cfg
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

type envReader struct {
	errs []string
}

func (r *envReader) str(key, def string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return def
}

func (r *envReader) int(key string, def int) int {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("invalid integer for %s: '%s'", key, raw))
		return def
	}
	return value
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("invalid duration for %s: '%s'", key, raw))
		return def
	}
	return value
}

func (r *envReader) list(key string, def []string) []string {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (r *envReader) err() error {
	if len(r.errs) == 0 {
		return nil
	}
	return fmt.Errorf("configuration parse failed: %s", strings.Join(r.errs, "; "))
}
