package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// CompanyFallback selects which approval levels apply to a company ticket.
type CompanyFallback string

const (
	// FallbackSpecificThenDefault uses company levels when the company has any, default levels otherwise.
	FallbackSpecificThenDefault CompanyFallback = "specific_then_default"
	// FallbackDefaultOnly ignores company levels.
	FallbackDefaultOnly CompanyFallback = "default_only"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Workflow     WorkflowConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values. An empty DSN selects the in-memory store.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr             string
	Password         string
	DB               int
	LevelCacheTTLSec int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// WorkflowConfig holds the ticket workflow policies.
type WorkflowConfig struct {
	CompanyFallback             CompanyFallback
	FinishRequiresAssistsClosed bool
	ReportTimezone              string
	DefaultPageSize             int
	MaxPageSize                 int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from .env, the optional CONFIG_FILE and the environment,
// in increasing order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  v.GetString("APP_NAME"),
			Env:                   v.GetString("APP_ENV"),
			Host:                  v.GetString("APP_HOST"),
			Port:                  v.GetString("APP_PORT"),
			Version:               v.GetString("APP_VERSION"),
			RequestTimeoutSeconds: v.GetInt("HTTP_REQUEST_TIMEOUT_SECONDS"),
		},
		Postgres: PostgresConfig{
			DSN:            v.GetString("POSTGRES_DSN"),
			MaxConns:       v.GetInt32("POSTGRES_MAX_CONNS"),
			MinConns:       v.GetInt32("POSTGRES_MIN_CONNS"),
			RunMigrations:  v.GetBool("POSTGRES_RUN_MIGRATIONS"),
			MigrationsDir:  v.GetString("POSTGRES_MIGRATIONS_DIR"),
			ConnMaxIdleSec: v.GetInt32("POSTGRES_CONN_MAX_IDLE_SECONDS"),
			ConnMaxLifeSec: v.GetInt32("POSTGRES_CONN_MAX_LIFE_SECONDS"),
		},
		Redis: RedisConfig{
			Addr:             v.GetString("REDIS_ADDR"),
			Password:         v.GetString("REDIS_PASSWORD"),
			DB:               v.GetInt("REDIS_DB"),
			LevelCacheTTLSec: v.GetInt("REDIS_LEVEL_CACHE_TTL_SECONDS"),
		},
		Logger: LoggerConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		Auth: AuthConfig{
			JWTSecret:             v.GetString("AUTH_JWT_SECRET"),
			AccessTokenTTLMinutes: v.GetInt("AUTH_ACCESS_TOKEN_TTL_MINUTES"),
		},
		Workflow: WorkflowConfig{
			CompanyFallback:             CompanyFallback(strings.ToLower(v.GetString("WORKFLOW_COMPANY_FALLBACK"))),
			FinishRequiresAssistsClosed: v.GetBool("WORKFLOW_FINISH_REQUIRES_ASSISTS_CLOSED"),
			ReportTimezone:              v.GetString("WORKFLOW_REPORT_TIMEZONE"),
			DefaultPageSize:             v.GetInt("WORKFLOW_DEFAULT_PAGE_SIZE"),
			MaxPageSize:                 v.GetInt("WORKFLOW_MAX_PAGE_SIZE"),
		},
		Notification: NotificationConfig{
			EmailFrom:  v.GetString("NOTIFY_EMAIL_FROM"),
			WebhookURL: v.GetString("NOTIFY_WEBHOOK_URL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "expense-ticket-service")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_HOST", "0.0.0.0")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_VERSION", "dev")
	v.SetDefault("HTTP_REQUEST_TIMEOUT_SECONDS", 30)

	v.SetDefault("POSTGRES_DSN", "")
	v.SetDefault("POSTGRES_MAX_CONNS", 10)
	v.SetDefault("POSTGRES_MIN_CONNS", 2)
	v.SetDefault("POSTGRES_RUN_MIGRATIONS", true)
	v.SetDefault("POSTGRES_MIGRATIONS_DIR", "migrations")
	v.SetDefault("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)
	v.SetDefault("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)

	v.SetDefault("REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_LEVEL_CACHE_TTL_SECONDS", 300)

	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("AUTH_JWT_SECRET", "dev-secret")
	v.SetDefault("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60)

	v.SetDefault("WORKFLOW_COMPANY_FALLBACK", string(FallbackSpecificThenDefault))
	v.SetDefault("WORKFLOW_FINISH_REQUIRES_ASSISTS_CLOSED", false)
	v.SetDefault("WORKFLOW_REPORT_TIMEZONE", "UTC")
	v.SetDefault("WORKFLOW_DEFAULT_PAGE_SIZE", 20)
	v.SetDefault("WORKFLOW_MAX_PAGE_SIZE", 100)

	v.SetDefault("NOTIFY_EMAIL_FROM", "noreply@example.com")
	v.SetDefault("NOTIFY_WEBHOOK_URL", "")
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch c.Workflow.CompanyFallback {
	case FallbackSpecificThenDefault, FallbackDefaultOnly:
	default:
		return fmt.Errorf("invalid WORKFLOW_COMPANY_FALLBACK %q", c.Workflow.CompanyFallback)
	}
	if _, err := c.Workflow.Location(); err != nil {
		return fmt.Errorf("invalid WORKFLOW_REPORT_TIMEZONE: %w", err)
	}
	if c.Workflow.DefaultPageSize <= 0 || c.Workflow.MaxPageSize < c.Workflow.DefaultPageSize {
		return fmt.Errorf("invalid page sizes: default %d, max %d", c.Workflow.DefaultPageSize, c.Workflow.MaxPageSize)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET must not be empty")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// LevelCacheTTL returns how long approval levels stay cached.
func (r RedisConfig) LevelCacheTTL() time.Duration {
	return time.Duration(r.LevelCacheTTLSec) * time.Second
}

// Location resolves the timezone report dates are interpreted in.
func (w WorkflowConfig) Location() (*time.Location, error) {
	if w.ReportTimezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(w.ReportTimezone)
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		App:    AppConfig{Name: "expense-ticket-service", Env: "development", Host: "0.0.0.0", Port: "8080", Version: "dev"},
		Logger: LoggerConfig{Level: "info"},
		Auth:   AuthConfig{JWTSecret: "dev-secret", AccessTokenTTLMinutes: 60},
		Workflow: WorkflowConfig{
			CompanyFallback: FallbackSpecificThenDefault,
			ReportTimezone:  "UTC",
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
	}
}
