package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	LLM      LLMConfig
	Notify   NotifyConfig
	Business BusinessConfig
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

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior. Format is "json" or
// "console"; anything else falls back to json.
type LoggerConfig struct {
	Level  string
	Format string
}

// LLMConfig points at the AI classification/generation service.
type LLMConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	TimeoutSeconds int
}

// NotifyConfig holds the outbound notification channel endpoint.
type NotifyConfig struct {
	WebhookURL     string
	TimeoutSeconds int
}

// BusinessConfig carries tunable routing parameters. Changing any of
// these requires no code change.
type BusinessConfig struct {
	TicketPrefix          string
	DedupWindowDays       int
	AggregationThreshold  int
	AggregationWindowDays int
	SLAWarningFraction    float64
	ScriptTimeoutSeconds  int
	PipelineWorkers       int
	PipelineQueueSize     int
	TaxonomyReloadSpec    string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	warning, err := strconv.ParseFloat(getEnv("SLA_WARNING_FRACTION", "0.25"), 64)
	if err != nil || warning <= 0 || warning >= 1 {
		return nil, fmt.Errorf("invalid SLA_WARNING_FRACTION")
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "feedback-engine"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		LLM: LLMConfig{
			BaseURL:        getEnv("LLM_BASE_URL", ""),
			APIKey:         os.Getenv("LLM_API_KEY"),
			Model:          getEnv("LLM_MODEL", "gpt-4o-mini"),
			TimeoutSeconds: getEnvAsInt("LLM_TIMEOUT_SECONDS", 12),
		},
		Notify: NotifyConfig{
			WebhookURL:     getEnv("NOTIFY_WEBHOOK_URL", ""),
			TimeoutSeconds: getEnvAsInt("NOTIFY_TIMEOUT_SECONDS", 10),
		},
		Business: BusinessConfig{
			TicketPrefix:          getEnv("TICKET_PREFIX", "FBK"),
			DedupWindowDays:       getEnvAsInt("DEDUP_WINDOW_DAYS", 30),
			AggregationThreshold:  getEnvAsInt("AGGREGATION_THRESHOLD", 5),
			AggregationWindowDays: getEnvAsInt("AGGREGATION_WINDOW_DAYS", 30),
			SLAWarningFraction:    warning,
			ScriptTimeoutSeconds:  getEnvAsInt("SCRIPT_TIMEOUT_SECONDS", 20),
			PipelineWorkers:       getEnvAsInt("PIPELINE_WORKERS", 4),
			PipelineQueueSize:     getEnvAsInt("PIPELINE_QUEUE_SIZE", 256),
			TaxonomyReloadSpec:    getEnv("TAXONOMY_RELOAD_CRON", "@every 15m"),
		},
	}

	return cfg, nil
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

// Timeout returns the LLM call deadline.
func (l LLMConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// Timeout returns the notification push deadline.
func (n NotifyConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSeconds) * time.Second
}

// DedupWindow returns the trailing dedup window.
func (b BusinessConfig) DedupWindow() time.Duration {
	return time.Duration(b.DedupWindowDays) * 24 * time.Hour
}

// AggregationWindow returns the trailing aggregation window.
func (b BusinessConfig) AggregationWindow() time.Duration {
	return time.Duration(b.AggregationWindowDays) * 24 * time.Hour
}

// ScriptTimeout bounds AI script generation.
func (b BusinessConfig) ScriptTimeout() time.Duration {
	return time.Duration(b.ScriptTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
