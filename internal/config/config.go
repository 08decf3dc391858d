package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Tickets  TicketsConfig
	Storage  StorageConfig
	Events   EventsConfig
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
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token verification parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// TicketsConfig holds ticket command limits.
type TicketsConfig struct {
	ReplyMaxFiles   int
	CreateMaxFiles  int
	ConflictRetries int
}

// StorageConfig selects the file storage collaborator.
type StorageConfig struct {
	// Backend is "postgres" or "object".
	Backend        string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3UseSSL       bool
	ClaimKeyPrefix string
}

// EventsConfig selects where lifecycle events are published.
type EventsConfig struct {
	// Backends is any combination of "log", "redis" and "kafka".
	Backends        []string
	RedisChannel    string
	KafkaBrokers    []string
	KafkaTopic      string
	QueueSize       int
	DeliveryTimeout time.Duration
	EmailFrom       string
	WebhookURL      string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Tickets: TicketsConfig{
			ReplyMaxFiles:   getEnvAsInt("TICKET_REPLY_MAX_FILES", 3),
			CreateMaxFiles:  getEnvAsInt("TICKET_CREATE_MAX_FILES", 10),
			ConflictRetries: getEnvAsInt("TICKET_CONFLICT_RETRIES", 5),
		},
		Storage: StorageConfig{
			Backend:        getEnv("FILES_BACKEND", "postgres"),
			S3Endpoint:     os.Getenv("S3_ENDPOINT"),
			S3AccessKey:    os.Getenv("S3_ACCESS_KEY"),
			S3SecretKey:    os.Getenv("S3_SECRET_KEY"),
			S3Bucket:       getEnv("S3_BUCKET", "helpdesk-uploads"),
			S3UseSSL:       getEnvAsBool("S3_USE_SSL", true),
			ClaimKeyPrefix: getEnv("FILES_CLAIM_PREFIX", "helpdesk:file-claim:"),
		},
		Events: EventsConfig{
			Backends:        getEnvAsList("EVENTS_BACKENDS", []string{"log"}),
			RedisChannel:    getEnv("EVENTS_REDIS_CHANNEL", "helpdesk.ticket-events"),
			KafkaBrokers:    getEnvAsList("EVENTS_KAFKA_BROKERS", nil),
			KafkaTopic:      getEnv("EVENTS_KAFKA_TOPIC", "helpdesk.ticket-events"),
			QueueSize:       getEnvAsInt("EVENTS_QUEUE_SIZE", 256),
			DeliveryTimeout: time.Duration(getEnvAsInt("EVENTS_DELIVERY_TIMEOUT_SECONDS", 5)) * time.Second,
			EmailFrom:       getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL:      getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "postgres", "object":
	default:
		return fmt.Errorf("invalid FILES_BACKEND %q", c.Storage.Backend)
	}
	for _, backend := range c.Events.Backends {
		switch backend {
		case "log", "redis", "kafka":
		default:
			return fmt.Errorf("invalid EVENTS_BACKENDS entry %q", backend)
		}
	}
	if c.Tickets.ReplyMaxFiles < 0 || c.Tickets.CreateMaxFiles < 0 {
		return fmt.Errorf("file limits must not be negative")
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

// HasBackend reports whether name is among the configured event backends.
func (e EventsConfig) HasBackend(name string) bool {
	for _, b := range e.Backends {
		if b == name {
			return true
		}
	}
	return false
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

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
