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
	App          AppConfig
	Storage      StorageConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Attachments  AttachmentsConfig
	Tickets      TicketsConfig
	Directory    DirectoryConfig
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

// StorageConfig selects the key-value driver backing the persisted records.
type StorageConfig struct {
	Driver     string
	KeyPrefix  string
	SQLitePath string
	SeedDemo   bool
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
	Addrs      []string
	MasterName string
	Password   string
	DB         int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level        string
	Output       string
	FilePath     string
	MaxSizeMB    int
	MaxBackups   int
	MaxAgeDays   int
	CompressLogs bool
}

// AuthConfig defines session token parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	AllowRoleOverride     bool
}

// NotificationConfig selects and configures the notification sink.
type NotificationConfig struct {
	Driver         string
	AdminRecipient string
	EmailFrom      string
	WebhookURL     string
	WebhookTimeout time.Duration
	WebhookRetries int
	KafkaBrokers   []string
	KafkaTopic     string
	Workers        int
	QueueSize      int
}

// AttachmentsConfig configures the blob bucket holding uploaded files.
type AttachmentsConfig struct {
	BucketURL     string
	PublicBaseURL string
	MaxSizeBytes  int64
}

// TicketsConfig holds ticket lifecycle switches.
type TicketsConfig struct {
	StrictTransitions bool
}

// DirectoryConfig points at an optional YAML seed file for users.
type DirectoryConfig struct {
	SeedFile string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	webhookTimeout, err := time.ParseDuration(getEnv("NOTIFY_WEBHOOK_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFY_WEBHOOK_TIMEOUT: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Storage: StorageConfig{
			Driver:     strings.ToLower(getEnv("STORAGE_DRIVER", "memory")),
			KeyPrefix:  os.Getenv("STORAGE_KEY_PREFIX"),
			SQLitePath: getEnv("STORAGE_SQLITE_PATH", "data/helpdesk.db"),
			SeedDemo:   getEnvAsBool("STORAGE_SEED_DEMO", true),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addrs:      getEnvAsList("REDIS_ADDRS", []string{"127.0.0.1:6379"}),
			MasterName: os.Getenv("REDIS_MASTER_NAME"),
			Password:   os.Getenv("REDIS_PASSWORD"),
			DB:         redisDB,
		},
		Logger: LoggerConfig{
			Level:        getEnv("LOG_LEVEL", "info"),
			Output:       strings.ToLower(getEnv("LOG_OUTPUT", "stdout")),
			FilePath:     os.Getenv("LOG_FILE"),
			MaxSizeMB:    getEnvAsInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups:   getEnvAsInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays:   getEnvAsInt("LOG_MAX_AGE_DAYS", 28),
			CompressLogs: getEnvAsBool("LOG_COMPRESS", false),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			AllowRoleOverride:     getEnvAsBool("AUTH_ALLOW_ROLE_OVERRIDE", true),
		},
		Notification: NotificationConfig{
			Driver:         strings.ToLower(getEnv("NOTIFY_DRIVER", "log")),
			AdminRecipient: getEnv("NOTIFY_ADMIN_RECIPIENT", "admin@example.com"),
			EmailFrom:      getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL:     getEnv("NOTIFY_WEBHOOK_URL", ""),
			WebhookTimeout: webhookTimeout,
			WebhookRetries: getEnvAsInt("NOTIFY_WEBHOOK_RETRIES", 3),
			KafkaBrokers:   getEnvAsList("NOTIFY_KAFKA_BROKERS", nil),
			KafkaTopic:     getEnv("NOTIFY_KAFKA_TOPIC", "helpdesk.notifications"),
			Workers:        getEnvAsInt("NOTIFY_WORKERS", 2),
			QueueSize:      getEnvAsInt("NOTIFY_QUEUE_SIZE", 100),
		},
		Attachments: AttachmentsConfig{
			BucketURL:     getEnv("ATTACHMENTS_BUCKET_URL", "mem://"),
			PublicBaseURL: getEnv("ATTACHMENTS_PUBLIC_BASE_URL", "/attachments"),
			MaxSizeBytes:  int64(getEnvAsInt("ATTACHMENTS_MAX_SIZE_BYTES", 5*1024*1024)),
		},
		Tickets: TicketsConfig{
			StrictTransitions: getEnvAsBool("TICKETS_STRICT_TRANSITIONS", false),
		},
		Directory: DirectoryConfig{
			SeedFile: os.Getenv("DIRECTORY_SEED_FILE"),
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

// AccessTokenTTL returns the session token lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	if a.AccessTokenTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
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
