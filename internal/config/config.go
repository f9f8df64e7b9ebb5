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
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Storage      StorageConfig
	Messaging    MessagingConfig
	Assistant    AssistantConfig
	Collaborator CollaboratorConfig
	Complaints   ComplaintConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	BodyLimitMB           int
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

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines how identity provider tokens are verified.
type AuthConfig struct {
	JWTSecret  string
	JWTIssuer  string
	BcryptCost int
}

// StorageConfig points at the S3-compatible bucket holding complaint evidence.
type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	UseSSL        bool
	PublicBaseURL string
}

// MessagingConfig configures domain event fan-out.
type MessagingConfig struct {
	AMQPURL  string
	Exchange string
}

// AssistantConfig configures the upstream conversational model.
type AssistantConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	SystemPrompt   string
	TimeoutSeconds int
}

// CollaboratorConfig bounds calls to the complaint store.
type CollaboratorConfig struct {
	ReadTimeoutMS  int
	WriteTimeoutMS int
	ReadAttempts   int
}

// ComplaintConfig tunes complaint workflow behavior.
type ComplaintConfig struct {
	DuplicateRadiusMeters      float64
	AutoCloseResolvedAfterDays int
	CategoryCacheTTLSeconds    int
	IdempotencyKeyTTLHours     int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	radius, err := strconv.ParseFloat(getEnv("DUPLICATE_RADIUS_METERS", "100"), 64)
	if err != nil || radius <= 0 {
		return nil, fmt.Errorf("invalid DUPLICATE_RADIUS_METERS: %q", os.Getenv("DUPLICATE_RADIUS_METERS"))
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "civic-complaints"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			BodyLimitMB:           getEnvAsInt("HTTP_BODY_LIMIT_MB", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
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
			JWTSecret:  getEnv("AUTH_JWT_SECRET", "dev-secret"),
			JWTIssuer:  os.Getenv("AUTH_JWT_ISSUER"),
			BcryptCost: getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Storage: StorageConfig{
			Endpoint:      getEnv("STORAGE_ENDPOINT", "127.0.0.1:9000"),
			AccessKey:     os.Getenv("STORAGE_ACCESS_KEY"),
			SecretKey:     os.Getenv("STORAGE_SECRET_KEY"),
			Bucket:        getEnv("STORAGE_BUCKET", "complaint-images"),
			Region:        getEnv("STORAGE_REGION", "us-east-1"),
			UseSSL:        getEnvAsBool("STORAGE_USE_SSL", false),
			PublicBaseURL: os.Getenv("STORAGE_PUBLIC_BASE_URL"),
		},
		Messaging: MessagingConfig{
			AMQPURL:  os.Getenv("AMQP_URL"),
			Exchange: getEnv("AMQP_EXCHANGE", "civic.complaints"),
		},
		Assistant: AssistantConfig{
			BaseURL:        getEnv("ASSISTANT_BASE_URL", "https://api.groq.com/openai/v1"),
			APIKey:         os.Getenv("ASSISTANT_API_KEY"),
			Model:          getEnv("ASSISTANT_MODEL", "llama-3.3-70b-versatile"),
			SystemPrompt:   getEnv("ASSISTANT_SYSTEM_PROMPT", "You are Seva, a friendly civic assistant for Delhi. Help with waste, water, and roads. Be concise and empathetic."),
			TimeoutSeconds: getEnvAsInt("ASSISTANT_TIMEOUT_SECONDS", 120),
		},
		Collaborator: CollaboratorConfig{
			ReadTimeoutMS:  getEnvAsInt("COLLAB_READ_TIMEOUT_MS", 3000),
			WriteTimeoutMS: getEnvAsInt("COLLAB_WRITE_TIMEOUT_MS", 5000),
			ReadAttempts:   getEnvAsInt("COLLAB_READ_ATTEMPTS", 2),
		},
		Complaints: ComplaintConfig{
			DuplicateRadiusMeters:      radius,
			AutoCloseResolvedAfterDays: getEnvAsInt("AUTO_CLOSE_RESOLVED_AFTER_DAYS", 30),
			CategoryCacheTTLSeconds:    getEnvAsInt("CATEGORY_CACHE_TTL_SECONDS", 600),
			IdempotencyKeyTTLHours:     getEnvAsInt("IDEMPOTENCY_KEY_TTL_HOURS", 24),
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

// ReadTimeout bounds a single read attempt.
func (c CollaboratorConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMS) * time.Millisecond
}

// WriteTimeout bounds a write.
func (c CollaboratorConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMS) * time.Millisecond
}

// Timeout returns the upstream timeout for a single chat stream.
func (a AssistantConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// CategoryCacheTTL is how long cached categories stay valid.
func (c ComplaintConfig) CategoryCacheTTL() time.Duration {
	return time.Duration(c.CategoryCacheTTLSeconds) * time.Second
}

// IdempotencyKeyTTL is how long a submission idempotency key is remembered.
func (c ComplaintConfig) IdempotencyKeyTTL() time.Duration {
	return time.Duration(c.IdempotencyKeyTTLHours) * time.Hour
}

// AutoCloseAfter is the age past which resolved complaints are closed. Zero disables it.
func (c ComplaintConfig) AutoCloseAfter() time.Duration {
	if c.AutoCloseResolvedAfterDays <= 0 {
		return 0
	}
	return time.Duration(c.AutoCloseResolvedAfterDays) * 24 * time.Hour
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
