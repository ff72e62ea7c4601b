package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr               string
	DatabaseURL        string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	JWTSecret          string
	DataEncryptionKey  string
	FrontendDir        string
	Environment        string
	LogLevel           string
	PublicBaseURL      string
	SeedAdminEmail     string
	SeedAdminPassword  string
	SeedAdminName      string
	AllowSelfSignup    bool
	EmailFrom          string
	EmailEnabled       bool
	SMTPHost           string
	SMTPPort           int
	SMTPUser           string
	SMTPPassword       string
	SMTPUseTLS         bool
	ImageHostURL       string
	ImageHostAPIKey    string
	ImageMaxBytes      int64
	RunMigrations      bool
	MigrationsDir      string
	RunSeed            bool
	MaxBodyBytes       int64
	RateLimitPerMinute int
	DashboardCacheTTL  time.Duration
	SessionTTL         time.Duration
	PurgeInterval      time.Duration
	MetricsEnabled     bool
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:               getEnv("APP_ADDR", ":8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		DataEncryptionKey:  getEnv("DATA_ENCRYPTION_KEY", ""),
		FrontendDir:        getEnv("FRONTEND_DIR", "frontend/dist"),
		Environment:        getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		PublicBaseURL:      getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		SeedAdminEmail:     getEnv("SEED_ADMIN_EMAIL", ""),
		SeedAdminPassword:  getEnv("SEED_ADMIN_PASSWORD", ""),
		SeedAdminName:      getEnv("SEED_ADMIN_NAME", "Administrator"),
		AllowSelfSignup:    getEnvBool("ALLOW_SELF_SIGNUP", true),
		EmailFrom:          getEnv("EMAIL_FROM", "no-reply@example.com"),
		EmailEnabled:       getEnvBool("EMAIL_ENABLED", false),
		SMTPHost:           getEnv("SMTP_HOST", ""),
		SMTPPort:           getEnvInt("SMTP_PORT", 587),
		SMTPUser:           getEnv("SMTP_USER", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:         getEnvBool("SMTP_USE_TLS", true),
		ImageHostURL:       getEnv("IMAGE_HOST_URL", "https://api.imgbb.com/1/upload"),
		ImageHostAPIKey:    getEnv("IMAGE_HOST_API_KEY", ""),
		ImageMaxBytes:      int64(getEnvInt("IMAGE_MAX_BYTES", 5*1024*1024)),
		RunMigrations:      getEnvBool("RUN_MIGRATIONS", true),
		MigrationsDir:      getEnv("MIGRATIONS_DIR", "migrations"),
		RunSeed:            getEnvBool("RUN_SEED", true),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		DashboardCacheTTL:  getEnvDuration("DASHBOARD_CACHE_TTL", 30*time.Second),
		SessionTTL:         getEnvDuration("SESSION_TTL", 8*time.Hour),
		PurgeInterval:      getEnvDuration("PURGE_INTERVAL", time.Hour),
		MetricsEnabled:     getEnvBool("METRICS_ENABLED", true),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.IsProduction() {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if strings.TrimSpace(c.DataEncryptionKey) == "" {
			return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production for encryption at rest")
		}
		if c.RunSeed && strings.TrimSpace(c.SeedAdminPassword) == "" {
			return fmt.Errorf("SEED_ADMIN_PASSWORD must be changed or RUN_SEED disabled in production")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.ImageMaxBytes <= 0 {
		return fmt.Errorf("IMAGE_MAX_BYTES must be positive")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	return nil
}
