package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Approval      ApprovalConfig
	CORS          CORSConfig
	Log           LogConfig
	Cache         CacheConfig
	Notifications NotificationsConfig
	Deadlines     DeadlinesConfig
	Reports       ReportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// ApprovalConfig governs the customer-facing approval link tokens.
type ApprovalConfig struct {
	TokenSecret string
	TokenTTL    time.Duration
	LinkBaseURL string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig tunes the announcement detail read cache.
type CacheConfig struct {
	Enabled         bool
	AnnouncementTTL time.Duration
}

// NotificationsConfig carries web push credentials and fan-out behaviour.
// VAPID keys are injected here instead of living in package-level state.
type NotificationsConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subject         string
	PushTTL         int
	Concurrency     int
}

// DeadlinesConfig controls the approval deadline watcher job.
type DeadlinesConfig struct {
	Enabled  bool
	CronSpec string
}

// ReportsConfig governs the report archive and its signed download links.
type ReportsConfig struct {
	Dir             string
	SigningSecret   string
	LinkBaseURL     string
	LinkTTL         time.Duration
	RetentionTTL    time.Duration
	CleanupCronSpec string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.Approval = ApprovalConfig{
		TokenSecret: v.GetString("APPROVAL_TOKEN_SECRET"),
		TokenTTL:    parseDuration(v.GetString("APPROVAL_TOKEN_TTL"), 30*24*time.Hour),
		LinkBaseURL: v.GetString("APPROVAL_LINK_BASE_URL"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled:         v.GetBool("ENABLE_CACHE"),
		AnnouncementTTL: parseDuration(v.GetString("ANNOUNCEMENT_CACHE_TTL"), 5*time.Minute),
	}

	concurrency := v.GetInt("PUSH_CONCURRENCY")
	if concurrency <= 0 {
		concurrency = 4
	}
	cfg.Notifications = NotificationsConfig{
		VAPIDPublicKey:  v.GetString("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: v.GetString("VAPID_PRIVATE_KEY"),
		Subject:         v.GetString("VAPID_SUBJECT"),
		PushTTL:         v.GetInt("PUSH_TTL"),
		Concurrency:     concurrency,
	}

	cfg.Deadlines = DeadlinesConfig{
		Enabled:  v.GetBool("ENABLE_DEADLINE_WATCHER"),
		CronSpec: v.GetString("DEADLINE_CRON_SPEC"),
	}

	cfg.Reports = ReportsConfig{
		Dir:             v.GetString("REPORTS_DIR"),
		SigningSecret:   v.GetString("REPORTS_SIGNING_SECRET"),
		LinkBaseURL:     v.GetString("REPORTS_LINK_BASE_URL"),
		LinkTTL:         parseDuration(v.GetString("REPORTS_LINK_TTL"), 24*time.Hour),
		RetentionTTL:    parseDuration(v.GetString("REPORTS_RETENTION_TTL"), 72*time.Hour),
		CleanupCronSpec: v.GetString("REPORTS_CLEANUP_CRON_SPEC"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "opswindow")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "opswindow-api")

	v.SetDefault("APPROVAL_TOKEN_SECRET", "dev_approval_secret")
	v.SetDefault("APPROVAL_TOKEN_TTL", "720h")
	v.SetDefault("APPROVAL_LINK_BASE_URL", "http://localhost:8080")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("ANNOUNCEMENT_CACHE_TTL", "5m")

	v.SetDefault("VAPID_PUBLIC_KEY", "")
	v.SetDefault("VAPID_PRIVATE_KEY", "")
	v.SetDefault("VAPID_SUBJECT", "mailto:ops@opswindow.dev")
	v.SetDefault("PUSH_TTL", 86400)
	v.SetDefault("PUSH_CONCURRENCY", 4)

	v.SetDefault("ENABLE_DEADLINE_WATCHER", false)
	v.SetDefault("DEADLINE_CRON_SPEC", "@every 5m")

	v.SetDefault("REPORTS_DIR", "./reports")
	v.SetDefault("REPORTS_SIGNING_SECRET", "dev_reports_secret")
	v.SetDefault("REPORTS_LINK_BASE_URL", "http://localhost:8080")
	v.SetDefault("REPORTS_LINK_TTL", "24h")
	v.SetDefault("REPORTS_RETENTION_TTL", "72h")
	v.SetDefault("REPORTS_CLEANUP_CRON_SPEC", "@every 1h")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
