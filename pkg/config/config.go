package config

import (
	"errors"
	"io/fs"
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

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Calendar CalendarConfig
	Cache    CacheConfig
	Push     PushConfig
	Digest   DigestConfig
	Feeds    FeedConfig
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
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled  bool
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

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CalendarConfig tunes occurrence expansion.
type CalendarConfig struct {
	Timezone       string
	MaxOccurrences int
	LookBackDays   int
	LookAheadDays  int
	UnknownRules   string
}

// Location resolves Timezone, falling back to the process location.
func (c CalendarConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// CacheConfig governs the expanded-occurrence cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// PushConfig carries the public half of the VAPID key pair and the outbox
// the delivery worker drains.
type PushConfig struct {
	VAPIDPublicKey string
	OutboxKey      string
}

// Configured reports whether browsers can subscribe at all.
func (p PushConfig) Configured() bool {
	return p.VAPIDPublicKey != ""
}

// DigestConfig schedules the morning and evening digests.
type DigestConfig struct {
	Enabled     bool
	MorningCron string
	EveningCron string
	Workers     int
	MaxRetries  int
	RetryDelay  time.Duration
	QueueBuffer int
	RunTimeout  time.Duration
}

// FeedConfig controls signed iCalendar subscription links.
type FeedConfig struct {
	SigningSecret string
	TTL           time.Duration
	// PublicBaseURL prefixes issued feed links, e.g. https://calendar.example.com.
	PublicBaseURL string
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
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
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 30*24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Calendar = CalendarConfig{
		Timezone:       v.GetString("CALENDAR_TIMEZONE"),
		MaxOccurrences: v.GetInt("CALENDAR_MAX_OCCURRENCES"),
		LookBackDays:   v.GetInt("CALENDAR_LOOKBACK_DAYS"),
		LookAheadDays:  v.GetInt("CALENDAR_LOOKAHEAD_DAYS"),
		UnknownRules:   strings.ToLower(v.GetString("CALENDAR_UNKNOWN_RULES")),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("EVENTS_CACHE_ENABLED"),
		TTL:     parseDuration(v.GetString("EVENTS_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Push = PushConfig{
		VAPIDPublicKey: v.GetString("VAPID_PUBLIC_KEY"),
		OutboxKey:      v.GetString("PUSH_OUTBOX_KEY"),
	}

	cfg.Digest = DigestConfig{
		Enabled:     v.GetBool("DIGEST_ENABLED"),
		MorningCron: v.GetString("DIGEST_MORNING_CRON"),
		EveningCron: v.GetString("DIGEST_EVENING_CRON"),
		Workers:     v.GetInt("DIGEST_WORKERS"),
		MaxRetries:  v.GetInt("DIGEST_RETRIES"),
		RetryDelay:  parseDuration(v.GetString("DIGEST_RETRY_DELAY"), 5*time.Second),
		QueueBuffer: v.GetInt("DIGEST_QUEUE_BUFFER"),
		RunTimeout:  parseDuration(v.GetString("DIGEST_RUN_TIMEOUT"), 2*time.Minute),
	}

	cfg.Feeds = FeedConfig{
		SigningSecret: v.GetString("FEED_SIGNING_SECRET"),
		TTL:           parseDuration(v.GetString("FEED_TTL"), 365*24*time.Hour),
		PublicBaseURL: v.GetString("PUBLIC_BASE_URL"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 4000)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "family_calendar")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev-secret-change-me")
	v.SetDefault("JWT_EXPIRATION", "720h")
	v.SetDefault("JWT_ISSUER", "family-calendar")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CALENDAR_TIMEZONE", "")
	v.SetDefault("CALENDAR_MAX_OCCURRENCES", 500)
	v.SetDefault("CALENDAR_LOOKBACK_DAYS", 1)
	v.SetDefault("CALENDAR_LOOKAHEAD_DAYS", 14)
	v.SetDefault("CALENDAR_UNKNOWN_RULES", "reject")

	v.SetDefault("EVENTS_CACHE_ENABLED", true)
	v.SetDefault("EVENTS_CACHE_TTL", "5m")

	v.SetDefault("VAPID_PUBLIC_KEY", "")
	v.SetDefault("PUSH_OUTBOX_KEY", "push:outbox")

	v.SetDefault("DIGEST_ENABLED", true)
	v.SetDefault("DIGEST_MORNING_CRON", "0 7 * * *")
	v.SetDefault("DIGEST_EVENING_CRON", "0 20 * * *")
	v.SetDefault("DIGEST_WORKERS", 4)
	v.SetDefault("DIGEST_RETRIES", 3)
	v.SetDefault("DIGEST_RETRY_DELAY", "5s")
	v.SetDefault("DIGEST_QUEUE_BUFFER", 64)
	v.SetDefault("DIGEST_RUN_TIMEOUT", "2m")

	v.SetDefault("FEED_SIGNING_SECRET", "")
	v.SetDefault("FEED_TTL", "8760h")
	v.SetDefault("PUBLIC_BASE_URL", "")
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
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
