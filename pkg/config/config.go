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

	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	Cache    CacheConfig
	Roster   RosterConfig
	Grading  GradingConfig
	Calendar CalendarConfig
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

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig governs the Redis-backed read caches.
type CacheConfig struct {
	Enabled     bool
	ReportTTL   time.Duration
	ResourceTTL time.Duration
}

// RosterConfig tunes student identity and resource matching.
type RosterConfig struct {
	GeneralSubject         string
	RegistrationCodePrefix string
	MaxImportRows          int
}

// GradingConfig bounds the per-student write batch issued when scoring an assessment.
type GradingConfig struct {
	Concurrency int
}

// CalendarConfig toggles the calendar side effect of assessment creation.
type CalendarConfig struct {
	SyncEnabled bool
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

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled:     v.GetBool("ENABLE_CACHE"),
		ReportTTL:   parseDuration(v.GetString("REPORT_CACHE_TTL"), 5*time.Minute),
		ResourceTTL: parseDuration(v.GetString("RESOURCE_CACHE_TTL"), 10*time.Minute),
	}

	maxRows := v.GetInt("ROSTER_IMPORT_MAX_ROWS")
	if maxRows <= 0 {
		maxRows = 200
	}
	cfg.Roster = RosterConfig{
		GeneralSubject:         strings.TrimSpace(v.GetString("GENERAL_SUBJECT")),
		RegistrationCodePrefix: strings.TrimSpace(v.GetString("REGISTRATION_CODE_PREFIX")),
		MaxImportRows:          maxRows,
	}

	concurrency := v.GetInt("GRADING_CONCURRENCY")
	if concurrency <= 0 {
		concurrency = 8
	}
	cfg.Grading = GradingConfig{Concurrency: concurrency}

	cfg.Calendar = CalendarConfig{SyncEnabled: v.GetBool("ENABLE_CALENDAR_SYNC")}

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
	v.SetDefault("DB_NAME", "classroom_sync")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("REPORT_CACHE_TTL", "5m")
	v.SetDefault("RESOURCE_CACHE_TTL", "10m")

	v.SetDefault("GENERAL_SUBJECT", "general")
	v.SetDefault("REGISTRATION_CODE_PREFIX", "ST")
	v.SetDefault("ROSTER_IMPORT_MAX_ROWS", 200)
	v.SetDefault("GRADING_CONCURRENCY", 8)
	v.SetDefault("ENABLE_CALENDAR_SYNC", true)
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
