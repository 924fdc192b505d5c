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
	CORS          CORSConfig
	Log           LogConfig
	Booking       BookingConfig
	Reminders     RemindersConfig
	Notifications NotificationsConfig
	Calendar      CalendarConfig
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

// BookingConfig fixes the shared scheduling parameters: every appointment
// occupies exactly SlotDuration, and availability listings cover the shop's
// operating hours in a single fixed zone.
type BookingConfig struct {
	SlotDuration time.Duration
	OpenHour     int
	CloseHour    int
	Timezone     string
}

// RemindersConfig drives the periodic reminder sweep.
type RemindersConfig struct {
	Enabled       bool
	Thresholds    []time.Duration
	Tolerance     time.Duration
	SweepInterval time.Duration
}

// NotificationsConfig tunes the outbound dispatch worker pool.
type NotificationsConfig struct {
	Workers    int
	BufferSize int
}

// CalendarConfig tunes range-query caching.
type CalendarConfig struct {
	CacheTTL time.Duration
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

	cfg.Booking = BookingConfig{
		SlotDuration: parseDuration(v.GetString("BOOKING_SLOT_DURATION"), time.Hour),
		OpenHour:     v.GetInt("BOOKING_OPEN_HOUR"),
		CloseHour:    v.GetInt("BOOKING_CLOSE_HOUR"),
		Timezone:     v.GetString("BOOKING_TIMEZONE"),
	}

	cfg.Reminders = RemindersConfig{
		Enabled:       v.GetBool("REMINDERS_ENABLED"),
		Thresholds:    parseDurations(v.GetString("REMINDER_THRESHOLDS"), []time.Duration{24 * time.Hour, 2 * time.Hour}),
		Tolerance:     parseDuration(v.GetString("REMINDER_TOLERANCE"), 15*time.Minute),
		SweepInterval: parseDuration(v.GetString("REMINDER_SWEEP_INTERVAL"), 5*time.Minute),
	}

	cfg.Notifications = NotificationsConfig{
		Workers:    v.GetInt("NOTIFICATION_WORKERS"),
		BufferSize: v.GetInt("NOTIFICATION_BUFFER_SIZE"),
	}

	cfg.Calendar = CalendarConfig{
		CacheTTL: parseDuration(v.GetString("CALENDAR_CACHE_TTL"), 5*time.Minute),
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
	v.SetDefault("DB_NAME", "boutique_booking")
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

	v.SetDefault("BOOKING_SLOT_DURATION", "60m")
	v.SetDefault("BOOKING_OPEN_HOUR", 9)
	v.SetDefault("BOOKING_CLOSE_HOUR", 18)
	v.SetDefault("BOOKING_TIMEZONE", "UTC")

	v.SetDefault("REMINDERS_ENABLED", true)
	v.SetDefault("REMINDER_THRESHOLDS", "24h,2h")
	v.SetDefault("REMINDER_TOLERANCE", "15m")
	v.SetDefault("REMINDER_SWEEP_INTERVAL", "5m")

	v.SetDefault("NOTIFICATION_WORKERS", 2)
	v.SetDefault("NOTIFICATION_BUFFER_SIZE", 64)

	v.SetDefault("CALENDAR_CACHE_TTL", "5m")
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

func parseDurations(raw string, fallback []time.Duration) []time.Duration {
	parts := splitAndTrim(raw)
	if len(parts) == 0 {
		return fallback
	}

	out := make([]time.Duration, 0, len(parts))
	for _, part := range parts {
		d, err := time.ParseDuration(part)
		if err != nil || d <= 0 {
			continue
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return fallback
	}

	return out
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
