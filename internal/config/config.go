package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Serenityblood/victory-test/internal/model"
)

// Config holds service configuration loaded from the environment.
type Config struct {
	LogLevel string

	// Record-keeping API.
	HTTPPort       string
	MigrationsPath string

	// Postgres.
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	// Telegram push API.
	BotToken    string
	TelegramAPI string
	SendTimeout time.Duration

	// Dispatch engine.
	ScanInterval    time.Duration
	MaxInFlight     int
	ReportRoles     []model.Role
	FailureQueueURL string

	// Authoring bot.
	APIURL   string
	RedisURL string

	// Display formatting only; storage is always UTC.
	Timezone *time.Location
}

// Load loads configuration and performs basic validation.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		HTTPPort:        getEnv("HTTP_PORT", "8000"),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "file://migrations"),
		DBUser:          getEnv("POSTGRES_USER", "serenity"),
		DBPassword:      getEnv("POSTGRES_PASSWORD", ""),
		DBHost:          getEnv("DB_HOST", "localhost"),
		DBPort:          getEnv("DB_PORT", "5432"),
		DBName:          getEnv("DB_NAME", "test_db"),
		BotToken:        getEnv("BOT_TOKEN", ""),
		TelegramAPI:     getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		SendTimeout:     getEnvAsDuration("SEND_TIMEOUT", 30*time.Second),
		ScanInterval:    getEnvAsDuration("SCAN_INTERVAL", 60*time.Second),
		MaxInFlight:     getEnvAsInt("MAX_IN_FLIGHT", 100),
		FailureQueueURL: getEnv("AMQP_URL", ""),
		APIURL:          getEnv("API_URL", "http://localhost:8000"),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
	}

	for _, raw := range strings.Split(getEnv("REPORT_ROLES", "admin,moderator"), ",") {
		role := model.Role(strings.TrimSpace(raw))
		if role == "" {
			continue
		}
		if !model.ValidRole(role) {
			return nil, fmt.Errorf("unknown role %q in REPORT_ROLES", role)
		}
		cfg.ReportRoles = append(cfg.ReportRoles, role)
	}

	tz := getEnv("TIMEZONE", "Europe/Moscow")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	cfg.Timezone = loc

	return cfg, nil
}

// DatabaseURL assembles the postgres DSN.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

func getEnv(key, def string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return value
}

func getEnvAsInt(key string, def int) int {
	if value, ok := os.LookupEnv(key); ok {
		i, err := strconv.Atoi(value)
		if err != nil {
			log.Printf("invalid int for %s, using default %d: %v", key, def, err)
			return def
		}
		return i
	}
	return def
}

func getEnvAsDuration(key string, def time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(value)
		if err != nil {
			log.Printf("invalid duration for %s, using default %s: %v", key, def, err)
			return def
		}
		return d
	}
	return def
}
