// Package config provides configuration management for the referral bot.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds all application configuration
type Config struct {
	Bot       BotConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Ledger    LedgerConfig
	Server    ServerConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// BotConfig holds chat transport configuration
type BotConfig struct {
	Token       string
	AdminID     string
	PollTimeout time.Duration
	Debug       bool
}

// StorageConfig selects where the ledger collections are persisted
type StorageConfig struct {
	Backend string
	DataDir string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres PostgresConfig
	Redis    RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
	MigrationsPath string
	AutoMigrate    bool
}

// URL returns the connection URL used by golang-migrate.
func (c PostgresConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
	KeyPrefix      string
}

// LedgerConfig holds query layer settings
type LedgerConfig struct {
	LeaderboardSize int
}

// ServerConfig holds the optional HTTP admin API configuration
type ServerConfig struct {
	Enabled  bool
	Host     string
	Port     string
	APIToken string
}

// RateLimitConfig holds per-caller command rate limits
type RateLimitConfig struct {
	CommandsPerSecond float64
	Burst             int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env is optional; the environment can be set directly.
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Bot: BotConfig{
			Token:       getEnv("BOT_TOKEN", ""),
			AdminID:     getEnv("ADMIN_ID", ""),
			PollTimeout: getEnvAsDuration("BOT_POLL_TIMEOUT", 60*time.Second),
			Debug:       getEnvAsBool("BOT_DEBUG", false),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(getEnv("STORAGE_BACKEND", BackendFile)),
			DataDir: getEnv("DATA_DIR", "data"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "referral_ledger"),
				User:           getEnv("POSTGRES_USER", "ledger"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 10),
				MigrationsPath: getEnv("POSTGRES_MIGRATIONS_PATH", "migrations/postgres"),
				AutoMigrate:    getEnvAsBool("POSTGRES_AUTO_MIGRATE", true),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 10),
				KeyPrefix:      getEnv("REDIS_KEY_PREFIX", "ledger:"),
			},
		},
		Ledger: LedgerConfig{
			LeaderboardSize: getEnvAsInt("LEADERBOARD_SIZE", 10),
		},
		Server: ServerConfig{
			Enabled:  getEnvAsBool("SERVER_ENABLED", false),
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			Port:     getEnv("SERVER_PORT", "8080"),
			APIToken: getEnv("API_TOKEN", ""),
		},
		RateLimit: RateLimitConfig{
			CommandsPerSecond: getEnvAsFloat("COMMAND_RATE_LIMIT", 2),
			Burst:             getEnvAsInt("COMMAND_RATE_BURST", 5),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// Validate reports configuration that makes startup impossible.
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return fmt.Errorf("BOT_TOKEN not set")
	}

	switch c.Storage.Backend {
	case BackendFile, BackendPostgres, BackendRedis:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q (must be file, postgres or redis)", c.Storage.Backend)
	}

	if c.Ledger.LeaderboardSize <= 0 {
		return fmt.Errorf("LEADERBOARD_SIZE must be positive, got %d", c.Ledger.LeaderboardSize)
	}

	if c.Server.Enabled && c.Server.APIToken == "" {
		return fmt.Errorf("API_TOKEN is required when SERVER_ENABLED is true")
	}

	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
