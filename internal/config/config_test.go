package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_ID", "42")
	t.Setenv("STORAGE_BACKEND", "Redis")
	t.Setenv("LEADERBOARD_SIZE", "5")
	t.Setenv("BOT_POLL_TIMEOUT", "30s")
	t.Setenv("COMMAND_RATE_LIMIT", "0.5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Bot.Token != "123:abc" {
		t.Errorf("Bot.Token = %v, want %v", cfg.Bot.Token, "123:abc")
	}
	if cfg.Bot.AdminID != "42" {
		t.Errorf("Bot.AdminID = %v, want %v", cfg.Bot.AdminID, "42")
	}
	if cfg.Storage.Backend != BackendRedis {
		t.Errorf("Storage.Backend = %v, want %v", cfg.Storage.Backend, BackendRedis)
	}
	if cfg.Ledger.LeaderboardSize != 5 {
		t.Errorf("Ledger.LeaderboardSize = %v, want 5", cfg.Ledger.LeaderboardSize)
	}
	if cfg.Bot.PollTimeout != 30*time.Second {
		t.Errorf("Bot.PollTimeout = %v, want %v", cfg.Bot.PollTimeout, 30*time.Second)
	}
	if cfg.RateLimit.CommandsPerSecond != 0.5 {
		t.Errorf("RateLimit.CommandsPerSecond = %v, want 0.5", cfg.RateLimit.CommandsPerSecond)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("DATA_DIR", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Storage.Backend != BackendFile {
		t.Errorf("Storage.Backend = %v, want %v", cfg.Storage.Backend, BackendFile)
	}
	if cfg.Storage.DataDir != "data" {
		t.Errorf("Storage.DataDir = %v, want data", cfg.Storage.DataDir)
	}
	if cfg.Ledger.LeaderboardSize != 10 {
		t.Errorf("Ledger.LeaderboardSize = %v, want 10", cfg.Ledger.LeaderboardSize)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Bot:     BotConfig{Token: "t"},
			Storage: StorageConfig{Backend: BackendFile},
			Ledger:  LedgerConfig{LeaderboardSize: 10},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing token", mutate: func(c *Config) { c.Bot.Token = "" }, wantErr: "BOT_TOKEN"},
		{name: "unknown backend", mutate: func(c *Config) { c.Storage.Backend = "s3" }, wantErr: "STORAGE_BACKEND"},
		{name: "zero leaderboard", mutate: func(c *Config) { c.Ledger.LeaderboardSize = 0 }, wantErr: "LEADERBOARD_SIZE"},
		{
			name:    "server without token",
			mutate:  func(c *Config) { c.Server.Enabled = true },
			wantErr: "API_TOKEN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestPostgresConfig_URL(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "db",
		Port:     "5432",
		Database: "referral_ledger",
		User:     "ledger",
		Password: "p@ss word",
	}

	want := "postgres://ledger:p%40ss%20word@db:5432/referral_ledger?sslmode=disable"
	if got := cfg.URL(); got != want {
		t.Errorf("URL() = %v, want %v", got, want)
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns environment variable when set",
			key:          "TEST_KEY",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when environment variable not set",
			key:          "NONEXISTENT_KEY",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.envValue)

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue int
		want         int
	}{
		{name: "returns integer when valid", envValue: "200", defaultValue: 100, want: 200},
		{name: "returns default when invalid", envValue: "invalid", defaultValue: 100, want: 100},
		{name: "returns default when not set", envValue: "", defaultValue: 100, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.envValue)

			if got := getEnvAsInt("TEST_INT", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvAsInt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		want         bool
	}{
		{name: "true", envValue: "true", want: true},
		{name: "numeric one", envValue: "1", want: true},
		{name: "false overrides default", envValue: "false", defaultValue: true, want: false},
		{name: "invalid keeps default", envValue: "yes please", defaultValue: true, want: true},
		{name: "unset keeps default", envValue: "", defaultValue: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.envValue)

			if got := getEnvAsBool("TEST_BOOL", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvAsBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue time.Duration
		want         time.Duration
	}{
		{name: "returns duration when valid", envValue: "30s", defaultValue: 10 * time.Second, want: 30 * time.Second},
		{name: "returns default when invalid", envValue: "invalid", defaultValue: 10 * time.Second, want: 10 * time.Second},
		{name: "returns default when not set", envValue: "", defaultValue: 10 * time.Second, want: 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.envValue)

			if got := getEnvAsDuration("TEST_DURATION", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvAsDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}
