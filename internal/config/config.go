// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends accepted by StorageConfig.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Tombola   TombolaConfig   `mapstructure:"tombola"`
	Status    StatusConfig    `mapstructure:"status"`
	Log       LogConfig       `mapstructure:"log"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token       string        `mapstructure:"token"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	Name             string        `mapstructure:"name"`
	PoolSize         int           `mapstructure:"pool_size"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime  time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `mapstructure:"max_conn_idle_time"`
	ApplicationName  string        `mapstructure:"application_name"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StorageConfig selects the backend of each store.
type StorageConfig struct {
	Scores   string `mapstructure:"scores"`
	Settings string `mapstructure:"settings"`
}

// AdminConfig holds the bot owners, who pass every admin check.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// TombolaConfig holds game tuning.
type TombolaConfig struct {
	AutoInterval          time.Duration `mapstructure:"auto_interval"`
	SettingsCacheTTL      time.Duration `mapstructure:"settings_cache_ttl"`
	SettingsCacheSize     int           `mapstructure:"settings_cache_size"`
	FlushRetrySpec        string        `mapstructure:"flush_retry_spec"`
	NotifyConcurrency     int           `mapstructure:"notify_concurrency"`
	AnnounceRatePerMinute int           `mapstructure:"announce_rate_per_minute"`
	LockTimeout           time.Duration `mapstructure:"lock_timeout"`
}

// StatusConfig holds the liveness/metrics HTTP server configuration.
// An empty address disables the server.
type StatusConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. BOT_TOKEN, DATABASE_HOST, STORAGE_SCORES
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	for name, backend := range map[string]string{
		"storage.scores":   c.Storage.Scores,
		"storage.settings": c.Storage.Settings,
	} {
		if backend != BackendPostgres && backend != BackendRedis {
			return fmt.Errorf("invalid %s backend %q", name, backend)
		}
	}
	if c.Tombola.AutoInterval <= 0 {
		return fmt.Errorf("tombola.auto_interval must be positive")
	}
	if c.Tombola.NotifyConcurrency < 1 {
		return fmt.Errorf("tombola.notify_concurrency must be at least 1")
	}
	return nil
}

// NeedsPostgres reports whether any store uses PostgreSQL.
func (c *Config) NeedsPostgres() bool {
	return c.Storage.Scores == BackendPostgres || c.Storage.Settings == BackendPostgres
}

// NeedsRedis reports whether any store uses Redis.
func (c *Config) NeedsRedis() bool {
	return c.Storage.Scores == BackendRedis || c.Storage.Settings == BackendRedis
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.poll_timeout", "10s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "tombola")
	v.SetDefault("database.name", "tombola")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.application_name", "tombola-bot")
	v.SetDefault("database.statement_timeout", "5s")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.scores", BackendPostgres)
	v.SetDefault("storage.settings", BackendPostgres)

	v.SetDefault("tombola.auto_interval", "3s")
	v.SetDefault("tombola.settings_cache_ttl", "5m")
	v.SetDefault("tombola.settings_cache_size", 1024)
	v.SetDefault("tombola.flush_retry_spec", "@every 1m")
	v.SetDefault("tombola.notify_concurrency", 8)
	v.SetDefault("tombola.announce_rate_per_minute", 20)
	v.SetDefault("tombola.lock_timeout", "30s")

	v.SetDefault("status.addr", ":8080")
	v.SetDefault("log.level", "info")
}

// IsAdmin checks if a user ID is a bot owner.
func (c *Config) IsAdmin(userID int64) bool {
	return slices.Contains(c.Admin.IDs, userID)
}

// IsChatAllowed checks if a chat ID is in the whitelist.
// An empty whitelist allows every chat.
func (c *Config) IsChatAllowed(chatID int64) bool {
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	return slices.Contains(c.Whitelist.Chats, chatID)
}
