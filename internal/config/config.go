// Package config loads bot configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/vrecdsxcdv/printbot/internal/database"
	"github.com/vrecdsxcdv/printbot/internal/logger"
)

// Run modes for receiving Telegram updates.
const (
	RunModeWebhook  = "webhook"
	RunModeLongpoll = "longpoll"
)

// TelegramConfig holds Telegram bot transport settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default.
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings used when run_mode is "webhook".
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// OperatorConfig points at the operator channel. A zero ChatID disables
// handoff notifications; they are logged and skipped.
type OperatorConfig struct {
	ChatID int64 `yaml:"chat_id" envconfig:"OPERATOR_CHAT_ID"`
}

// AppConfig holds order-flow settings.
type AppConfig struct {
	Timezone    string `yaml:"timezone" envconfig:"TIMEZONE"`
	MaxUploadMB int64  `yaml:"max_upload_mb" envconfig:"MAX_UPLOAD_MB"`
	// OrdersPageSize controls pagination of the "my orders" listing.
	OrdersPageSize int `yaml:"orders_page_size" envconfig:"ORDERS_PAGE_SIZE"`
	// SweepIntervalSeconds configures the stale-order alert sweep; 0 disables it.
	SweepIntervalSeconds int `yaml:"sweep_interval_seconds" envconfig:"SWEEP_INTERVAL_SECONDS"`
	// SweepStaleAfterMinutes marks how old a NEW order must be before re-alerting.
	SweepStaleAfterMinutes int `yaml:"sweep_stale_after_minutes" envconfig:"SWEEP_STALE_AFTER_MINUTES"`
}

// Config aggregates the whole application configuration.
type Config struct {
	Telegram TelegramConfig  `yaml:"telegram"`
	Webhook  WebhookConfig   `yaml:"webhook"`
	Operator OperatorConfig  `yaml:"operator"`
	App      AppConfig       `yaml:"app"`
	Database database.Config `yaml:"database"`
	Logging  logger.Config   `yaml:"logging"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" || rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	if cfg.App.Timezone == "" {
		cfg.App.Timezone = "Europe/Moscow"
	}
	if _, err := time.LoadLocation(cfg.App.Timezone); err != nil {
		return fmt.Errorf("invalid app.timezone %q: %w", cfg.App.Timezone, err)
	}
	if cfg.App.MaxUploadMB <= 0 {
		cfg.App.MaxUploadMB = 25
	}
	if cfg.App.OrdersPageSize <= 0 {
		cfg.App.OrdersPageSize = 5
	}
	if cfg.App.SweepIntervalSeconds < 0 {
		return fmt.Errorf("app.sweep_interval_seconds must be >= 0")
	}
	if cfg.App.SweepStaleAfterMinutes <= 0 {
		cfg.App.SweepStaleAfterMinutes = 30
	}

	if cfg.Database.MaxConnections <= 0 {
		cfg.Database.MaxConnections = 8
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	return nil
}

// Location resolves the configured timezone. Normalize guarantees validity.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// MaxUploadBytes converts the configured upload cap to bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.App.MaxUploadMB * 1024 * 1024
}
