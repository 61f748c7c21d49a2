package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Telegram.Token = "123:abc"
	return cfg
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Errorf("run_mode = %q; want longpoll default", cfg.Telegram.RunMode)
	}
	if cfg.App.Timezone != "Europe/Moscow" {
		t.Errorf("timezone = %q", cfg.App.Timezone)
	}
	if cfg.App.MaxUploadMB != 25 {
		t.Errorf("max_upload_mb = %d", cfg.App.MaxUploadMB)
	}
	if cfg.App.OrdersPageSize != 5 {
		t.Errorf("orders_page_size = %d", cfg.App.OrdersPageSize)
	}
	if cfg.App.SweepStaleAfterMinutes != 30 {
		t.Errorf("sweep_stale_after_minutes = %d", cfg.App.SweepStaleAfterMinutes)
	}
	if cfg.Database.MaxConnections != 8 || cfg.Database.SSLMode != "disable" {
		t.Errorf("db defaults: %+v", cfg.Database)
	}
}

func TestNormalizeRunModes(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = "polling" // accepted alias
	if err := Normalize(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Errorf("run_mode = %q; want longpoll", cfg.Telegram.RunMode)
	}

	cfg = validConfig()
	cfg.Telegram.RunMode = "carrier-pigeon"
	if err := Normalize(cfg); err == nil || !strings.Contains(err.Error(), "run_mode") {
		t.Fatalf("err = %v; want run_mode rejection", err)
	}
}

func TestNormalizeWebhookRequirements(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = RunModeWebhook
	if err := Normalize(cfg); err == nil {
		t.Fatal("webhook mode without url must fail")
	}

	cfg = validConfig()
	cfg.Telegram.RunMode = RunModeWebhook
	cfg.Webhook.URL = "https://bot.example.com/hook"
	cfg.Webhook.Listen = "0.0.0.0"
	cfg.Webhook.Port = 8443
	if err := Normalize(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNormalizeRequiresToken(t *testing.T) {
	cfg := &Config{}
	if err := Normalize(cfg); err == nil || !strings.Contains(err.Error(), "token") {
		t.Fatalf("err = %v; want token requirement", err)
	}
}

func TestNormalizeRejectsBadTimezone(t *testing.T) {
	cfg := validConfig()
	cfg.App.Timezone = "Mars/Olympus"
	if err := Normalize(cfg); err == nil {
		t.Fatal("invalid timezone accepted")
	}
}

func TestMaxUploadBytes(t *testing.T) {
	cfg := validConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.MaxUploadBytes(); got != 25<<20 {
		t.Errorf("MaxUploadBytes() = %d", got)
	}
}
