package config

import (
	"strings"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("TG_BOT_TOKEN", "123:abc")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if cfg.Idle.Threshold != 15*time.Minute || cfg.Idle.Interval != time.Minute {
		t.Fatalf("неожиданные параметры простоя: %+v", cfg.Idle)
	}
	if cfg.Idle.WindowStart != "09:00" || cfg.Idle.WindowEnd != "21:00" {
		t.Fatalf("неожиданное окно: %s-%s", cfg.Idle.WindowStart, cfg.Idle.WindowEnd)
	}
	if cfg.Moderation.Cooldown != time.Hour || cfg.Moderation.Restriction != 3*time.Hour {
		t.Fatalf("неожиданные параметры модерации: %+v", cfg.Moderation)
	}
	if cfg.Timezone != "Europe/Moscow" {
		t.Fatalf("ожидали Europe/Moscow, получили %s", cfg.Timezone)
	}
	if cfg.WebhookMode() || cfg.MTProtoEnabled() {
		t.Fatal("по умолчанию ожидали polling без MTProto")
	}
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("TG_BOT_TOKEN", "123:abc")
	t.Setenv("TG_WEBHOOK_URL", "https://example.org/bot/webhook")
	t.Setenv("TG_API_ID", "42")
	t.Setenv("TG_API_HASH", "hash")
	t.Setenv("MODERATION_COOLDOWN", "30m")
	t.Setenv("IDLE_WINDOW_START", "08:30")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !cfg.WebhookMode() || !cfg.MTProtoEnabled() {
		t.Fatal("ожидали webhook и MTProto")
	}
	if cfg.Moderation.Cooldown != 30*time.Minute {
		t.Fatalf("ожидали 30m, получили %s", cfg.Moderation.Cooldown)
	}
	if cfg.Idle.WindowStart != "08:30" {
		t.Fatalf("ожидали 08:30, получили %s", cfg.Idle.WindowStart)
	}
}

func TestParseMissingToken(t *testing.T) {
	t.Setenv("TG_BOT_TOKEN", "")
	if _, err := Parse(); err == nil {
		t.Fatal("ожидали ошибку без токена")
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("TG_BOT_TOKEN", "123:abc")
	base, err := Parse()
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*AppConfig)
		want   string
	}{
		{name: "cooldown", mutate: func(c *AppConfig) { c.Moderation.Cooldown = 0 }, want: "MODERATION_COOLDOWN"},
		{name: "threshold", mutate: func(c *AppConfig) { c.Idle.Threshold = -time.Second }, want: "IDLE_THRESHOLD"},
		{name: "timezone", mutate: func(c *AppConfig) { c.Timezone = "Mars/Olympus" }, want: "BOT_TIMEZONE"},
		{name: "workers", mutate: func(c *AppConfig) { c.Telegram.Workers = 0 }, want: "TG_UPDATE_WORKERS"},
		{name: "api hash", mutate: func(c *AppConfig) { c.Telegram.APIID = 1 }, want: "TG_API_HASH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("ожидали ошибку про %s, получили %v", tt.want, err)
			}
		})
	}
}
