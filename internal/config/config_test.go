package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.Environment != "development" {
		t.Errorf("environment = %q, want development", cfg.Environment)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Telegram.Mode != TelegramModePolling {
		t.Errorf("telegram mode = %q, want polling", cfg.Telegram.Mode)
	}
	if cfg.Match.ReapInterval != 5*time.Minute {
		t.Errorf("reap interval = %v, want 5m", cfg.Match.ReapInterval)
	}
	if cfg.Match.IdleThreshold != 5*time.Minute {
		t.Errorf("idle threshold = %v, want 5m", cfg.Match.IdleThreshold)
	}
	if cfg.Match.RateWindow != time.Second || cfg.Match.RateMax != 1 {
		t.Errorf("rate limit = %d per %v, want 1 per 1s", cfg.Match.RateMax, cfg.Match.RateWindow)
	}
	if len(cfg.Match.ForbiddenWords) != 2 {
		t.Errorf("forbidden words = %v, want two defaults", cfg.Match.ForbiddenWords)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("MATCH_IDLE_THRESHOLD", "90s")
	t.Setenv("MATCH_FORBIDDEN_WORDS", "foo, bar ,baz")
	t.Setenv("TELEGRAM_POLL_TIMEOUT", "30")

	cfg := LoadConfig()

	if cfg.Match.IdleThreshold != 90*time.Second {
		t.Errorf("idle threshold = %v, want 90s", cfg.Match.IdleThreshold)
	}
	if len(cfg.Match.ForbiddenWords) != 3 || cfg.Match.ForbiddenWords[1] != "bar" {
		t.Errorf("forbidden words = %v, want [foo bar baz]", cfg.Match.ForbiddenWords)
	}
	if cfg.Telegram.PollTimeout != 30 {
		t.Errorf("poll timeout = %d, want 30", cfg.Telegram.PollTimeout)
	}
}

func TestValidateRequiresToken(t *testing.T) {
	cfg := LoadConfig()
	cfg.Telegram.Token = ""

	if err := cfg.Validate(); err == nil {
		t.Error("missing bot token accepted")
	}
}

func TestValidateWebhookMode(t *testing.T) {
	cfg := LoadConfig()
	cfg.Telegram.Token = "token"
	cfg.Telegram.Mode = TelegramModeWebhook
	cfg.Telegram.WebhookURL = ""

	if err := cfg.Validate(); err == nil {
		t.Error("webhook mode without URL accepted")
	}

	cfg.Telegram.WebhookURL = "https://example.com/telegram/webhook"
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid webhook config rejected: %v", err)
	}
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := LoadConfig()
	cfg.Telegram.Token = "token"
	cfg.Telegram.Mode = "carrier-pigeon"

	if err := cfg.Validate(); err == nil {
		t.Error("unknown telegram mode accepted")
	}
}
