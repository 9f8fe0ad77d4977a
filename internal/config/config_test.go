package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/guestbot")
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.AdminUsername != "admin" || cfg.LogMode != "dev" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.PollInterval != 5*time.Second || cfg.SendTimeout != 10*time.Second {
		t.Fatalf("durations: poll=%s send=%s", cfg.PollInterval, cfg.SendTimeout)
	}
	if cfg.Concurrency != 15 || cfg.RatePerSec != 25 || cfg.ReapStaleAfter != 0 {
		t.Fatalf("push tuning: %+v", cfg)
	}
	if cfg.TelegramAPIURL != "https://api.telegram.org" || cfg.LogsChatID != 0 || cfg.BotPolling {
		t.Fatalf("telegram: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("TELEGRAM_API_URL", "http://localhost:8081/")
	t.Setenv("LOGS_CHAT_ID", "-1001234")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("PUSH_POLL_INTERVAL", "2s")
	t.Setenv("PUSH_CONCURRENCY", "4")
	t.Setenv("PUSH_REAP_AFTER", "15m")
	t.Setenv("BOT_POLLING", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TelegramAPIURL != "http://localhost:8081" {
		t.Fatalf("api url = %q", cfg.TelegramAPIURL)
	}
	if cfg.LogsChatID != -1001234 {
		t.Fatalf("logs chat = %d", cfg.LogsChatID)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("origins = %v", cfg.CORSAllowedOrigins)
	}
	if cfg.PollInterval != 2*time.Second || cfg.Concurrency != 4 || cfg.ReapStaleAfter != 15*time.Minute || !cfg.BotPolling {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"PUSH_POLL_INTERVAL": "soon",
		"PUSH_SEND_TIMEOUT":  "-1s",
		"PUSH_CONCURRENCY":   "0",
		"PUSH_RATE_PER_SEC":  "many",
		"LOGS_CHAT_ID":       "logs",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("%s=%q: expected error", key, val)
			}
		})
	}
}

func TestLoadPanicsWithoutRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("BOT_TOKEN", "")

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for missing BOT_TOKEN")
		}
	}()
	_, _ = Load()
}
