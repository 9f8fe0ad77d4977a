package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr             string
	DatabaseURL          string
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	JWTSecret     string
	AdminUsername string
	AdminPassword string

	LogMode string

	BotToken       string
	BotPolling     bool
	TelegramAPIURL string
	LogsChatID     int64

	WorkerID       string
	PollInterval   time.Duration
	Concurrency    int
	SendTimeout    time.Duration
	RatePerSec     int
	ReapStaleAfter time.Duration
}

func Load() (Config, error) {
	// .env.local wins for local development, .env otherwise.
	if _, err := os.Stat(".env.local"); err == nil {
		_ = godotenv.Load(".env.local")
	} else {
		_ = godotenv.Load()
	}

	cfg := Config{
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:          mustGetenv("DATABASE_URL"),
		CORSAllowCredentials: getenv("CORS_ALLOW_CREDENTIALS", "false") == "true",
		AdminUsername:        getenv("ADMIN_USERNAME", "admin"),
		AdminPassword:        getenv("ADMIN_PASSWORD", ""),
		LogMode:              getenv("LOG_MODE", "dev"),
		BotToken:             mustGetenv("BOT_TOKEN"),
		BotPolling:           getenv("BOT_POLLING", "false") == "true",
		TelegramAPIURL:       strings.TrimRight(getenv("TELEGRAM_API_URL", "https://api.telegram.org"), "/"),
		WorkerID:             getenv("WORKER_ID", ""),
	}

	origins := strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",")
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	var err error
	if v := getenv("LOGS_CHAT_ID", ""); v != "" {
		if cfg.LogsChatID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return cfg, fmt.Errorf("LOGS_CHAT_ID: %w", err)
		}
	}
	if cfg.PollInterval, err = durationEnv("PUSH_POLL_INTERVAL", 5*time.Second); err != nil {
		return cfg, err
	}
	if cfg.SendTimeout, err = durationEnv("PUSH_SEND_TIMEOUT", 10*time.Second); err != nil {
		return cfg, err
	}
	if cfg.ReapStaleAfter, err = durationEnv("PUSH_REAP_AFTER", 0); err != nil {
		return cfg, err
	}
	if cfg.Concurrency, err = intEnv("PUSH_CONCURRENCY", 15); err != nil {
		return cfg, err
	}
	if cfg.RatePerSec, err = intEnv("PUSH_RATE_PER_SEC", 25); err != nil {
		return cfg, err
	}

	cfg.JWTSecret = mustGetenv("JWT_SECRET")
	return cfg, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func mustGetenv(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		panic("missing env: " + key)
	}
	return v
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := getenv(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", key)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := getenv(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s: must be positive", key)
	}
	return n, nil
}
