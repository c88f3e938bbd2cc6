package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// State backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

type AppConfig struct {
	HTTPAddr string

	StateBackend string
	RedisURL     string
	RedisTTL     time.Duration
	BadgerDir    string
	DatabaseURL  string

	WebhookURL     string
	WebhookTimeout time.Duration
	WebhookRetry    int
	WebhookSecret   string
	WebhookMaxConns int

	CORSOrigins    []string
	WSOrigins      []string
	WSPingInterval time.Duration

	BroadcastChannelPrefix string
	MessagesDir            string
	ShutdownTimeout        time.Duration
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:               ":8080",
		StateBackend:           BackendMemory,
		RedisTTL:               24 * time.Hour,
		BadgerDir:              "data/badger",
		WebhookTimeout:         5 * time.Second,
		WebhookRetry:           2,
		WebhookMaxConns:        64,
		WSPingInterval:         15 * time.Second,
		BroadcastChannelPrefix: "match:events:",
		ShutdownTimeout:        10 * time.Second,
	}

	if v := env("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.ToLower(env("STATE_BACKEND")); v != "" {
		cfg.StateBackend = v
	}
	cfg.RedisURL = env("REDIS_URL")
	cfg.DatabaseURL = env("DATABASE_URL")
	if v := env("BADGER_DIR"); v != "" {
		cfg.BadgerDir = v
	}

	var err error
	if cfg.RedisTTL, err = duration("REDIS_TTL", cfg.RedisTTL); err != nil {
		return nil, err
	}

	cfg.WebhookURL = env("WEBHOOK_URL")
	cfg.WebhookSecret = env("WEBHOOK_SECRET")
	if cfg.WebhookTimeout, err = duration("WEBHOOK_TIMEOUT", cfg.WebhookTimeout); err != nil {
		return nil, err
	}
	if v := env("WEBHOOK_RETRY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("WEBHOOK_RETRY must be a non-negative integer: %q", v)
		}
		cfg.WebhookRetry = n
	}
	if v := env("WEBHOOK_MAX_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("WEBHOOK_MAX_CONNS must be a positive integer: %q", v)
		}
		cfg.WebhookMaxConns = n
	}

	cfg.CORSOrigins = csv(env("CORS_ORIGINS"))
	cfg.WSOrigins = csv(env("WS_ORIGINS"))
	if cfg.WSPingInterval, err = duration("WS_PING_INTERVAL", cfg.WSPingInterval); err != nil {
		return nil, err
	}
	if v := env("BROADCAST_CHANNEL_PREFIX"); v != "" {
		cfg.BroadcastChannelPrefix = v
	}
	cfg.MessagesDir = env("MESSAGES_DIR")
	if cfg.ShutdownTimeout, err = duration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return nil, err
	}

	switch cfg.StateBackend {
	case BackendMemory, BackendBadger:
	case BackendRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required")
		}
	default:
		return nil, fmt.Errorf("STATE_BACKEND must be memory, redis or badger: %q", cfg.StateBackend)
	}

	return cfg, nil
}

func env(key string) string { return strings.TrimSpace(os.Getenv(key)) }

func duration(key string, def time.Duration) (time.Duration, error) {
	v := env(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration: %q", key, v)
	}
	return d, nil
}

func csv(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
