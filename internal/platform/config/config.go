package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
	APIToken  string `env:"API_TOKEN"`

	APIRateLimit float64 `env:"API_RATE_LIMIT" default:"20"` // requests per second per caller
	APIRateBurst int     `env:"API_RATE_BURST" default:"40"`

	// Optional credentials used to initialise the bridge at startup.
	TwitchClientID    string `env:"TWITCH_CLIENT_ID"`
	TwitchAccessToken string `env:"TWITCH_ACCESS_TOKEN"`

	EventNamespace        string        `env:"EVENT_NAMESPACE" default:"twitch"`
	EventSubWebSocketURL  string        `env:"EVENTSUB_WEBSOCKET_URL" default:"wss://eventsub.wss.twitch.tv/ws"`
	ChatConnectTimeout    time.Duration `env:"CHAT_CONNECT_TIMEOUT" default:"30s"`
	ChatMessagesPerWindow int           `env:"CHAT_MESSAGES_PER_WINDOW" default:"20"`
	ChatRateWindow        time.Duration `env:"CHAT_RATE_WINDOW" default:"30s"`

	NotifyQueueSize      int           `env:"NOTIFY_QUEUE_SIZE" default:"1024"`
	NotifyEnqueueTimeout time.Duration `env:"NOTIFY_ENQUEUE_TIMEOUT" default:"1s"`

	WSAllowedOrigins string        `env:"WS_ALLOWED_ORIGINS"` // comma-separated
	WSHistorySize    int           `env:"WS_HISTORY_SIZE" default:"100"`
	WSHistoryTTL     time.Duration `env:"WS_HISTORY_TTL" default:"5m"`

	RedisURL         string        `env:"REDIS_URL"`
	RedisChannel     string        `env:"REDIS_CHANNEL" default:"twitch:events"`
	DatabaseURL      string        `env:"DATABASE_URL"`
	JournalRetention time.Duration `env:"JOURNAL_RETENTION" default:"168h"` // 7 days
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// AllowedOrigins splits WS_ALLOWED_ORIGINS into its non-empty entries.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for o := range strings.SplitSeq(c.WSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// HasStartupCredentials reports whether the bridge should be initialised at startup.
func (c *Config) HasStartupCredentials() bool {
	return c.TwitchClientID != "" && c.TwitchAccessToken != ""
}

func validate(cfg *Config) error {
	if (cfg.TwitchClientID == "") != (cfg.TwitchAccessToken == "") {
		return errors.New("TWITCH_CLIENT_ID and TWITCH_ACCESS_TOKEN must be set together")
	}

	if cfg.AppEnv == "production" && cfg.APIToken == "" {
		return errors.New("API_TOKEN is required in production")
	}

	if cfg.APIRateLimit <= 0 || cfg.APIRateBurst < 1 {
		return errors.New("API_RATE_LIMIT and API_RATE_BURST must be positive")
	}

	if cfg.EventNamespace == "" {
		return errors.New("EVENT_NAMESPACE must not be empty")
	}

	if cfg.ChatConnectTimeout <= 0 {
		return fmt.Errorf("CHAT_CONNECT_TIMEOUT must be positive, got %s", cfg.ChatConnectTimeout)
	}

	if cfg.ChatMessagesPerWindow < 1 || cfg.ChatRateWindow <= 0 {
		return errors.New("CHAT_MESSAGES_PER_WINDOW and CHAT_RATE_WINDOW must be positive")
	}

	if cfg.NotifyQueueSize < 1 {
		return fmt.Errorf("NOTIFY_QUEUE_SIZE must be at least 1, got %d", cfg.NotifyQueueSize)
	}

	if cfg.WSHistorySize < 0 || cfg.WSHistoryTTL < 0 {
		return errors.New("WS_HISTORY_SIZE and WS_HISTORY_TTL must not be negative")
	}

	return nil
}
