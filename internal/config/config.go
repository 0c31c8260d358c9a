package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hanamilabs/frc-clock-bot/internal/domain"
)

type Config struct {
	ConfigPath          string
	DataDir             string
	SessionPath         string
	StoreBackend        string
	DatabasePath        string
	ChatTransport       string
	BotToken            string
	BotPollingIntervalS int
	TwitchUsername      string
	TwitchOAuthToken    string
	TBABaseURL          string
	TBATimeout          time.Duration
	TickSchedule        string
	TickOverlap         domain.OverlapPolicy
	HealthPort          int
	LogLevel            string
	LogFormat           string
	LogFilePath         string
	LogMaxSizeMB        int
	LogMaxBackups       int
	LogMaxAgeDays       int
	SentryDSN           string
	SentryEnvironment   string
}

func LoadFromEnv() (Config, error) {
	dataDir := defaultString(os.Getenv("DATA_DIR"), "./data")

	pollingInterval, err := parseIntWithDefault("BOT_POLLING_INTERVAL_SECONDS", 2)
	if err != nil {
		return Config{}, err
	}
	tbaTimeoutMs, err := parseIntWithDefault("TBA_TIMEOUT_MS", 0)
	if err != nil {
		return Config{}, err
	}
	healthPort, err := parseIntWithDefault("HEALTH_PORT", 0)
	if err != nil {
		return Config{}, err
	}
	logMaxSize, err := parseIntWithDefault("LOG_MAX_SIZE_MB", 10)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ConfigPath:          defaultString(os.Getenv("CONFIG_PATH"), "./config.json"),
		DataDir:             dataDir,
		SessionPath:         defaultString(os.Getenv("SESSION_PATH"), filepath.Join(dataDir, "session.json")),
		StoreBackend:        strings.ToLower(defaultString(os.Getenv("STORE_BACKEND"), "file")),
		DatabasePath:        defaultString(os.Getenv("DATABASE_PATH"), filepath.Join(dataDir, "bot.db")),
		ChatTransport:       strings.ToLower(defaultString(os.Getenv("CHAT_TRANSPORT"), "telegram")),
		BotToken:            strings.TrimSpace(os.Getenv("BOT_TOKEN")),
		BotPollingIntervalS: pollingInterval,
		TwitchUsername:      strings.TrimSpace(os.Getenv("TWITCH_USERNAME")),
		TwitchOAuthToken:    strings.TrimSpace(os.Getenv("TWITCH_OAUTH_TOKEN")),
		TBABaseURL:          strings.TrimRight(defaultString(os.Getenv("TBA_BASE_URL"), "https://www.thebluealliance.com/api/v3"), "/"),
		TBATimeout:          time.Duration(tbaTimeoutMs) * time.Millisecond,
		TickSchedule:        defaultString(os.Getenv("TICK_SCHEDULE"), "* * * * *"),
		TickOverlap:         domain.OverlapPolicy(strings.ToLower(defaultString(os.Getenv("TICK_OVERLAP"), string(domain.OverlapAllow)))),
		HealthPort:          healthPort,
		LogLevel:            defaultString(os.Getenv("LOG_LEVEL"), "info"),
		LogFormat:           strings.ToLower(defaultString(os.Getenv("LOG_FORMAT"), "json")),
		LogFilePath:         filepath.Join(dataDir, "logs", "bot.log"),
		LogMaxSizeMB:        logMaxSize,
		LogMaxBackups:       5,
		LogMaxAgeDays:       14,
		SentryDSN:           strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		SentryEnvironment:   defaultString(os.Getenv("SENTRY_ENVIRONMENT"), "production"),
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.StoreBackend != "file" && cfg.StoreBackend != "sqlite" {
		return fmt.Errorf("STORE_BACKEND must be file or sqlite: got %q", cfg.StoreBackend)
	}
	if cfg.ChatTransport != "telegram" && cfg.ChatTransport != "twitch" {
		return fmt.Errorf("CHAT_TRANSPORT must be telegram or twitch: got %q", cfg.ChatTransport)
	}
	if cfg.TickOverlap != domain.OverlapAllow && cfg.TickOverlap != domain.OverlapSkip {
		return fmt.Errorf("TICK_OVERLAP must be allow or skip: got %q", cfg.TickOverlap)
	}
	if cfg.TBATimeout < 0 {
		return fmt.Errorf("TBA_TIMEOUT_MS must be >= 0: got %d", cfg.TBATimeout.Milliseconds())
	}
	if cfg.HealthPort < 0 {
		return fmt.Errorf("HEALTH_PORT must be >= 0: got %d", cfg.HealthPort)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return fmt.Errorf("LOG_FORMAT must be json or text: got %q", cfg.LogFormat)
	}
	return nil
}

// RequireTransportCredentials is checked only by commands that connect to chat.
func (c Config) RequireTransportCredentials() error {
	switch c.ChatTransport {
	case "telegram":
		if c.BotToken == "" {
			return errors.New("BOT_TOKEN is required when CHAT_TRANSPORT=telegram")
		}
	case "twitch":
		if c.TwitchUsername == "" {
			return errors.New("TWITCH_USERNAME is required when CHAT_TRANSPORT=twitch")
		}
	}
	return nil
}

func parseIntWithDefault(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be integer: %w", key, err)
	}
	return v, nil
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
