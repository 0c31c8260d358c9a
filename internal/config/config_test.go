package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/hanamilabs/frc-clock-bot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_PATH", "DATA_DIR", "SESSION_PATH", "STORE_BACKEND", "DATABASE_PATH",
		"CHAT_TRANSPORT", "BOT_TOKEN", "BOT_POLLING_INTERVAL_SECONDS", "TWITCH_USERNAME",
		"TWITCH_OAUTH_TOKEN", "TBA_BASE_URL", "TBA_TIMEOUT_MS", "TICK_SCHEDULE", "TICK_OVERLAP",
		"HEALTH_PORT", "LOG_LEVEL", "LOG_FORMAT", "LOG_MAX_SIZE_MB", "SENTRY_DSN", "SENTRY_ENVIRONMENT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "./config.json", cfg.ConfigPath)
	assert.Equal(t, filepath.Join("./data", "session.json"), cfg.SessionPath)
	assert.Equal(t, "file", cfg.StoreBackend)
	assert.Equal(t, "telegram", cfg.ChatTransport)
	assert.Equal(t, "https://www.thebluealliance.com/api/v3", cfg.TBABaseURL)
	assert.Equal(t, time.Duration(0), cfg.TBATimeout)
	assert.Equal(t, "* * * * *", cfg.TickSchedule)
	assert.Equal(t, domain.OverlapAllow, cfg.TickOverlap)
	assert.Equal(t, 0, cfg.HealthPort)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, filepath.Join("./data", "logs", "bot.log"), cfg.LogFilePath)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_DIR", "/var/lib/frc")
	t.Setenv("STORE_BACKEND", "SQLite")
	t.Setenv("CHAT_TRANSPORT", "twitch")
	t.Setenv("TBA_BASE_URL", "http://localhost:8080/api/v3/")
	t.Setenv("TBA_TIMEOUT_MS", "2500")
	t.Setenv("TICK_OVERLAP", "skip")
	t.Setenv("HEALTH_PORT", "9090")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.StoreBackend)
	assert.Equal(t, filepath.Join("/var/lib/frc", "bot.db"), cfg.DatabasePath)
	assert.Equal(t, "twitch", cfg.ChatTransport)
	assert.Equal(t, "http://localhost:8080/api/v3", cfg.TBABaseURL)
	assert.Equal(t, 2500*time.Millisecond, cfg.TBATimeout)
	assert.Equal(t, domain.OverlapSkip, cfg.TickOverlap)
	assert.Equal(t, 9090, cfg.HealthPort)
}

func TestLoadFromEnvRejectsBadValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{key: "STORE_BACKEND", value: "postgres"},
		{key: "CHAT_TRANSPORT", value: "whatsapp"},
		{key: "TICK_OVERLAP", value: "queue"},
		{key: "TBA_TIMEOUT_MS", value: "-1"},
		{key: "HEALTH_PORT", value: "abc"},
		{key: "LOG_FORMAT", value: "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := LoadFromEnv()
			assert.ErrorContains(t, err, tt.key)
		})
	}
}

func TestRequireTransportCredentials(t *testing.T) {
	assert.Error(t, Config{ChatTransport: "telegram"}.RequireTransportCredentials())
	assert.NoError(t, Config{ChatTransport: "telegram", BotToken: "123:abc"}.RequireTransportCredentials())
	assert.Error(t, Config{ChatTransport: "twitch"}.RequireTransportCredentials())
	assert.NoError(t, Config{ChatTransport: "twitch", TwitchUsername: "frcbot"}.RequireTransportCredentials())
}
