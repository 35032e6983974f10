package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "twitch", cfg.EventNamespace)
	assert.Equal(t, 30*time.Second, cfg.ChatConnectTimeout)
	assert.Equal(t, 20, cfg.ChatMessagesPerWindow)
	assert.Equal(t, 1024, cfg.NotifyQueueSize)
	assert.Equal(t, 20.0, cfg.APIRateLimit)
	assert.Equal(t, 40, cfg.APIRateBurst)
	assert.Equal(t, "wss://eventsub.wss.twitch.tv/ws", cfg.EventSubWebSocketURL)
	assert.False(t, cfg.HasStartupCredentials())
}

func TestLoad_StartupCredentials(t *testing.T) {
	t.Setenv("TWITCH_CLIENT_ID", "client-id")
	t.Setenv("TWITCH_ACCESS_TOKEN", "token")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.HasStartupCredentials())
	assert.Equal(t, "client-id", cfg.TwitchClientID)
}

func TestLoad_InvalidCombinations(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "client id without token",
			env:     map[string]string{"TWITCH_CLIENT_ID": "client-id"},
			wantErr: "TWITCH_CLIENT_ID and TWITCH_ACCESS_TOKEN must be set together",
		},
		{
			name:    "token without client id",
			env:     map[string]string{"TWITCH_ACCESS_TOKEN": "token"},
			wantErr: "TWITCH_CLIENT_ID and TWITCH_ACCESS_TOKEN must be set together",
		},
		{
			name:    "production without api token",
			env:     map[string]string{"APP_ENV": "production"},
			wantErr: "API_TOKEN is required in production",
		},
		{
			name:    "zero rate burst",
			env:     map[string]string{"API_RATE_BURST": "0"},
			wantErr: "API_RATE_LIMIT and API_RATE_BURST must be positive",
		},
		{
			name:    "zero queue size",
			env:     map[string]string{"NOTIFY_QUEUE_SIZE": "0"},
			wantErr: "NOTIFY_QUEUE_SIZE must be at least 1, got 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestLoad_CustomPortAndEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("API_TOKEN", "secret")
	t.Setenv("CHAT_CONNECT_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "production", cfg.AppEnv)
	assert.Equal(t, 5*time.Second, cfg.ChatConnectTimeout)
}

func TestConfig_AllowedOrigins(t *testing.T) {
	cfg := &Config{WSAllowedOrigins: " https://host.example.com, ,http://localhost:3000 "}

	assert.Equal(t, []string{"https://host.example.com", "http://localhost:3000"}, cfg.AllowedOrigins())
	assert.Nil(t, (&Config{}).AllowedOrigins())
}
