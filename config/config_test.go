package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zergu1ar/steambot/steam"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadFromFile(t *testing.T) {
	path := writeFile(t, "bot.yaml", `
username: bot
password: hunter2
handler: tradeoffer
counter_strategy: keep-currency
poll_interval: 1m
admins:
  - "76561198000000003"
  - "[U:1:42]"
trade_tokens:
  "76561198000000002": AbC-1
`)

	cfg, err := Load(path, noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "bot", cfg.Username)
	assert.Equal(t, HandlerTradeOffer, cfg.Handler)
	assert.Equal(t, "keep-currency", cfg.CounterStrategy)
	assert.Equal(t, time.Minute, cfg.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.ConfirmationInterval)
	assert.Equal(t, steam.LanguageEng, cfg.Language)
	assert.Equal(t, ":9090", cfg.MetricsAddr)

	admins, err := cfg.AdminIDs()
	require.NoError(t, err)
	var steam3 steam.SteamID
	steam3.ParseDefaults(42)
	assert.Equal(t, []steam.SteamID{76561198000000003, steam3}, admins)

	tokens, err := cfg.PartnerTradeTokens()
	require.NoError(t, err)
	assert.Equal(t, map[steam.SteamID]string{76561198000000002: "AbC-1"}, tokens)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "bot.yaml", "username: bot\npassword: hunter2\n")
	t.Setenv("STEAMBOT_USERNAME", "other")
	t.Setenv("STEAMBOT_LOG_LEVEL", "debug")

	cfg, err := Load(path, noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "other", cfg.Username)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, HandlerSimple, cfg.Handler)
}

func TestLoadDotEnv(t *testing.T) {
	envFile := writeFile(t, ".env", "STEAMBOT_USERNAME=dotenv\nSTEAMBOT_PASSWORD=secret\n")
	t.Cleanup(func() {
		os.Unsetenv("STEAMBOT_USERNAME")
		os.Unsetenv("STEAMBOT_PASSWORD")
	})

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "dotenv", cfg.Username)
	assert.Equal(t, "secret", cfg.Password)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), noEnvFile(t))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Username:             "bot",
		Password:             "pw",
		Handler:              HandlerSimple,
		CounterStrategy:      "empty",
		PollInterval:         time.Second,
		ConfirmationInterval: time.Second,
		LogFormat:            "json",
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		modify func(c *Config)
		want   string
	}{
		{"no username", func(c *Config) { c.Username = "" }, "username is required"},
		{"bad handler", func(c *Config) { c.Handler = "greedy" }, `unknown handler "greedy"`},
		{"bad strategy", func(c *Config) { c.CounterStrategy = "all" }, `unknown counter strategy "all"`},
		{"zero interval", func(c *Config) { c.PollInterval = 0 }, "intervals must be positive"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, `unknown log format "xml"`},
		{"bad admin", func(c *Config) { c.Admins = []string{"gaben"} }, `admin "gaben"`},
		{"bad trade token", func(c *Config) { c.TradeTokens = map[string]string{"gaben": "x"} }, `trade token for "gaben"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.modify(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
