package config_test

import (
	"testing"
	"time"

	testify "github.com/stretchr/testify/assert"

	"github.com/kode4food/signwiz/internal/assert"
	"github.com/kode4food/signwiz/internal/config"
	"github.com/kode4food/signwiz/pkg/api"
)

func TestConfigValidation(t *testing.T) {
	as := assert.New(t)

	t.Run("valid_default_config", func(t *testing.T) {
		as.ConfigValid(config.NewDefaultConfig())
	})

	tests := []struct {
		name          string
		configMod     func(*config.Config)
		errorContains string
	}{
		{
			name: "invalid_api_port_zero",
			configMod: func(c *config.Config) {
				c.APIPort = 0
			},
			errorContains: "invalid API port",
		},
		{
			name: "invalid_api_port_too_high",
			configMod: func(c *config.Config) {
				c.APIPort = 70000
			},
			errorContains: "invalid API port",
		},
		{
			name: "empty_environment",
			configMod: func(c *config.Config) {
				c.Environment = " "
			},
			errorContains: "environment empty",
		},
		{
			name: "poll_interval_too_small",
			configMod: func(c *config.Config) {
				c.PollInterval = time.Millisecond
			},
			errorContains: "poll interval out of range",
		},
		{
			name: "negative_auto_delay",
			configMod: func(c *config.Config) {
				c.AutoDelay = -time.Second
			},
			errorContains: "auto delay out of range",
		},
		{
			name: "negative_request_timeout",
			configMod: func(c *config.Config) {
				c.RequestTimeout = -time.Second
			},
			errorContains: "request timeout",
		},
		{
			name: "zero_history_limit",
			configMod: func(c *config.Config) {
				c.Store.HistoryLimit = 0
			},
			errorContains: "history limit",
		},
		{
			name: "duplicate_terminal_tags",
			configMod: func(c *config.Config) {
				c.Tags.RolloutFailed = c.Tags.RolloutSuccess
			},
			errorContains: "terminal tags",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewDefaultConfig()
			tt.configMod(cfg)
			as.ConfigInvalid(cfg, tt.errorContains)
		})
	}
}

func TestDefaultConfigValues(t *testing.T) {
	as := assert.New(t)

	cfg := config.NewDefaultConfig()

	as.Equal(config.DefaultAPIPort, cfg.APIPort)
	as.Equal("0.0.0.0", cfg.APIHost)
	as.Equal(config.EnvDevelopment, cfg.Environment)
	as.Equal(3*time.Second, cfg.PollInterval)
	as.Equal(900*time.Millisecond, cfg.AutoDelay)
	as.Equal(time.Duration(0), cfg.RequestTimeout)
	as.Equal(api.TagPreparationFailed, cfg.Tags.PreparationFailed)
	as.False(cfg.StrictNavigation)
	as.False(cfg.StoreEnabled())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SIGNWIZ_ENVIRONMENT", "staging")
	t.Setenv("SIGNWIZ_BASE_URL", "http://localhost:9999")
	t.Setenv("API_PORT", "9090")
	t.Setenv("POLL_INTERVAL", "250")
	t.Setenv("AUTO_DELAY", "2s")
	t.Setenv("STRICT_NAVIGATION", "true")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("HISTORY_LIMIT", "5")
	t.Setenv("TAG_ROLLOUT_FAILED", "rollout_rejected")

	cfg := config.NewDefaultConfig()
	testify.NoError(t, cfg.LoadFromEnv())

	testify.Equal(t, "staging", cfg.Environment)
	testify.Equal(t, "http://localhost:9999", cfg.BaseURL)
	testify.Equal(t, 9090, cfg.APIPort)
	testify.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	testify.Equal(t, 2*time.Second, cfg.AutoDelay)
	testify.True(t, cfg.StrictNavigation)
	testify.True(t, cfg.StoreEnabled())
	testify.Equal(t, 2, cfg.Store.DB)
	testify.Equal(t, 5, cfg.Store.HistoryLimit)
	testify.Equal(t, "rollout_rejected", cfg.Tags.RolloutFailed)
	testify.NoError(t, cfg.Validate())
}

func TestLoadFromEnvErrors(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"API_PORT", "not-a-number"},
		{"API_PORT", "70000"},
		{"POLL_INTERVAL", "soon"},
		{"STRICT_NAVIGATION", "maybe"},
		{"REDIS_DB", "99"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			cfg := config.NewDefaultConfig()
			testify.Error(t, cfg.LoadFromEnv())
		})
	}
}
