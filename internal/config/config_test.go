package config

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channels-core/internal/signature"
)

var envKeys = []string{
	"PUSHER_APP_ID", "PUSHER_KEY", "PUSHER_SECRET", "PUSHER_URL",
	"PUSHER_ENCRYPTION_MASTER_KEY_BASE64", "PUSHER_TIMESTAMP_GRACE", "PUSHER_WEBHOOK_EXTRA_TOKENS",
	"PORT", "LOG_LEVEL", "REDIS_ADDRESS", "REDIS_PASSWORD", "REDIS_DB",
	"RATE_LIMIT_ENABLED", "RATE_LIMIT_PER_SECOND", "RATE_LIMIT_BURST",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func validConfig() *Config {
	return &Config{
		AppID:              "1",
		Key:                "key",
		Secret:             "secret",
		TimestampGrace:     "600",
		Port:               "8080",
		RedisDB:            "0",
		RateLimitEnabled:   true,
		RateLimitPerSecond: "10",
		RateLimitBurst:     "20",
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "600", cfg.TimestampGrace)
	assert.Equal(t, "", cfg.RedisAddress)
	assert.Equal(t, "0", cfg.RedisDB)
	assert.True(t, cfg.RateLimitEnabled)
	assert.Equal(t, "10", cfg.RateLimitPerSecond)
	assert.Equal(t, "20", cfg.RateLimitBurst)
	assert.Error(t, cfg.Validate())
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PUSHER_APP_ID", "42")
	t.Setenv("PUSHER_KEY", "key")
	t.Setenv("PUSHER_SECRET", "secret")
	t.Setenv("PUSHER_TIMESTAMP_GRACE", "off")
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg := Load()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "42", cfg.AppID)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "localhost:6379", cfg.RedisAddress)
	assert.False(t, cfg.RateLimitEnabled)

	grace, err := cfg.Grace()
	require.NoError(t, err)
	assert.Equal(t, signature.GraceDisabled, grace)
}

func TestGetBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"false", true, false},
		{"0", true, false},
		{"maybe", true, true},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.value)
			assert.Equal(t, tt.want, getBoolEnv("TEST_BOOL", tt.def))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	masterKey := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"url instead of credentials", func(c *Config) { c.AppID, c.Key, c.Secret, c.URL = "", "", "", "http://k:s@host/apps/1" }, ""},
		{"missing secret", func(c *Config) { c.Secret = "" }, "PUSHER_SECRET"},
		{"bad port", func(c *Config) { c.Port = "99999" }, "PORT"},
		{"zero grace", func(c *Config) { c.TimestampGrace = "0" }, "PUSHER_TIMESTAMP_GRACE"},
		{"word grace", func(c *Config) { c.TimestampGrace = "long" }, "PUSHER_TIMESTAMP_GRACE"},
		{"valid master key", func(c *Config) { c.MasterKeyBase64 = masterKey }, ""},
		{"short master key", func(c *Config) { c.MasterKeyBase64 = "c2hvcnQ=" }, "PUSHER_ENCRYPTION_MASTER_KEY_BASE64"},
		{"extra tokens", func(c *Config) { c.WebhookExtraTokens = "a:b, c:d" }, ""},
		{"bad extra tokens", func(c *Config) { c.WebhookExtraTokens = "a:b,c" }, "PUSHER_WEBHOOK_EXTRA_TOKENS"},
		{"redis db out of range", func(c *Config) { c.RedisAddress = "localhost:6379"; c.RedisDB = "16" }, "REDIS_DB"},
		{"redis db ignored without address", func(c *Config) { c.RedisDB = "x" }, ""},
		{"bad rate", func(c *Config) { c.RateLimitPerSecond = "0" }, "RATE_LIMIT_PER_SECOND"},
		{"bad burst", func(c *Config) { c.RateLimitBurst = "none" }, "RATE_LIMIT_BURST"},
		{"rate ignored when disabled", func(c *Config) { c.RateLimitEnabled = false; c.RateLimitBurst = "none" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_Accessors(t *testing.T) {
	cfg := validConfig()
	cfg.TimestampGrace = "30"
	cfg.WebhookExtraTokens = "old:secret1,other:secret2"

	grace, err := cfg.Grace()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, grace)

	tokens, err := cfg.WebhookTokens()
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "old", tokens[0].Key)
	assert.Equal(t, []byte("secret2"), tokens[1].Secret)

	key, err := cfg.MasterKey()
	require.NoError(t, err)
	assert.Nil(t, key)

	rps, burst := cfg.RateLimit()
	assert.Equal(t, 10.0, rps)
	assert.Equal(t, 20, burst)
}
