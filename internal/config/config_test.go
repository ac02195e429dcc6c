package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"HOST", "PORT", "ACCESS_KEY", "FAL_API_KEYS",
		"HTTP_READ_TIMEOUT_SECONDS", "HTTP_WRITE_TIMEOUT_SECONDS", "HTTP_IDLE_TIMEOUT_SECONDS",
		"LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestNewConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := NewConfig()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Empty(t, cfg.AccessKey)
	assert.Empty(t, cfg.FalKeys)
	assert.Equal(t, 60*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 900*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 120*time.Second, cfg.IdleTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestNewConfig_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9000")
	t.Setenv("ACCESS_KEY", " secret ")
	t.Setenv("FAL_API_KEYS", "key-1, key-2 ,,key-3")
	t.Setenv("HTTP_READ_TIMEOUT_SECONDS", "30")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := NewConfig()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
	assert.Equal(t, "secret", cfg.AccessKey)
	assert.Equal(t, []string{"key-1", "key-2", "key-3"}, cfg.FalKeys)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestNewConfig_InvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "70000")

	_, err := NewConfig()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := &Config{Port: -1}

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
	assert.Contains(t, err.Error(), "timeouts must be positive")
}

func TestParseKeys(t *testing.T) {
	assert.Nil(t, parseKeys(""))
	assert.Nil(t, parseKeys(" , ,"))
	assert.Equal(t, []string{"a", "b"}, parseKeys("a,b"))
	assert.Equal(t, []string{"a"}, parseKeys(" a "))
}
