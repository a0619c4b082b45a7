package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("REGDRAFT_SET", "value")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"set variable", "key: ${REGDRAFT_SET}", "key: value"},
		{"set variable ignores default", "key: ${REGDRAFT_SET:other}", "key: value"},
		{"unset with default", "key: ${REGDRAFT_UNSET:fallback}", "key: fallback"},
		{"unset with empty default", "key: ${REGDRAFT_UNSET:}", "key: "},
		{"unset without default kept", "key: ${REGDRAFT_UNSET}", "key: ${REGDRAFT_UNSET}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandEnv(tt.in))
		})
	}
}

func TestLoadFrom_DefaultsWithoutFiles(t *testing.T) {
	t.Setenv("APP_ENV", "nothing-here")

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "regdraft-ai-api", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.HTTP.Port)
	assert.Equal(t, 10*time.Minute, cfg.Server.HTTP.WriteTimeout)
	assert.Equal(t, "gemini", cfg.LLM.DefaultProvider)
	assert.Equal(t, 5*time.Minute, cfg.LLM.CallTimeout)
	assert.Equal(t, "claude", cfg.LLM.Providers["anthropic"].Type)
	assert.Equal(t, "https://api.x.ai/v1", cfg.LLM.Providers["xai"].BaseURL)
	assert.False(t, cfg.Workspace.GateNotes)
	assert.Equal(t, 12*time.Hour, cfg.Workspace.SessionTTL)
}

func TestLoadFrom_EnvironmentFileOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "staging")
	t.Setenv("REGDRAFT_TEST_PORT", "9191")

	writeConfig(t, dir, "config.yaml", `
server:
  http:
    port: ${REGDRAFT_TEST_PORT:8080}
workspace:
  gate_notes: false
llm:
  providers:
    gemini:
      type: mock
      mock_delay: 10ms
`)
	writeConfig(t, dir, "config.staging.yaml", `
workspace:
  gate_notes: true
`)

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.HTTP.Port)
	assert.True(t, cfg.Workspace.GateNotes)
	assert.Equal(t, "mock", cfg.LLM.Providers["gemini"].Type)
	assert.Equal(t, 10*time.Millisecond, cfg.LLM.Providers["gemini"].MockDelay)
	assert.Equal(t, "gemini-3-flash-preview", cfg.LLM.Providers["gemini"].Model)
}

func TestLoadFrom_InvalidProviderType(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "development")
	writeConfig(t, dir, "config.yaml", `
llm:
  providers:
    gemini:
      type: carrier-pigeon
`)

	_, err := LoadFrom(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")
}

func TestValidate(t *testing.T) {
	base := func() Config {
		var c Config
		c.Server.HTTP.Port = 8080
		return c
	}

	t.Run("auth without secret", func(t *testing.T) {
		c := base()
		c.Security.Auth.Enabled = true
		assert.Error(t, c.Validate())
	})

	t.Run("messaging without redis", func(t *testing.T) {
		c := base()
		c.Messaging.Enabled = true
		assert.Error(t, c.Validate())
	})

	t.Run("rate limit without redis", func(t *testing.T) {
		c := base()
		c.Security.RateLimit.Enabled = true
		assert.Error(t, c.Validate())
	})

	t.Run("valid", func(t *testing.T) {
		c := base()
		c.Cache.Redis.Enabled = true
		c.Messaging.Enabled = true
		assert.NoError(t, c.Validate())
	})
}

func TestAddrHelpers(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8080", HTTPServerConfig{Host: "127.0.0.1", Port: 8080}.Addr())
	assert.Equal(t, "redis:6379", RedisConfig{Host: "redis", Port: 6379}.Addr())
	assert.Contains(t, PostgresConfig{Host: "db", Port: 5432, SSLMode: "disable"}.DSN(), "host=db port=5432")
}
