package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaultsOnly(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "memory", cfg.Progress.Backend)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.LLM.BaseURL)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  http_port: 9090
  shutdown_timeout: 5s
llm:
  api_key: sk-test
  timeout: 45s
models:
  gatekeeper: openai/gpt-4-turbo
  notary: anthropic/claude-3-opus
  expert_default: openai/gpt-4-turbo
  available:
    - openai/gpt-4-turbo
    - anthropic/claude-3-opus
store:
  driver: memory
progress:
  backend: redis
  redis:
    addr: redis:6379
`)

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.HTTPPort)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "openai/gpt-4-turbo", cfg.Models.Gatekeeper)
	assert.Len(t, cfg.Models.Available, 2)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "redis:6379", cfg.Progress.Redis.Addr)
	// Untouched sections keep their defaults.
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestEnvOverridesYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  http_port: 9090
llm:
  api_key: from-yaml
`)
	t.Setenv("ROUNDWISE_SERVER_HTTP_PORT", "7070")
	t.Setenv("ROUNDWISE_LLM_API_KEY", "from-env")
	t.Setenv("ROUNDWISE_LLM_TIMEOUT", "30s")
	t.Setenv("ROUNDWISE_MODELS_AVAILABLE", "m/1, m/2 ,m/3")
	t.Setenv("ROUNDWISE_TELEMETRY_ENABLED", "true")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.HTTPPort)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, []string{"m/1", "m/2", "m/3"}, cfg.Models.Available)
	assert.True(t, cfg.Telemetry.Enabled)
}

func TestDotEnvFolding(t *testing.T) {
	path := writeFile(t, ".env", "ROUNDWISE_LLM_API_KEY=from-dotenv\n")

	cfg, err := NewLoader().WithDotEnv(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.LLM.APIKey)
}

func TestDotEnvMissingFileIgnored(t *testing.T) {
	_, err := NewLoader().WithDotEnv("/nonexistent/.env").Load()
	require.NoError(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.LLM.APIKey = "sk-test"
		cfg.Models.Gatekeeper = "m/g"
		cfg.Models.Notary = "m/n"
		cfg.Models.ExpertDefault = "m/e"
		return cfg
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing api key", func(c *Config) { c.LLM.APIKey = "" }, "api_key"},
		{"missing models", func(c *Config) { c.Models.Notary = "" }, "models"},
		{"bad port", func(c *Config) { c.Server.HTTPPort = 0 }, "HTTP port"},
		{"bad store driver", func(c *Config) { c.Store.Driver = "mongo" }, "store driver"},
		{"bad progress backend", func(c *Config) { c.Progress.Backend = "etcd" }, "progress backend"},
		{"temperature out of range", func(c *Config) { c.Models.Temperature = 3 }, "temperature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoaderWithValidator(t *testing.T) {
	_, err := NewLoader().
		WithValidator(func(c *Config) error { return c.Validate() }).
		Load()
	require.Error(t, err, "defaults alone fail validation, api key and models are required")
}
