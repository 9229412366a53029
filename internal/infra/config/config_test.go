package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 7, cfg.Forecast.Horizon)
	require.Equal(t, 3, cfg.Forecast.CombinedHorizon)
	require.Equal(t, 100, cfg.Prompt.MaxWindow)
	require.Equal(t, 30*24*time.Hour, cfg.Drift.DefaultSpan)
	require.False(t, cfg.Cache.Enabled)
	require.False(t, cfg.HTTP.Auth.Enabled())
}

func TestLoadFileWithEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.yaml")
	content := `
forecast:
  horizon: 5
series:
  default: pg
  sources:
    - id: pg
      type: postgres
      table: daily_usage
      layout: "2006-01-02"
      columns:
        timestamp: day
        value: used
cache:
  enabled: true
  backend: memory
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("DATABASE_URL", "postgres://localhost/usage")
	t.Setenv("FORECAST_HORIZON", "4")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("CACHE_TTL", "90s")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Forecast.Horizon)
	require.Equal(t, "postgres://localhost/usage", cfg.Series.DatabaseURL)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
	require.Equal(t, 90*time.Second, cfg.Cache.TTL)
	require.Equal(t, "day", cfg.Series.Sources[0].Columns.Timestamp)
}

func TestLoadFileReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RESPONDER_MODEL=mistral\n"), 0o600))
	t.Setenv("RESPONDER_MODEL", "")
	require.NoError(t, os.Unsetenv("RESPONDER_MODEL"))

	cfg, err := LoadFile("")
	require.NoError(t, err)
	require.Equal(t, "mistral", cfg.Responder.HTTP.Model)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"horizon above max", func(c *Config) { c.Forecast.Horizon = 91 }},
		{"zero window", func(c *Config) { c.Prompt.MaxWindow = 0 }},
		{"unknown provider", func(c *Config) { c.Responder.Provider = "carrier-pigeon" }},
		{"openai without key", func(c *Config) { c.Responder.Provider = ProviderOpenAI }},
		{"gemini without key", func(c *Config) { c.Responder.Provider = ProviderGemini }},
		{"valkey without addr", func(c *Config) {
			c.Cache.Enabled = true
			c.Cache.Backend = CacheValkey
		}},
		{"default not configured", func(c *Config) { c.Series.Default = "other" }},
		{"duplicate source", func(c *Config) {
			c.Series.Sources = append(c.Series.Sources, c.Series.Sources[0])
		}},
		{"postgres without dsn", func(c *Config) {
			c.Series.Sources = []SourceConfig{{ID: "usage", Type: SourcePostgres, Table: "t"}}
		}},
		{"s3 without bucket", func(c *Config) {
			c.Series.Sources = []SourceConfig{{ID: "usage", Type: SourceS3, S3: S3Config{Endpoint: "e", Key: "k"}}}
		}},
		{"rate limit without burst", func(c *Config) { c.HTTP.RateLimit.Burst = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
