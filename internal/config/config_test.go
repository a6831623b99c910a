package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "INR", cfg.Currency)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
}

func TestLoad_MissingOptionalFile(t *testing.T) {
	cfg, err := Load(Source{File: filepath.Join(t.TempDir(), "absent.yaml")})
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoad_MissingRequiredFile(t *testing.T) {
	_, err := Load(Source{File: filepath.Join(t.TempDir(), "absent.yaml"), Required: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "khata.yaml", `
backend: memory
currency: USD
strict_delete: true
timeout: 2s
log:
  level: debug
  format: json
`)
	cfg, err := Load(Source{File: path, Required: true})
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, "USD", cfg.Currency)
	assert.True(t, cfg.StrictDelete)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, Log{Level: "debug", Format: "json"}, cfg.Log)
	// Untouched keys keep their defaults.
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "khata.yaml", "")
	cfg, err := Load(Source{File: path, Required: true})
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	path := writeFile(t, t.TempDir(), "khata.yaml", "backnd: memory\n")
	_, err := Load(Source{File: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "khata.yaml", "backend: memory\ncurrency: USD\n")
	t.Setenv("KHATA_CURRENCY", "EUR")
	t.Setenv("KHATA_LOG_LEVEL", "warn")

	cfg, err := Load(Source{File: path})
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_EnvFile(t *testing.T) {
	const key = "KHATA_LISTEN"
	_, set := os.LookupEnv(key)
	require.False(t, set, "%s must not be set for this test", key)
	t.Cleanup(func() { os.Unsetenv(key) })

	envPath := writeFile(t, t.TempDir(), ".env", key+"=0.0.0.0:9090\n")
	cfg, err := Load(Source{EnvFiles: []string{filepath.Join(t.TempDir(), "missing.env"), envPath}})
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.Listen)
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("KHATA_STRICT_DELETE", "sometimes")
	_, err := Load(Source{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KHATA_")
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Backend = "postgres" }},
		{"sqlite without database", func(c *Config) { c.Database = "" }},
		{"http without url", func(c *Config) { c.Backend = BackendHTTP }},
		{"http with ftp url", func(c *Config) { c.Backend = BackendHTTP; c.RemoteURL = "ftp://x" }},
		{"lowercase currency", func(c *Config) { c.Currency = "inr" }},
		{"listen without port", func(c *Config) { c.Listen = "localhost" }},
		{"timeout too short", func(c *Config) { c.Timeout = time.Millisecond }},
		{"unknown log level", func(c *Config) { c.Log.Level = "trace" }},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func TestValidate_Accepts(t *testing.T) {
	cfg := Default()
	cfg.Backend = BackendHTTP
	cfg.RemoteURL = "https://ledger.example.com"
	cfg.Database = ""
	assert.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.Backend = BackendMemory
	cfg.Database = ""
	assert.NoError(t, cfg.Validate())
}
