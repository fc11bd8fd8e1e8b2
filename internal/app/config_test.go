package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.APIURL = "https://sim.example.com"
	return cfg
}

func TestConfigFromEnv_EnvironmentBeatsEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"SIMGRID_API_URL=https://from-file.example.com\n"+
			"SIMGRID_API_TOKEN=file-token\n"+
			"SIMGRID_POLL_INITIAL=250ms\n"+
			"SIMGRID_GZIP=true\n"), 0o600))
	t.Setenv(EnvAPIURL, "https://from-env.example.com")
	t.Setenv(EnvPollGrowth, "1.5")

	cfg, err := ConfigFromEnv(envFile)
	require.NoError(t, err)

	assert.Equal(t, "https://from-env.example.com", cfg.APIURL)
	assert.Equal(t, "file-token", cfg.APIToken)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInitial)
	assert.InDelta(t, 1.5, cfg.PollGrowth, 1e-9)
	assert.True(t, cfg.Gzip)
	assert.Equal(t, 30*time.Second, cfg.PollMax, "unset keys keep defaults")
}

func TestConfigFromEnv_MissingEnvFileIsFine(t *testing.T) {
	cfg, err := ConfigFromEnv(filepath.Join(t.TempDir(), "nope.env"))
	require.NoError(t, err)
	assert.Equal(t, "v1", cfg.APIVersion)
}

func TestConfigFromEnv_ReportsEveryBadValue(t *testing.T) {
	t.Setenv(EnvPollMax, "forever")
	t.Setenv(EnvGzip, "maybe")

	_, err := ConfigFromEnv("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvPollMax)
	assert.Contains(t, err.Error(), EnvGzip)
}

func TestNewConfig_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		msg    string
	}{
		{"missing url", func(c *Config) { c.APIURL = "" }, "API URL is required"},
		{"relative url", func(c *Config) { c.APIURL = "sim.example.com" }, "not an absolute URL"},
		{"bad version", func(c *Config) { c.APIVersion = "v1/jobs" }, "single path segment"},
		{"bad encoding", func(c *Config) { c.Encoding = "xml" }, "unknown encoding"},
		{"shrinking poll", func(c *Config) { c.PollGrowth = 0.9 }, "growth factor"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log level"},
		{"bad format", func(c *Config) { c.LogFormat = "yaml" }, "log format"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			_, err := NewConfig(cfg)
			assert.ErrorContains(t, err, tc.msg)
		})
	}

	cfg, err := NewConfig(validConfig())
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.PollerConfig().InitialInterval)
	assert.Equal(t, "https://sim.example.com", cfg.TransportConfig().BaseURL)
}
