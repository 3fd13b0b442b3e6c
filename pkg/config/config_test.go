package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "data/skills.json", cfg.CatalogPath)
	assert.Equal(t, "public/skills", cfg.SkillsRoot)
	assert.Equal(t, "localhost", cfg.Serve.Host)
	assert.Equal(t, 8080, cfg.Serve.Port)
	assert.Equal(t, []string{"*"}, cfg.Serve.CORSOrigins)
	assert.Empty(t, cfg.Files.Exclude)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.APIURL)
	assert.Equal(t, 4, cfg.Sync.Concurrency)
	assert.Equal(t, 3, cfg.Sync.Retry.Attempts)
	assert.Equal(t, "exponential", cfg.Sync.Retry.BackoffType)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "data/skills.json", cfg.CatalogPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "fmt", cfg.LogFormat)
	assert.Equal(t, 4, cfg.Sync.Concurrency)
	assert.Equal(t, "ratio", cfg.Tracing.Sampler)
	assert.Equal(t, 1.0, cfg.Tracing.Ratio)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_GitHubTokenFallsBackToEnvironment(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_env")
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "ghp_env", cfg.GitHub.Token)

	v.Set("github.token", "ghp_config")
	cfg, err = Load(v)
	require.NoError(t, err)
	assert.Equal(t, "ghp_config", cfg.GitHub.Token)
}

func TestInit_ReadsConfigFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("OPENSKILLS_SERVE_PORT", "9191")

	content := `catalog_path: catalog.yaml
skills_root: skills
serve:
  cors_origins:
    - "https://*.openskills.space"
files:
  exclude:
    - "**/.git"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	v := viper.New()
	require.NoError(t, Init(v))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "catalog.yaml", cfg.CatalogPath)
	assert.Equal(t, "skills", cfg.SkillsRoot)
	assert.Equal(t, 9191, cfg.Serve.Port)
	assert.Equal(t, []string{"https://*.openskills.space"}, cfg.Serve.CORSOrigins)
	assert.Equal(t, []string{"**/.git"}, cfg.Files.Exclude)
}

func TestInit_MissingConfigFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	require.NoError(t, Init(viper.New()))
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			CatalogPath: "data/skills.json",
			SkillsRoot:  "public/skills",
			LogLevel:    "info",
			LogFormat:   "json",
			Sync:        SyncConfig{Concurrency: 1, Retry: RetryConfig{Attempts: 1, BackoffType: "fixed"}},
		}
	}

	tests := []struct {
		name          string
		mutate        func(*Config)
		expectedError string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty catalog path", mutate: func(c *Config) { c.CatalogPath = "" }, expectedError: "catalog_path cannot be empty"},
		{name: "empty skills root", mutate: func(c *Config) { c.SkillsRoot = "" }, expectedError: "skills_root cannot be empty"},
		{name: "zero concurrency", mutate: func(c *Config) { c.Sync.Concurrency = 0 }, expectedError: "sync.concurrency must be at least 1"},
		{name: "zero attempts", mutate: func(c *Config) { c.Sync.Retry.Attempts = 0 }, expectedError: "sync.retry.attempts must be at least 1"},
		{name: "unknown backoff", mutate: func(c *Config) { c.Sync.Retry.BackoffType = "random" }, expectedError: "backoff_type must be exponential or fixed"},
		{name: "unknown log level", mutate: func(c *Config) { c.LogLevel = "loud" }, expectedError: "log_level"},
		{name: "unknown log format", mutate: func(c *Config) { c.LogFormat = "xml" }, expectedError: `log_format: unknown log format "xml"`},
		{name: "bad sampler ignored while tracing is off", mutate: func(c *Config) { c.Tracing.Sampler = "sometimes" }},
		{name: "bad sampler", mutate: func(c *Config) { c.Tracing = TracingConfig{Enabled: true, Sampler: "sometimes"} }, expectedError: "tracing: unknown tracing sampler"},
		{name: "ratio out of range", mutate: func(c *Config) { c.Tracing = TracingConfig{Enabled: true, Sampler: "ratio", Ratio: 2} }, expectedError: "tracing ratio must be between 0 and 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.expectedError != "" {
				assert.ErrorContains(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
