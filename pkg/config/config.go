// Package config defines the openskills configuration and loads it from
// viper, which merges defaults, the config file, OPENSKILLS_* environment
// variables and bound command-line flags.
package config

import (
	"os"
	"strings"

	"github.com/openskills/openskills/pkg/logger"
	"github.com/openskills/openskills/pkg/telemetry"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable override.
const EnvPrefix = "OPENSKILLS"

// Config holds the application configuration.
type Config struct {
	CatalogPath string        `mapstructure:"catalog_path"`
	SkillsRoot  string        `mapstructure:"skills_root"`
	LogLevel    string        `mapstructure:"log_level"`
	LogFormat   string        `mapstructure:"log_format"`
	Serve       ServeConfig   `mapstructure:"serve"`
	Files       FilesConfig   `mapstructure:"files"`
	GitHub      GitHubConfig  `mapstructure:"github"`
	Sync        SyncConfig    `mapstructure:"sync"`
	Tracing     TracingConfig `mapstructure:"tracing"`
}

// ServeConfig configures the HTTP server.
type ServeConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// CORSOrigins are glob patterns of allowed Origin values; "*" allows any.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// FilesConfig configures how skill directories are read.
type FilesConfig struct {
	// Exclude lists doublestar patterns hidden from listings and archives.
	Exclude []string `mapstructure:"exclude"`
}

// GitHubConfig configures the GitHub contents API used by sync and add.
type GitHubConfig struct {
	Token  string `mapstructure:"token"`
	APIURL string `mapstructure:"api_url"`
}

// SyncConfig configures skill ingestion.
type SyncConfig struct {
	Concurrency int         `mapstructure:"concurrency"`
	Retry       RetryConfig `mapstructure:"retry"`
}

// RetryConfig configures retries of GitHub requests.
type RetryConfig struct {
	Attempts int `mapstructure:"attempts"`
	// InitialDelay and MaxDelay are in milliseconds.
	InitialDelay int `mapstructure:"initial_delay"`
	MaxDelay     int `mapstructure:"max_delay"`
	// BackoffType is "exponential" or "fixed".
	BackoffType string `mapstructure:"backoff_type"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Sampler string  `mapstructure:"sampler"`
	Ratio   float64 `mapstructure:"ratio"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("catalog_path", "data/skills.json")
	v.SetDefault("skills_root", "public/skills")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "fmt")

	v.SetDefault("serve.host", "localhost")
	v.SetDefault("serve.port", 8080)
	v.SetDefault("serve.cors_origins", []string{"*"})

	v.SetDefault("files.exclude", []string{})

	v.SetDefault("github.api_url", "https://api.github.com")

	v.SetDefault("sync.concurrency", 4)
	v.SetDefault("sync.retry.attempts", 3)
	v.SetDefault("sync.retry.initial_delay", 1000)
	v.SetDefault("sync.retry.max_delay", 10000)
	v.SetDefault("sync.retry.backoff_type", "exponential")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.sampler", "ratio")
	v.SetDefault("tracing.ratio", 1.0)
}

// Defaults returns the configuration with nothing but defaults applied.
func Defaults() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Init configures v to read the environment and the config file from
// $HOME/.openskills or the working directory. A missing config file is not
// an error.
func Init(v *viper.Viper) error {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.openskills")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errors.Wrap(err, "failed to read config file")
		}
	}

	return nil
}

// Load decodes v into a validated Config.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode configuration")
	}

	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return &cfg, nil
}

// Validate checks the configuration for values the application cannot use.
func (c *Config) Validate() error {
	if c.CatalogPath == "" {
		return errors.New("catalog_path cannot be empty")
	}
	if c.SkillsRoot == "" {
		return errors.New("skills_root cannot be empty")
	}
	if c.Sync.Concurrency < 1 {
		return errors.Errorf("sync.concurrency must be at least 1, got %d", c.Sync.Concurrency)
	}
	if c.Sync.Retry.Attempts < 1 {
		return errors.Errorf("sync.retry.attempts must be at least 1, got %d", c.Sync.Retry.Attempts)
	}
	switch c.Sync.Retry.BackoffType {
	case "exponential", "fixed":
	default:
		return errors.Errorf("sync.retry.backoff_type must be exponential or fixed, got %q", c.Sync.Retry.BackoffType)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log_level")
	}
	if err := logger.ValidateFormat(c.LogFormat); err != nil {
		return errors.Wrap(err, "log_format")
	}
	if c.Tracing.Enabled {
		tracing := telemetry.Config{SamplerType: c.Tracing.Sampler, SamplerRatio: c.Tracing.Ratio}
		if err := tracing.Validate(); err != nil {
			return errors.Wrap(err, "tracing")
		}
	}
	return nil
}
