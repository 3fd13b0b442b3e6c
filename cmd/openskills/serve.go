package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/openskills/openskills/pkg/config"
	"github.com/openskills/openskills/pkg/container"
	"github.com/openskills/openskills/pkg/logger"
	"github.com/openskills/openskills/pkg/presenter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ServeConfig holds configuration for the serve command
type ServeConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
}

// NewServeConfig creates a new ServeConfig with default values
func NewServeConfig() *ServeConfig {
	defaults := config.Defaults()
	return &ServeConfig{
		Host:        defaults.Serve.Host,
		Port:        defaults.Serve.Port,
		CORSOrigins: defaults.Serve.CORSOrigins,
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the skills API server",
	Long: `Start an HTTP server exposing the skills catalog under /api: listing and
filtering, single skill lookup, file listings and trees, zip downloads and
prompt based recommendations.

The server will be available at http://localhost:8080 by default.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, c, err := newContainer()
		if err != nil {
			return err
		}
		return runServeCommand(cmd.Context(), c, serveConfigFrom(cfg))
	},
}

func init() {
	defaults := NewServeConfig()
	serveCmd.Flags().String("host", defaults.Host, "Host to bind the API server to")
	serveCmd.Flags().Int("port", defaults.Port, "Port to bind the API server to")
	serveCmd.Flags().StringSlice("cors-origin", defaults.CORSOrigins, "Allowed CORS origin patterns (glob, * allows any)")

	viper.BindPFlag("serve.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("serve.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("serve.cors_origins", serveCmd.Flags().Lookup("cors-origin"))
}

// serveConfigFrom extracts the serve configuration. The serve flags are bound
// to viper, so cfg already reflects them over the config file and environment.
func serveConfigFrom(cfg *config.Config) *ServeConfig {
	return &ServeConfig{
		Host:        cfg.Serve.Host,
		Port:        cfg.Serve.Port,
		CORSOrigins: cfg.Serve.CORSOrigins,
	}
}

// validateServeConfig validates the serve configuration
func validateServeConfig(config *ServeConfig) error {
	if config.Host == "" {
		return errors.New("host cannot be empty")
	}

	// Check if host is a valid hostname or IP address
	if config.Host != "localhost" && config.Host != "0.0.0.0" {
		if ip := net.ParseIP(config.Host); ip == nil {
			if strings.Contains(config.Host, " ") || strings.Contains(config.Host, ":") {
				return errors.Errorf("invalid host: %s", config.Host)
			}
		}
	}

	if config.Port < 1 || config.Port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", config.Port)
	}

	if len(config.CORSOrigins) == 0 {
		return errors.New("at least one CORS origin pattern is required")
	}

	if config.Port < 1024 {
		logger.G(context.Background()).WithField("port", config.Port).Warn("using privileged port (< 1024) may require elevated permissions")
	}

	return nil
}

// runServeCommand starts the API server and blocks until it is interrupted.
func runServeCommand(ctx context.Context, c *container.Container, config *ServeConfig) error {
	if err := validateServeConfig(config); err != nil {
		return errors.Wrap(err, "invalid server configuration")
	}

	repo, err := c.Catalog()
	if err != nil {
		return errors.Wrap(err, "failed to load catalog")
	}

	logger.G(ctx).WithFields(map[string]any{
		"host":   config.Host,
		"port":   config.Port,
		"skills": repo.Len(),
	}).Info("starting skills API server")

	server, err := c.Server()
	if err != nil {
		return errors.Wrap(err, "failed to create API server")
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			logger.G(ctx).WithError(closeErr).Error("failed to close API server")
		}
	}()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	presenter.Success(fmt.Sprintf("Skills API server starting on http://%s:%d", config.Host, config.Port))
	presenter.Info("Press Ctrl+C to stop the server")

	if err := server.Start(ctx); err != nil {
		return errors.Wrap(err, "API server failed")
	}

	presenter.Info("API server stopped")
	return nil
}
