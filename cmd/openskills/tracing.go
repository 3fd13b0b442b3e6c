package main

import (
	"context"
	"sync"

	"github.com/openskills/openskills/pkg/config"
	"github.com/openskills/openskills/pkg/logger"
	"github.com/openskills/openskills/pkg/telemetry"
	"github.com/openskills/openskills/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = telemetry.Tracer("openskills.cli")

	tracingShutdown     func(context.Context) error
	tracingShutdownOnce sync.Once
)

// sensitiveFlags are never recorded as span attributes.
var sensitiveFlags = map[string]bool{
	"password": true,
	"token":    true,
	"key":      true,
}

// initTracing initializes the OpenTelemetry tracing system
func initTracing(ctx context.Context) (func(context.Context) error, error) {
	config := telemetry.Config{
		Enabled:        viper.GetBool("tracing.enabled"),
		ServiceName:    "openskills",
		ServiceVersion: version.Get().Version,
		SamplerType:    viper.GetString("tracing.sampler"),
		SamplerRatio:   viper.GetFloat64("tracing.ratio"),
	}

	return telemetry.InitTracer(ctx, config)
}

// startTracing runs once flags are parsed so the tracing flags take effect.
// Failing to set up the exporter only disables tracing.
func startTracing(ctx context.Context) error {
	shutdown, err := initTracing(ctx)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("failed to initialize tracing")
		return nil
	}
	tracingShutdown = shutdown
	return nil
}

// stopTracing flushes pending spans. It is safe to call more than once.
func stopTracing(ctx context.Context) {
	tracingShutdownOnce.Do(func() {
		if tracingShutdown == nil {
			return
		}
		if err := tracingShutdown(ctx); err != nil {
			logger.G(ctx).WithError(err).Warn("failed to shut down tracing")
		}
	})
}

// commandAttributes describes a command invocation for its span.
func commandAttributes(cmd *cobra.Command, args []string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("command.name", cmd.Name()),
		attribute.String("command.path", cmd.CommandPath()),
		attribute.Int("args.count", len(args)),
	}

	cmd.Flags().Visit(func(flag *pflag.Flag) {
		if !sensitiveFlags[flag.Name] {
			attrs = append(attrs, attribute.String("flag."+flag.Name, flag.Value.String()))
		}
	})

	return attrs
}

// withTracing wraps a command's RunE in a "cli.command" span.
func withTracing(cmd *cobra.Command) *cobra.Command {
	originalRunE := cmd.RunE

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(
			cmd.Context(),
			"cli.command",
			trace.WithAttributes(commandAttributes(cmd, args)...),
		)
		defer span.End()

		cmd.SetContext(ctx)

		if err := originalRunE(cmd, args); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}

		span.SetStatus(codes.Ok, "")
		return nil
	}

	return cmd
}

func init() {
	defaults := config.Defaults()
	flags := rootCmd.PersistentFlags()
	flags.Bool("tracing-enabled", defaults.Tracing.Enabled, "Enable OpenTelemetry tracing")
	flags.String("tracing-sampler", defaults.Tracing.Sampler, "Tracing sampler type (always, never, ratio)")
	flags.Float64("tracing-ratio", defaults.Tracing.Ratio, "Sampling ratio when using ratio sampler")

	viper.BindPFlag("tracing.enabled", flags.Lookup("tracing-enabled"))
	viper.BindPFlag("tracing.sampler", flags.Lookup("tracing-sampler"))
	viper.BindPFlag("tracing.ratio", flags.Lookup("tracing-ratio"))
}
