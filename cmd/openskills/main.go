package main

import (
	"context"
	"fmt"
	"os"

	"github.com/openskills/openskills/pkg/config"
	"github.com/openskills/openskills/pkg/container"
	"github.com/openskills/openskills/pkg/logger"
	"github.com/openskills/openskills/pkg/presenter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "openskills",
	Short: "Browse, serve and sync a catalog of agent skills",
	Long: `openskills serves a catalog of agent skills over HTTP: listing and filtering,
per-skill file trees, zip downloads and prompt based recommendations.

It also keeps the local skills directory in sync with each skill's GitHub source.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.Configure(viper.GetString("log_level"), viper.GetString("log_format")); err != nil {
			return err
		}
		if quiet, err := cmd.Flags().GetBool("quiet"); err == nil {
			presenter.SetQuiet(quiet)
		}
		return startTracing(cmd.Context())
	},
}

func init() {
	if err := config.Init(viper.GetViper()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to read config file: %s\n", err)
	}

	defaults := config.Defaults()
	flags := rootCmd.PersistentFlags()
	flags.String("catalog", defaults.CatalogPath, "Path to the skills catalog (JSON, or YAML by extension)")
	flags.String("skills-root", defaults.SkillsRoot, "Directory holding one sub-directory per skill id")
	flags.String("log-level", defaults.LogLevel, "Log level (panic, fatal, error, warn, info, debug, trace)")
	flags.String("log-format", defaults.LogFormat, "Log format (fmt or json)")
	flags.Bool("quiet", false, "Only print data (tables, JSON) and errors")

	viper.BindPFlag("catalog_path", flags.Lookup("catalog"))
	viper.BindPFlag("skills_root", flags.Lookup("skills-root"))
	viper.BindPFlag("log_level", flags.Lookup("log-level"))
	viper.BindPFlag("log_format", flags.Lookup("log-format"))
}

// newContainer loads the effective configuration and wires the services.
func newContainer() (*config.Config, *container.Container, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	c, err := container.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, c, nil
}

func main() {
	ctx := context.Background()
	defer stopTracing(ctx)

	rootCmd.AddCommand(withTracing(serveCmd))
	rootCmd.AddCommand(skillsCmd)
	rootCmd.AddCommand(withTracing(recommendCmd))
	rootCmd.AddCommand(withTracing(downloadCmd))
	rootCmd.AddCommand(withTracing(syncCmd))
	rootCmd.AddCommand(withTracing(addCmd))
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stopTracing(ctx)
		presenter.Error(err, "openskills failed")
		os.Exit(1)
	}
}
