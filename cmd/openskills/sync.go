package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/openskills/openskills/pkg/catalog"
	"github.com/openskills/openskills/pkg/config"
	"github.com/openskills/openskills/pkg/ingest"
	"github.com/openskills/openskills/pkg/presenter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// SkillSyncer downloads catalog skills into the skills root.
type SkillSyncer interface {
	Sync(ctx context.Context, skills []catalog.Skill, opts ingest.SyncOptions) (*ingest.SyncResult, error)
}

var syncCmd = &cobra.Command{
	Use:   "sync [id...]",
	Short: "Download skills from their GitHub sources",
	Long: `Download each catalog skill from its sourceUrl into the skills root. Without
arguments every skill is synced; otherwise only the given ids.

Skills are staged next to the skills root and swapped in atomically, so a
running server never serves a half-written skill. A token from github.token
or GITHUB_TOKEN raises the GitHub API rate limit.

Examples:
  openskills sync
  openskills sync --missing-only
  openskills sync 9e0f1a2b-3c4d-5e6f-7a8b-9c0d1e2f3a4b --concurrency 1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, c, err := newContainer()
		if err != nil {
			return err
		}
		repo, err := c.Catalog()
		if err != nil {
			return err
		}
		syncer, err := c.Syncer()
		if err != nil {
			return err
		}
		missingOnly, _ := cmd.Flags().GetBool("missing-only")
		return runSync(cmd.Context(), syncer, repo.All(), ingest.SyncOptions{
			IDs:         args,
			MissingOnly: missingOnly,
			Concurrency: cfg.Sync.Concurrency,
		})
	},
}

func init() {
	defaults := config.Defaults()
	syncCmd.Flags().Bool("missing-only", false, "Only download skills whose directory does not exist yet")
	syncCmd.Flags().Int("concurrency", defaults.Sync.Concurrency, "Number of skills downloaded in parallel")

	viper.BindPFlag("sync.concurrency", syncCmd.Flags().Lookup("concurrency"))
}

func runSync(ctx context.Context, syncer SkillSyncer, skills []catalog.Skill, opts ingest.SyncOptions) error {
	result, err := syncer.Sync(ctx, skills, opts)
	if result == nil {
		return err
	}

	if len(result.Synced) > 0 {
		presenter.Success(fmt.Sprintf("Synced %d skill(s)", len(result.Synced)))
	}
	if len(result.Skipped) > 0 {
		presenter.Info(fmt.Sprintf("Skipped %d skill(s) already present", len(result.Skipped)))
	}
	if len(result.Failed) > 0 {
		presenter.Warning(fmt.Sprintf("Failed to sync %d skill(s): %s", len(result.Failed), strings.Join(result.Failed, ", ")))
	}

	return err
}
