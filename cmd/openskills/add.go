package main

import (
	"context"
	"fmt"

	"github.com/openskills/openskills/pkg/catalog"
	"github.com/openskills/openskills/pkg/ingest"
	"github.com/openskills/openskills/pkg/presenter"
	"github.com/spf13/cobra"
)

// SkillAdder downloads a new skill and registers it in a catalog file.
type SkillAdder interface {
	Add(ctx context.Context, catalogPath string, opts ingest.AddOptions) (*catalog.Skill, error)
}

var addCmd = &cobra.Command{
	Use:   "add <source-url>",
	Short: "Download a new skill and add it to the catalog",
	Long: `Download the skill directory at a GitHub URL into the skills root and append
it to the catalog file. Name and description default to the SKILL.md
frontmatter, the owner to the repository owner and the id to a new UUID.

Examples:
  openskills add https://github.com/anthropics/skills/tree/main/document-skills/pdf
  openskills add https://github.com/acme/skills/tree/v1.2.0/changelog --category Writing --tag release`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, c, err := newContainer()
		if err != nil {
			return err
		}
		syncer, err := c.Syncer()
		if err != nil {
			return err
		}
		return runAdd(cmd.Context(), syncer, cfg.CatalogPath, getAddOptionsFromFlags(cmd, args[0]))
	},
}

func init() {
	addCmd.Flags().String("id", "", "Skill id (default: a new UUID)")
	addCmd.Flags().String("name", "", "Skill name (default: SKILL.md frontmatter name)")
	addCmd.Flags().String("description", "", "Skill description (default: SKILL.md frontmatter description)")
	addCmd.Flags().String("category", "", "Skill category")
	addCmd.Flags().String("owner", "", "Skill owner (default: repository owner)")
	addCmd.Flags().StringSlice("tag", nil, "Skill tag, repeatable")
}

func getAddOptionsFromFlags(cmd *cobra.Command, sourceURL string) ingest.AddOptions {
	opts := ingest.AddOptions{SourceURL: sourceURL}
	opts.ID, _ = cmd.Flags().GetString("id")
	opts.Name, _ = cmd.Flags().GetString("name")
	opts.Description, _ = cmd.Flags().GetString("description")
	opts.Category, _ = cmd.Flags().GetString("category")
	opts.Owner, _ = cmd.Flags().GetString("owner")
	opts.Tags, _ = cmd.Flags().GetStringSlice("tag")
	return opts
}

func runAdd(ctx context.Context, adder SkillAdder, catalogPath string, opts ingest.AddOptions) error {
	skill, err := adder.Add(ctx, catalogPath, opts)
	if err != nil {
		return err
	}

	presenter.Success(fmt.Sprintf("Added %s to %s", skill.Name, catalogPath))
	presenter.Field("ID", skill.ID)
	presenter.Field("Owner", skill.Owner)
	presenter.Field("Description", skill.Description)
	return nil
}
