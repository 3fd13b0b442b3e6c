package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/openskills/openskills/pkg/presenter"
	"github.com/openskills/openskills/pkg/recommend"
	"github.com/spf13/cobra"
)

// RecommendConfig holds configuration for the recommend command
type RecommendConfig struct {
	JSON    bool
	Content bool
}

// Recommender picks a skill for a prompt.
type Recommender interface {
	Recommend(ctx context.Context, prompt string) (*recommend.Recommendation, error)
}

var recommendCmd = &cobra.Command{
	Use:   "recommend <prompt...>",
	Short: "Recommend the most relevant skill for a prompt",
	Long: `Score every catalog skill against a free-text prompt and print the best match.

Examples:
  openskills recommend "fill in a PDF form"
  openskills recommend convert slides to pdf --content`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, c, err := newContainer()
		if err != nil {
			return err
		}
		recommender, err := c.Recommender()
		if err != nil {
			return err
		}
		config := &RecommendConfig{}
		config.JSON, _ = cmd.Flags().GetBool("json")
		config.Content, _ = cmd.Flags().GetBool("content")
		return runRecommend(cmd.Context(), cmd.OutOrStdout(), recommender, strings.Join(args, " "), config)
	},
}

func init() {
	recommendCmd.Flags().Bool("json", false, "Print the recommendation as JSON")
	recommendCmd.Flags().Bool("content", false, "Also print the skill's SKILL.md or README.md")
}

func runRecommend(ctx context.Context, w io.Writer, recommender Recommender, prompt string, config *RecommendConfig) error {
	result, err := recommender.Recommend(ctx, prompt)
	if err != nil {
		return err
	}

	if config.JSON {
		return printJSON(w, result)
	}

	match := result.RecommendedSkill
	if match == nil {
		presenter.Warning(result.Message)
		return nil
	}

	presenter.Success(result.Message)
	presenter.Section(match.Name)
	presenter.Field("ID", match.ID)
	presenter.Field("Score", fmt.Sprintf("%g", match.MatchScore))
	presenter.Field("Description", match.Description)
	presenter.Field("Owner", match.Owner)
	presenter.Field("Source", match.SourceURL)

	if config.Content {
		if match.Content == nil {
			presenter.Info("The skill has no SKILL.md or README.md")
			return nil
		}
		presenter.Separator()
		fmt.Fprintln(w, strings.TrimRight(*match.Content, "\n"))
	}

	return nil
}
