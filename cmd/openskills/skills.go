package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/openskills/openskills/pkg/apierrors"
	"github.com/openskills/openskills/pkg/catalog"
	"github.com/openskills/openskills/pkg/presenter"
	"github.com/openskills/openskills/pkg/skillfs"
	"github.com/spf13/cobra"
)

const skillNotFoundMessage = "Skill not found"

// SkillsListConfig holds the filters of the skills list command
type SkillsListConfig struct {
	Query    string
	Owner    string
	Category string
	Tag      string
	JSON     bool
}

// NewSkillsListConfig creates a SkillsListConfig with no filters
func NewSkillsListConfig() *SkillsListConfig {
	return &SkillsListConfig{}
}

// SkillsFilesConfig holds configuration for the skills files command
type SkillsFilesConfig struct {
	JSON    bool
	Content bool
}

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Inspect the skills catalog",
	Long:  `List, filter and inspect the skills of the catalog and their local files.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var skillsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List skills, optionally filtered",
	Long: `List catalog skills sorted by name.

Examples:
  openskills skills list
  openskills skills list --query pdf
  openskills skills list --owner anthropic --category design
  openskills skills list --tag documents --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, c, err := newContainer()
		if err != nil {
			return err
		}
		repo, err := c.Catalog()
		if err != nil {
			return err
		}
		return runSkillsList(cmd.OutOrStdout(), repo, getSkillsListConfigFromFlags(cmd))
	},
}

var skillsFacetsCmd = &cobra.Command{
	Use:   "facets",
	Short: "List the distinct owners, categories and tags",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, c, err := newContainer()
		if err != nil {
			return err
		}
		repo, err := c.Catalog()
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		return runSkillsFacets(cmd.OutOrStdout(), repo, asJSON)
	},
}

var skillsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single skill",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, c, err := newContainer()
		if err != nil {
			return err
		}
		repo, err := c.Catalog()
		if err != nil {
			return err
		}
		store, err := c.Store()
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		return runSkillsShow(cmd.OutOrStdout(), repo, store, args[0], asJSON)
	},
}

var skillsFilesCmd = &cobra.Command{
	Use:   "files <id>",
	Short: "List the files of a skill",
	Long: `List every file and directory of a skill in depth-first order. Files that
are not valid UTF-8 are reported as binary.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, c, err := newContainer()
		if err != nil {
			return err
		}
		store, err := c.Store()
		if err != nil {
			return err
		}
		return runSkillsFiles(cmd.Context(), cmd.OutOrStdout(), store, args[0], getSkillsFilesConfigFromFlags(cmd))
	},
}

var skillsTreeCmd = &cobra.Command{
	Use:   "tree <id>",
	Short: "Print the file tree of a skill",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, c, err := newContainer()
		if err != nil {
			return err
		}
		store, err := c.Store()
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		return runSkillsTree(cmd.Context(), cmd.OutOrStdout(), store, args[0], asJSON)
	},
}

func init() {
	defaults := NewSkillsListConfig()
	skillsListCmd.Flags().StringP("query", "q", defaults.Query, "Case-insensitive text matched against name and description")
	skillsListCmd.Flags().String("owner", defaults.Owner, "Only skills of this owner")
	skillsListCmd.Flags().String("category", defaults.Category, "Only skills in this category")
	skillsListCmd.Flags().String("tag", defaults.Tag, "Only skills carrying this tag")
	skillsListCmd.Flags().Bool("json", defaults.JSON, "Print the listing as JSON")

	skillsFacetsCmd.Flags().Bool("json", false, "Print the facets as JSON")
	skillsShowCmd.Flags().Bool("json", false, "Print the skill as JSON")
	skillsFilesCmd.Flags().Bool("json", false, "Print the file list as JSON")
	skillsFilesCmd.Flags().Bool("content", false, "Print the content of every text file")
	skillsTreeCmd.Flags().Bool("json", false, "Print the tree as JSON")

	skillsCmd.AddCommand(withTracing(skillsListCmd))
	skillsCmd.AddCommand(withTracing(skillsFacetsCmd))
	skillsCmd.AddCommand(withTracing(skillsShowCmd))
	skillsCmd.AddCommand(withTracing(skillsFilesCmd))
	skillsCmd.AddCommand(withTracing(skillsTreeCmd))
}

func getSkillsListConfigFromFlags(cmd *cobra.Command) *SkillsListConfig {
	config := NewSkillsListConfig()
	if query, err := cmd.Flags().GetString("query"); err == nil {
		config.Query = query
	}
	if owner, err := cmd.Flags().GetString("owner"); err == nil {
		config.Owner = owner
	}
	if category, err := cmd.Flags().GetString("category"); err == nil {
		config.Category = category
	}
	if tag, err := cmd.Flags().GetString("tag"); err == nil {
		config.Tag = tag
	}
	if asJSON, err := cmd.Flags().GetBool("json"); err == nil {
		config.JSON = asJSON
	}
	return config
}

func getSkillsFilesConfigFromFlags(cmd *cobra.Command) *SkillsFilesConfig {
	config := &SkillsFilesConfig{}
	if asJSON, err := cmd.Flags().GetBool("json"); err == nil {
		config.JSON = asJSON
	}
	if content, err := cmd.Flags().GetBool("content"); err == nil {
		config.Content = content
	}
	return config
}

func runSkillsList(w io.Writer, repo catalog.Repository, config *SkillsListConfig) error {
	resp := catalog.List(repo, catalog.ListRequest{
		Query:    config.Query,
		Owner:    config.Owner,
		Category: config.Category,
		Tag:      config.Tag,
	})

	if config.JSON {
		return printJSON(w, resp)
	}

	if resp.Count == 0 {
		presenter.Warning("No skills match the given filters")
		return nil
	}

	rows := make([][]string, 0, len(resp.Skills))
	for _, skill := range resp.Skills {
		rows = append(rows, []string{skill.ID, skill.Name, skill.Owner, skill.Category, joinOrDash(skill.Tags)})
	}
	presenter.Table([]string{"id", "name", "owner", "category", "tags"}, rows)
	presenter.Info(fmt.Sprintf("%d skill(s)", resp.Count))

	return nil
}

func runSkillsFacets(w io.Writer, repo catalog.Repository, asJSON bool) error {
	facets := catalog.BuildFacets(repo)
	if asJSON {
		return printJSON(w, facets)
	}

	presenter.Section("Facets")
	presenter.Field("Owners", joinOrDash(facets.Owners))
	presenter.Field("Categories", joinOrDash(facets.Categories))
	presenter.Field("Tags", joinOrDash(facets.Tags))
	return nil
}

func runSkillsShow(w io.Writer, repo catalog.Repository, store *skillfs.Store, id string, asJSON bool) error {
	skill, ok := repo.Get(id)
	if !ok {
		return apierrors.NotFound(skillNotFoundMessage)
	}

	if asJSON {
		return printJSON(w, skill)
	}

	directory := "(invalid id)"
	if dir, err := store.Path(skill.ID); err == nil {
		directory = dir
		if !store.Exists(skill.ID) {
			directory += " (missing, run openskills sync)"
		}
	}

	presenter.Section(skill.Name)
	presenter.Field("ID", skill.ID)
	presenter.Field("Description", skill.Description)
	presenter.Field("Category", skill.Category)
	presenter.Field("Owner", skill.Owner)
	presenter.Field("Tags", joinOrDash(skill.Tags))
	presenter.Field("Source", skill.SourceURL)
	presenter.Field("Directory", directory)
	return nil
}

func runSkillsFiles(ctx context.Context, w io.Writer, store *skillfs.Store, id string, config *SkillsFilesConfig) error {
	files, err := store.ListFiles(ctx, id)
	if err != nil {
		return err
	}

	if config.JSON {
		return printJSON(w, files)
	}

	if config.Content {
		for _, file := range files {
			if file.IsDirectory {
				continue
			}
			presenter.Section(file.Path)
			fmt.Fprintln(w, strings.TrimRight(file.Content, "\n"))
		}
		return nil
	}

	rows := make([][]string, 0, len(files))
	for _, file := range files {
		language := "-"
		if !file.IsDirectory {
			language = skillfs.Language(file.Path)
		}
		rows = append(rows, []string{file.Path, fileKind(file), language})
	}
	presenter.Table([]string{"path", "type", "language"}, rows)
	return nil
}

func fileKind(file skillfs.FileEntry) string {
	switch {
	case file.IsDirectory:
		return "dir"
	case file.Content == skillfs.BinaryFileContent:
		return "binary"
	default:
		return "text"
	}
}

func runSkillsTree(ctx context.Context, w io.Writer, store *skillfs.Store, id string, asJSON bool) error {
	files, err := store.ListFiles(ctx, id)
	if err != nil {
		return err
	}

	tree := skillfs.BuildTree(files)
	if asJSON {
		return printJSON(w, tree)
	}

	fmt.Fprintln(w, id)
	printTree(w, tree, "")
	return nil
}

func printTree(w io.Writer, nodes []*skillfs.TreeNode, prefix string) {
	for i, node := range nodes {
		last := i == len(nodes)-1

		branch, indent := "├── ", "│   "
		if last {
			branch, indent = "└── ", "    "
		}

		name := node.Name
		if node.IsDirectory {
			name += "/"
		}
		fmt.Fprintln(w, prefix+branch+name)

		if len(node.Children) > 0 {
			printTree(w, node.Children, prefix+indent)
		}
	}
}
