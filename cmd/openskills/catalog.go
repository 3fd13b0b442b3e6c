package main

import (
	"fmt"
	"io"

	"github.com/openskills/openskills/pkg/catalog"
	"github.com/openskills/openskills/pkg/presenter"
	"github.com/openskills/openskills/pkg/skillfs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Check and describe the catalog file",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the catalog against itself and the skills root",
	Long: `Report duplicate or missing ids, empty names, skills without a directory,
directories without a catalog entry and SKILL.md names that disagree with the
catalog. Warnings do not fail the command unless --strict is set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, c, err := newContainer()
		if err != nil {
			return err
		}
		store, err := c.Store()
		if err != nil {
			return err
		}
		strict, _ := cmd.Flags().GetBool("strict")
		asJSON, _ := cmd.Flags().GetBool("json")
		return runCatalogValidate(cmd.OutOrStdout(), cfg.CatalogPath, store, strict, asJSON)
	},
}

var catalogSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the catalog file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printJSON(cmd.OutOrStdout(), catalog.Schema())
	},
}

func init() {
	catalogValidateCmd.Flags().Bool("strict", false, "Fail on warnings too")
	catalogValidateCmd.Flags().Bool("json", false, "Print the issues as JSON")

	catalogCmd.AddCommand(withTracing(catalogValidateCmd))
	catalogCmd.AddCommand(catalogSchemaCmd)
}

// runCatalogValidate reads the raw catalog file so that duplicates are still
// visible to the checks.
func runCatalogValidate(w io.Writer, catalogPath string, store *skillfs.Store, strict, asJSON bool) error {
	skills, err := catalog.ReadFile(catalogPath)
	if err != nil {
		return err
	}

	issues := catalog.Validate(skills)
	dirIssues, err := store.Check(skills)
	if err != nil {
		return err
	}
	issues = append(issues, dirIssues...)

	if asJSON {
		if issues == nil {
			issues = []catalog.Issue{}
		}
		if err := printJSON(w, issues); err != nil {
			return err
		}
	} else {
		for _, issue := range issues {
			if issue.Severity == catalog.SeverityError {
				presenter.Error(errors.New(issue.Message), issue.SkillID)
			} else {
				presenter.Warning(issue.String())
			}
		}
	}

	errCount, warnCount := countIssues(issues)
	switch {
	case errCount > 0:
		return errors.Errorf("catalog has %d error(s) and %d warning(s)", errCount, warnCount)
	case strict && warnCount > 0:
		return errors.Errorf("catalog has %d warning(s)", warnCount)
	}

	if !asJSON {
		presenter.Success(summary(len(skills), warnCount))
	}
	return nil
}

func countIssues(issues []catalog.Issue) (errCount, warnCount int) {
	for _, issue := range issues {
		if issue.Severity == catalog.SeverityError {
			errCount++
		} else {
			warnCount++
		}
	}
	return errCount, warnCount
}

func summary(skills, warnings int) string {
	if warnings == 0 {
		return fmt.Sprintf("Catalog is valid (%d skill(s))", skills)
	}
	return fmt.Sprintf("Catalog is valid (%d skill(s)) with %d warning(s)", skills, warnings)
}
