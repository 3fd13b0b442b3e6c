package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openskills/openskills/pkg/apierrors"
	"github.com/openskills/openskills/pkg/catalog"
	"github.com/openskills/openskills/pkg/presenter"
	"github.com/openskills/openskills/pkg/skillfs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// DownloadConfig holds configuration for the download command
type DownloadConfig struct {
	// Output is the archive path. A directory receives the default file name.
	Output string
	Force  bool
}

// ArchiveBuilder packs a skill directory into a zip archive.
type ArchiveBuilder interface {
	BuildArchive(ctx context.Context, id string) ([]byte, error)
}

var downloadCmd = &cobra.Command{
	Use:   "download <id>",
	Short: "Save a skill as a zip archive",
	Long: `Pack every file of a skill into a zip archive named "<owner>-<name>.zip".

Examples:
  openskills download 9e0f1a2b-3c4d-5e6f-7a8b-9c0d1e2f3a4b
  openskills download pdf -o /tmp/pdf.zip`,
	Args: cobra.ExactArgs(1),
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
		config := &DownloadConfig{}
		config.Output, _ = cmd.Flags().GetString("output")
		config.Force, _ = cmd.Flags().GetBool("force")
		_, err = runDownload(cmd.Context(), repo, store, args[0], config)
		return err
	},
}

func init() {
	downloadCmd.Flags().StringP("output", "o", ".", "Archive file or directory to write it into")
	downloadCmd.Flags().BoolP("force", "f", false, "Overwrite an existing archive")
}

// runDownload writes the archive and returns its path. Skills missing from
// the catalog are rejected before the skills root is touched.
func runDownload(ctx context.Context, repo catalog.Repository, builder ArchiveBuilder, id string, config *DownloadConfig) (string, error) {
	if _, ok := repo.Get(id); !ok {
		return "", apierrors.NotFound(skillNotFoundMessage)
	}

	dest := config.Output
	if dest == "" {
		dest = "."
	}
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		dest = filepath.Join(dest, skillfs.ArchiveFilename(repo, id))
	}

	if !config.Force {
		if _, err := os.Stat(dest); err == nil {
			return "", errors.Errorf("%s already exists (use --force to overwrite)", dest)
		}
	}

	data, err := builder.BuildArchive(ctx, id)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", dest)
	}

	presenter.Success(fmt.Sprintf("Wrote %s (%d bytes)", dest, len(data)))
	return dest, nil
}
