package skillfs

import (
	"context"
	"io/fs"
	"os"
	"unicode/utf8"

	"github.com/openskills/openskills/pkg/apierrors"
	"github.com/openskills/openskills/pkg/logger"
)

// BinaryFileContent replaces the content of files that are not valid UTF-8
// text or cannot be read.
const BinaryFileContent = "[Binary file]"

const (
	folderNotFoundMessage = "Skill folder not found"
	readFilesMessage      = "Failed to read skill files"
)

// FileEntry is one node of a skill's file tree.
type FileEntry struct {
	Path        string `json:"path"`
	Name        string `json:"name"`
	Content     string `json:"content"`
	IsDirectory bool   `json:"isDirectory"`
}

// ListFiles returns every file and directory of the skill in pre-order.
// Directories have empty content. Unreadable or non-UTF-8 files carry
// BinaryFileContent instead of failing the listing.
func (s *Store) ListFiles(ctx context.Context, id string) ([]FileEntry, error) {
	dir, err := s.dir(id, folderNotFoundMessage)
	if err != nil {
		return nil, err
	}

	log := logger.G(ctx).WithField("skill_id", id)
	files := []FileEntry{}

	err = s.walk(ctx, dir, func(rel, abs string, entry fs.DirEntry) error {
		if entry.IsDir() {
			files = append(files, FileEntry{
				Path:        rel,
				Name:        entry.Name(),
				Content:     "",
				IsDirectory: true,
			})
			return nil
		}

		content := BinaryFileContent
		data, err := os.ReadFile(abs)
		switch {
		case err != nil:
			log.WithError(err).WithField("path", rel).Debug("unreadable file listed as binary")
		case utf8.Valid(data):
			content = string(data)
		default:
			log.WithField("path", rel).Debug("skipping binary file content")
		}

		files = append(files, FileEntry{
			Path:        rel,
			Name:        entry.Name(),
			Content:     content,
			IsDirectory: false,
		})
		return nil
	})
	if err != nil {
		return nil, apierrors.Internal(err, readFilesMessage)
	}

	return files, nil
}
