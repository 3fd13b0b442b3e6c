package skillfs

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/openskills/openskills/pkg/logger"
	"github.com/pkg/errors"
)

// SkillFileName is the primary descriptive document of a skill.
const SkillFileName = "SKILL.md"

// ReadmeFileName is read when a skill has no SKILL.md.
const ReadmeFileName = "README.md"

// LoadContent returns the skill's SKILL.md, falling back to README.md. Read
// errors other than a missing file are logged and treated like a missing file.
func (s *Store) LoadContent(ctx context.Context, id string) (string, bool) {
	dir, err := s.Path(id)
	if err != nil {
		return "", false
	}

	for _, name := range []string{SkillFileName, ReadmeFileName} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return string(data), true
		}
		if !errors.Is(err, fs.ErrNotExist) {
			logger.G(ctx).WithError(err).WithFields(map[string]any{
				"skill_id": id,
				"file":     name,
			}).Error("failed to read skill document")
		}
	}

	return "", false
}
