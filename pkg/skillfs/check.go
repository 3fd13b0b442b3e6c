package skillfs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/openskills/openskills/pkg/catalog"
	"github.com/pkg/errors"
)

// Check compares the catalog against the skills root. Skills without a
// directory, directories without a catalog entry and SKILL.md frontmatter
// that disagrees with the catalog name are warnings; ids that cannot name a
// directory are errors. Hidden entries of the root are ignored.
func (s *Store) Check(skills []catalog.Skill) ([]catalog.Issue, error) {
	var issues []catalog.Issue
	known := make(map[string]bool, len(skills))

	for _, skill := range skills {
		if skill.ID == "" {
			continue
		}
		known[skill.ID] = true

		dir, err := s.Path(skill.ID)
		if err != nil {
			issues = append(issues, catalog.Issue{
				Severity: catalog.SeverityError,
				SkillID:  skill.ID,
				Message:  "id cannot be used as a directory name",
			})
			continue
		}

		if !s.Exists(skill.ID) {
			issues = append(issues, catalog.Issue{
				Severity: catalog.SeverityWarning,
				SkillID:  skill.ID,
				Message:  "directory is missing, run openskills sync",
			})
			continue
		}

		issues = append(issues, checkDocument(dir, skill)...)
	}

	entries, err := os.ReadDir(s.root)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(err, "failed to read skills root %s", s.root)
	}

	var orphans []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") || known[entry.Name()] {
			continue
		}
		orphans = append(orphans, entry.Name())
	}
	sort.Strings(orphans)
	for _, name := range orphans {
		issues = append(issues, catalog.Issue{
			Severity: catalog.SeverityWarning,
			SkillID:  name,
			Message:  "directory has no catalog entry",
		})
	}

	return issues, nil
}

func checkDocument(dir string, skill catalog.Skill) []catalog.Issue {
	if _, err := os.Stat(filepath.Join(dir, SkillFileName)); err != nil {
		if _, err := os.Stat(filepath.Join(dir, ReadmeFileName)); err != nil {
			return []catalog.Issue{{
				Severity: catalog.SeverityWarning,
				SkillID:  skill.ID,
				Message:  fmt.Sprintf("neither %s nor %s found", SkillFileName, ReadmeFileName),
			}}
		}
		return nil
	}

	metadata, err := ReadMetadata(dir)
	if err != nil {
		return []catalog.Issue{{
			Severity: catalog.SeverityWarning,
			SkillID:  skill.ID,
			Message:  fmt.Sprintf("%s: %v", SkillFileName, err),
		}}
	}

	if !strings.EqualFold(metadata.Name, strings.TrimSpace(skill.Name)) {
		return []catalog.Issue{{
			Severity: catalog.SeverityWarning,
			SkillID:  skill.ID,
			Message:  fmt.Sprintf("%s name %q differs from catalog name %q", SkillFileName, metadata.Name, skill.Name),
		}}
	}

	return nil
}
