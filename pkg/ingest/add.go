package ingest

import (
	"context"
	"io/fs"
	"strings"

	"github.com/google/uuid"
	"github.com/openskills/openskills/pkg/catalog"
	"github.com/openskills/openskills/pkg/logger"
	"github.com/openskills/openskills/pkg/skillfs"
	"github.com/pkg/errors"
)

// AddOptions describes a skill to download and register. Empty fields are
// derived: ID is a new UUID, Name and Description come from the SKILL.md
// frontmatter, Owner is the repository owner.
type AddOptions struct {
	SourceURL   string
	ID          string
	Name        string
	Description string
	Category    string
	Owner       string
	Tags        []string
}

// Add downloads the skill at opts.SourceURL into the skills root and appends
// it to the catalog file at catalogPath, creating the file if needed. The
// catalog is left untouched when the download or metadata check fails.
func (s *Syncer) Add(ctx context.Context, catalogPath string, opts AddOptions) (*catalog.Skill, error) {
	src, err := ParseSourceURL(opts.SourceURL)
	if err != nil {
		return nil, err
	}

	skills, err := catalog.ReadFile(catalogPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	skill := catalog.Skill{
		ID:          opts.ID,
		Name:        strings.TrimSpace(opts.Name),
		Description: strings.TrimSpace(opts.Description),
		Category:    strings.TrimSpace(opts.Category),
		Tags:        opts.Tags,
		SourceURL:   src.String(),
		Owner:       strings.TrimSpace(opts.Owner),
	}
	if skill.ID == "" {
		skill.ID = uuid.NewString()
	}
	if !skillfs.ValidID(skill.ID) {
		return nil, errors.Errorf("invalid skill id %q", skill.ID)
	}
	if skill.Owner == "" {
		skill.Owner = src.Owner
	}
	if skill.Tags == nil {
		skill.Tags = []string{}
	}

	for _, existing := range skills {
		if existing.ID == skill.ID {
			return nil, errors.Errorf("skill id %q already exists in the catalog", skill.ID)
		}
		if existing.SourceURL == skill.SourceURL {
			return nil, errors.Errorf("source %s is already in the catalog as %q", skill.SourceURL, existing.ID)
		}
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	files, err := s.install(ctx, skill.ID, src, func(staging string) error {
		return fillFromMetadata(staging, &skill)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to download %s", src)
	}

	if err := catalog.WriteFile(catalogPath, append(skills, skill)); err != nil {
		return nil, err
	}

	logger.G(ctx).WithFields(map[string]any{
		"skill_id": skill.ID,
		"files":    files,
	}).Info("added skill")

	return &skill, nil
}

// fillFromMetadata sets the skill's empty name and description from the
// SKILL.md frontmatter in dir. A skill without usable frontmatter needs an
// explicit name.
func fillFromMetadata(dir string, skill *catalog.Skill) error {
	metadata, err := skillfs.ReadMetadata(dir)
	if err != nil {
		if skill.Name == "" {
			return errors.Wrap(err, "no name given and SKILL.md frontmatter is unusable")
		}
		return nil
	}

	if skill.Name == "" {
		skill.Name = metadata.Name
	}
	if skill.Description == "" {
		skill.Description = metadata.Description
	}
	return nil
}
