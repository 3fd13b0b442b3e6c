package skillfs

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
)

// Metadata is the YAML frontmatter of a SKILL.md file.
type Metadata struct {
	Name        string
	Description string
	// Body is the document with the frontmatter removed.
	Body string
}

// ParseMetadata extracts name and description from SKILL.md content.
func ParseMetadata(content []byte) (*Metadata, error) {
	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()

	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrap(err, "failed to parse markdown")
	}

	metaData := meta.Get(pctx)
	if len(metaData) == 0 {
		return nil, errors.New("missing frontmatter")
	}

	name, _ := metaData["name"].(string)
	description, _ := metaData["description"].(string)

	if strings.TrimSpace(name) == "" {
		return nil, errors.New("skill name is required in frontmatter")
	}

	return &Metadata{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Body:        stripFrontmatter(string(content)),
	}, nil
}

// ReadMetadata parses dir/SKILL.md.
func ReadMetadata(dir string) (*Metadata, error) {
	content, err := os.ReadFile(filepath.Join(dir, SkillFileName))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read skill file")
	}
	return ParseMetadata(content)
}

func stripFrontmatter(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}

	lines := strings.Split(content, "\n")
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}

	if end == -1 {
		return content
	}

	return strings.TrimLeft(strings.Join(lines[end+1:], "\n"), "\n")
}
