// Package skillfs reads skill directories from the skills root: it lists a
// skill's files, packs them into a zip archive, loads the descriptive
// document and parses SKILL.md frontmatter.
//
// The skills root holds one directory per catalog id. The store never writes
// to it; provisioning is done by the ingest package.
package skillfs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/openskills/openskills/pkg/apierrors"
	"github.com/pkg/errors"
)

// Store resolves skill ids to directories below a root.
type Store struct {
	root    string
	exclude []string
}

// Option configures a Store.
type Option func(*Store) error

// WithExcludePatterns hides paths matching any of the doublestar patterns
// (matched against the slash-separated path relative to the skill root) from
// both listings and archives. A matching directory hides its whole subtree.
func WithExcludePatterns(patterns ...string) Option {
	return func(s *Store) error {
		for _, p := range patterns {
			if !doublestar.ValidatePattern(p) {
				return errors.Errorf("invalid exclude pattern %q", p)
			}
		}
		s.exclude = append(s.exclude, patterns...)
		return nil
	}
}

// NewStore creates a Store rooted at root.
func NewStore(root string, opts ...Option) (*Store, error) {
	if root == "" {
		return nil, errors.New("skills root cannot be empty")
	}

	s := &Store{root: filepath.Clean(root)}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Root returns the skills root directory.
func (s *Store) Root() string {
	return s.root
}

// Path returns the directory of the skill with the given id without checking
// that it exists. It fails for ids that would escape the root.
func (s *Store) Path(id string) (string, error) {
	if !ValidID(id) {
		return "", errors.Errorf("invalid skill id %q", id)
	}
	return filepath.Join(s.root, id), nil
}

// Exists reports whether the skill directory is present.
func (s *Store) Exists(id string) bool {
	_, err := s.dir(id, "")
	return err == nil
}

// dir resolves id to an existing directory. Any failure is reported as a
// not-found error carrying notFoundMessage.
func (s *Store) dir(id, notFoundMessage string) (string, error) {
	dir, err := s.Path(id)
	if err != nil {
		return "", apierrors.NotFoundf(err, notFoundMessage)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return "", apierrors.NotFoundf(err, notFoundMessage)
	}
	if !info.IsDir() {
		return "", apierrors.NotFoundf(errors.Errorf("%s is not a directory", dir), notFoundMessage)
	}

	return dir, nil
}

// ValidID reports whether id can name a directory directly below the root.
func ValidID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, "/\\\x00")
}

func (s *Store) excluded(rel string) bool {
	for _, p := range s.exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
