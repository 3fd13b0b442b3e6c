// Package ingest downloads skill directories from GitHub into the skills
// root and registers new skills in the catalog.
package ingest

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// Source identifies a directory in a GitHub repository.
type Source struct {
	Owner string
	Repo  string
	// Ref is a branch, tag or commit. Empty means the default branch.
	Ref string
	// Path is slash-separated and relative to the repository root.
	Path string
}

// ParseSourceURL parses a GitHub directory URL of the form
// https://github.com/{owner}/{repo}[/tree/{ref}[/{path}]].
func ParseSourceURL(raw string) (Source, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Source{}, errors.Wrapf(err, "invalid source URL %q", raw)
	}

	if u.Scheme != "https" && u.Scheme != "http" {
		return Source{}, errors.Errorf("source URL %q must use http or https", raw)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if host != "github.com" {
		return Source{}, errors.Errorf("source URL %q is not a github.com URL", raw)
	}

	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(segments) < 2 {
		return Source{}, errors.Errorf("source URL %q must name an owner and a repository", raw)
	}

	src := Source{
		Owner: segments[0],
		Repo:  strings.TrimSuffix(segments[1], ".git"),
	}

	rest := segments[2:]
	if len(rest) == 0 {
		return src, nil
	}
	if rest[0] != "tree" || len(rest) < 2 {
		return Source{}, errors.Errorf("source URL %q must point to a directory (/tree/{ref}/...)", raw)
	}

	src.Ref = rest[1]
	src.Path = strings.Join(rest[2:], "/")

	return src, nil
}

// Name is the last path segment, or the repository name for a repository
// root.
func (s Source) Name() string {
	if s.Path == "" {
		return s.Repo
	}
	return s.Path[strings.LastIndex(s.Path, "/")+1:]
}

// ContentsURL returns the GitHub contents API URL of dir, a path relative to
// the repository root.
func (s Source) ContentsURL(apiURL, dir string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(apiURL, "/"))
	b.WriteString("/repos/")
	b.WriteString(url.PathEscape(s.Owner))
	b.WriteString("/")
	b.WriteString(url.PathEscape(s.Repo))
	b.WriteString("/contents")

	for _, segment := range strings.Split(dir, "/") {
		if segment == "" {
			continue
		}
		b.WriteString("/")
		b.WriteString(url.PathEscape(segment))
	}

	if s.Ref != "" {
		b.WriteString("?ref=")
		b.WriteString(url.QueryEscape(s.Ref))
	}

	return b.String()
}

func (s Source) String() string {
	var b strings.Builder
	b.WriteString("https://github.com/")
	b.WriteString(s.Owner)
	b.WriteString("/")
	b.WriteString(s.Repo)
	if s.Ref != "" {
		b.WriteString("/tree/")
		b.WriteString(s.Ref)
		if s.Path != "" {
			b.WriteString("/")
			b.WriteString(s.Path)
		}
	}
	return b.String()
}
