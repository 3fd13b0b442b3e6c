package skillfs

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// walkFunc is called for every entry in pre-order. rel is slash-separated and
// relative to the walk root; abs is the filesystem path.
type walkFunc func(rel, abs string, entry fs.DirEntry) error

type walkFrame struct {
	abs     string
	rel     string
	entries []fs.DirEntry
	next    int
}

// walk visits root depth-first, pre-order, using an explicit stack so deep
// trees cannot exhaust the goroutine stack. A directory is visited before its
// children, and its children before its next sibling. Entries follow
// os.ReadDir order. Symlinks are reported but never descended into.
func (s *Store) walk(ctx context.Context, root string, fn walkFunc) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return errors.Wrapf(err, "failed to read directory %s", root)
	}

	stack := []*walkFrame{{abs: root, entries: entries}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		top := stack[len(stack)-1]
		if top.next >= len(top.entries) {
			stack = stack[:len(stack)-1]
			continue
		}

		entry := top.entries[top.next]
		top.next++

		rel := entry.Name()
		if top.rel != "" {
			rel = top.rel + "/" + entry.Name()
		}
		abs := filepath.Join(top.abs, entry.Name())

		if s.excluded(rel) {
			continue
		}

		if err := fn(rel, abs, entry); err != nil {
			return err
		}

		if entry.IsDir() {
			children, err := os.ReadDir(abs)
			if err != nil {
				return errors.Wrapf(err, "failed to read directory %s", abs)
			}
			stack = append(stack, &walkFrame{abs: abs, rel: rel, entries: children})
		}
	}

	return nil
}
