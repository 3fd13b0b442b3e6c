package skillfs

import (
	"path"
)

// TreeNode is a FileEntry regrouped under its parent directory.
type TreeNode struct {
	Name        string      `json:"name"`
	Path        string      `json:"path"`
	IsDirectory bool        `json:"isDirectory"`
	Content     string      `json:"content,omitempty"`
	// Language is the highlighting language of a file; empty for directories.
	Language    string      `json:"language,omitempty"`
	Children    []*TreeNode `json:"children,omitempty"`
}

// BuildTree nests a flat file list by path segments, keeping the input order
// among siblings. Parents missing from the input are synthesized as
// directories.
func BuildTree(entries []FileEntry) []*TreeNode {
	roots := []*TreeNode{}
	byPath := make(map[string]*TreeNode, len(entries))

	var ensureDir func(p string) *TreeNode
	ensureDir = func(p string) *TreeNode {
		if node, ok := byPath[p]; ok {
			return node
		}
		node := &TreeNode{Name: path.Base(p), Path: p, IsDirectory: true}
		byPath[p] = node
		attach(&roots, byPath, node, ensureDir)
		return node
	}

	for _, entry := range entries {
		if existing, ok := byPath[entry.Path]; ok {
			existing.IsDirectory = entry.IsDirectory
			existing.Content = entry.Content
			existing.Language = fileLanguage(entry)
			continue
		}
		node := &TreeNode{
			Name:        entry.Name,
			Path:        entry.Path,
			IsDirectory: entry.IsDirectory,
			Content:     entry.Content,
			Language:    fileLanguage(entry),
		}
		byPath[entry.Path] = node
		attach(&roots, byPath, node, ensureDir)
	}

	return roots
}

func attach(roots *[]*TreeNode, byPath map[string]*TreeNode, node *TreeNode, ensureDir func(string) *TreeNode) {
	parent := path.Dir(node.Path)
	if parent == "." || parent == "/" || parent == "" {
		*roots = append(*roots, node)
		return
	}
	p := ensureDir(parent)
	p.Children = append(p.Children, node)
}

func fileLanguage(entry FileEntry) string {
	if entry.IsDirectory {
		return ""
	}
	return Language(entry.Path)
}
