package skillfs

import (
	"path"
	"strings"
)

// DefaultLanguage is reported for files with an unknown extension.
const DefaultLanguage = "text"

// extensionToLanguage maps lower-case file extensions to syntax highlighting
// language names.
var extensionToLanguage = map[string]string{
	"js":   "javascript",
	"mjs":  "javascript",
	"cjs":  "javascript",
	"jsx":  "jsx",
	"ts":   "typescript",
	"tsx":  "tsx",
	"py":   "python",
	"md":   "markdown",
	"json": "json",
	"yml":  "yaml",
	"yaml": "yaml",
	"toml": "toml",
	"html": "html",
	"htm":  "html",
	"xml":  "xml",
	"css":  "css",
	"scss": "scss",
	"sh":   "bash",
	"bash": "bash",
	"zsh":  "bash",
	"go":   "go",
	"rs":   "rust",
	"rb":   "ruby",
	"java": "java",
	"sql":  "sql",
	"txt":  "text",
}

// Language returns the highlighting language of a slash-separated file path.
func Language(filePath string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filePath), "."))
	if lang, ok := extensionToLanguage[ext]; ok {
		return lang
	}
	return DefaultLanguage
}
