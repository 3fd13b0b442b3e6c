package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/openskills/openskills/pkg/catalog"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pdfSkillMarkdown = "---\nname: PDF Tools\ndescription: Work with PDF documents\n---\n# PDF Tools\n"

type fakeGitHub struct {
	server *httptest.Server

	mu          sync.Mutex
	dirs        map[string][]string
	files       map[string]string
	failures    map[string]int
	rateLimited bool
	requests    map[string]int
	authHeaders []string
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()

	f := &fakeGitHub{
		dirs: map[string][]string{
			"skills/pdf":         {"SKILL.md", "scripts"},
			"skills/pdf/scripts": {"extract.py"},
			"skills/docx":        {"README.md"},
			"skills/empty":       {},
		},
		files: map[string]string{
			"skills/pdf/SKILL.md":           pdfSkillMarkdown,
			"skills/pdf/scripts/extract.py": "print('extract')\n",
			"skills/docx/README.md":         "# DOCX\n",
		},
		failures: map[string]int{},
		requests: map[string]int{},
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)

	return f
}

func (f *fakeGitHub) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests[r.URL.Path]++
	f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))

	if f.rateLimited {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC).Unix(), 10))
		w.WriteHeader(http.StatusForbidden)
		return
	}

	if f.failures[r.URL.Path] > 0 {
		f.failures[r.URL.Path]--
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	if rawPath, ok := strings.CutPrefix(r.URL.Path, "/raw/"); ok {
		content, ok := f.files[rawPath]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(content))
		return
	}

	contentsPath, ok := strings.CutPrefix(r.URL.Path, "/repos/acme/skills/contents/")
	if !ok || r.URL.Query().Get("ref") != "main" {
		http.NotFound(w, r)
		return
	}

	if names, ok := f.dirs[contentsPath]; ok {
		entries := []ContentEntry{}
		for _, name := range names {
			entries = append(entries, f.entry(contentsPath+"/"+name))
		}
		json.NewEncoder(w).Encode(entries)
		return
	}

	if _, ok := f.files[contentsPath]; ok {
		json.NewEncoder(w).Encode(f.entry(contentsPath))
		return
	}

	http.NotFound(w, r)
}

func (f *fakeGitHub) entry(path string) ContentEntry {
	entry := ContentEntry{Name: filepath.Base(path), Path: path}
	if _, ok := f.dirs[path]; ok {
		entry.Type = "dir"
		return entry
	}
	entry.Type = "file"
	entry.Size = int64(len(f.files[path]))
	entry.DownloadURL = f.server.URL + "/raw/" + path
	return entry
}

func (f *fakeGitHub) requestCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[path]
}

func (f *fakeGitHub) client(token string) *Client {
	return NewClient(ClientConfig{
		APIURL: f.server.URL,
		Token:  token,
		Retry: RetryConfig{
			Attempts:     3,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			BackoffType:  "fixed",
		},
	})
}

func sourceFor(path string) string {
	return "https://github.com/acme/skills/tree/main/" + path
}

func mustSource(t *testing.T, raw string) Source {
	t.Helper()
	src, err := ParseSourceURL(raw)
	require.NoError(t, err)
	return src
}

func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	files := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		data, err := os.ReadFile(path)
		files[filepath.ToSlash(rel)] = string(data)
		return err
	})
	require.NoError(t, err)
	return files
}

func TestParseSourceURL(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		expected      Source
		expectedError string
	}{
		{
			name:     "directory in a branch",
			raw:      "https://github.com/anthropics/skills/tree/main/document-skills/pdf",
			expected: Source{Owner: "anthropics", Repo: "skills", Ref: "main", Path: "document-skills/pdf"},
		},
		{
			name:     "repository root",
			raw:      "https://github.com/acme/brand-guidelines",
			expected: Source{Owner: "acme", Repo: "brand-guidelines"},
		},
		{
			name:     "git suffix and trailing slash",
			raw:      "https://www.github.com/acme/skills.git/",
			expected: Source{Owner: "acme", Repo: "skills"},
		},
		{
			name:     "ref without path",
			raw:      "https://github.com/acme/skills/tree/v1.2.0",
			expected: Source{Owner: "acme", Repo: "skills", Ref: "v1.2.0"},
		},
		{name: "other host", raw: "https://gitlab.com/acme/skills", expectedError: "not a github.com URL"},
		{name: "missing repository", raw: "https://github.com/acme", expectedError: "must name an owner and a repository"},
		{name: "file URL", raw: "https://github.com/acme/skills/blob/main/SKILL.md", expectedError: "must point to a directory"},
		{name: "not a URL scheme", raw: "github.com/acme/skills", expectedError: "must use http or https"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := ParseSourceURL(tt.raw)
			if tt.expectedError != "" {
				assert.ErrorContains(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, src)
		})
	}
}

func TestSource_URLs(t *testing.T) {
	src := Source{Owner: "acme", Repo: "skills", Ref: "main", Path: "document-skills/pdf"}

	assert.Equal(t, "https://api.github.com/repos/acme/skills/contents/document-skills/pdf?ref=main",
		src.ContentsURL("https://api.github.com/", src.Path))
	assert.Equal(t, "https://github.com/acme/skills/tree/main/document-skills/pdf", src.String())
	assert.Equal(t, "pdf", src.Name())

	root := Source{Owner: "acme", Repo: "skills"}
	assert.Equal(t, "https://api.github.com/repos/acme/skills/contents", root.ContentsURL("https://api.github.com", ""))
	assert.Equal(t, "https://github.com/acme/skills", root.String())
	assert.Equal(t, "skills", root.Name())
}

func TestClient_DownloadDir(t *testing.T) {
	gh := newFakeGitHub(t)
	dest := filepath.Join(t.TempDir(), "pdf")

	count, err := gh.client("").DownloadDir(context.Background(), mustSource(t, sourceFor("skills/pdf")), dest)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.Equal(t, map[string]string{
		"SKILL.md":           pdfSkillMarkdown,
		"scripts/extract.py": "print('extract')\n",
	}, readTree(t, dest))
}

func TestClient_ListContentsOfFile(t *testing.T) {
	gh := newFakeGitHub(t)

	entries, err := gh.client("").ListContents(context.Background(), mustSource(t, sourceFor("skills")), "skills/docx/README.md")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "file", entries[0].Type)
	assert.Equal(t, "README.md", entries[0].Name)
}

func TestClient_SendsToken(t *testing.T) {
	gh := newFakeGitHub(t)

	_, err := gh.client("ghp_secret").ListContents(context.Background(), mustSource(t, sourceFor("skills/docx")), "skills/docx")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bearer ghp_secret"}, gh.authHeaders)

	gh.authHeaders = nil
	_, err = gh.client("").ListContents(context.Background(), mustSource(t, sourceFor("skills/docx")), "skills/docx")
	require.NoError(t, err)
	assert.Equal(t, []string{""}, gh.authHeaders)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.failures["/repos/acme/skills/contents/skills/docx"] = 2

	entries, err := gh.client("").ListContents(context.Background(), mustSource(t, sourceFor("skills/docx")), "skills/docx")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 3, gh.requestCount("/repos/acme/skills/contents/skills/docx"))
}

func TestClient_GivesUpAfterAttempts(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.failures["/repos/acme/skills/contents/skills/docx"] = 10

	_, err := gh.client("").ListContents(context.Background(), mustSource(t, sourceFor("skills/docx")), "skills/docx")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, 3, gh.requestCount("/repos/acme/skills/contents/skills/docx"))
}

func TestClient_NotFoundIsNotRetried(t *testing.T) {
	gh := newFakeGitHub(t)

	_, err := gh.client("").ListContents(context.Background(), mustSource(t, sourceFor("skills/missing")), "skills/missing")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, 1, gh.requestCount("/repos/acme/skills/contents/skills/missing"))
}

func TestClient_RateLimit(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.rateLimited = true

	_, err := gh.client("").ListContents(context.Background(), mustSource(t, sourceFor("skills/pdf")), "skills/pdf")

	var rateErr *RateLimitError
	require.True(t, errors.As(err, &rateErr))
	assert.Equal(t, time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC), rateErr.Reset.UTC())
	assert.Contains(t, err.Error(), "rate limit exceeded, resets at")
	assert.Equal(t, 1, gh.requestCount("/repos/acme/skills/contents/skills/pdf"))
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(&RateLimitError{}))
	assert.False(t, isRetryableError(context.Canceled))
	assert.False(t, isRetryableError(&StatusError{StatusCode: http.StatusNotFound}))
	assert.True(t, isRetryableError(&StatusError{StatusCode: http.StatusTooManyRequests}))
	assert.True(t, isRetryableError(errors.Wrap(&StatusError{StatusCode: http.StatusServiceUnavailable}, "list")))
	assert.False(t, isRetryableError(errors.New("decode failure")))
}

func TestSyncer_Sync(t *testing.T) {
	gh := newFakeGitHub(t)
	root := t.TempDir()

	skills := []catalog.Skill{
		{ID: "pdf", Name: "PDF Tools", SourceURL: sourceFor("skills/pdf")},
		{ID: "docx", Name: "DOCX", SourceURL: sourceFor("skills/docx")},
		{ID: "gone", Name: "Gone", SourceURL: sourceFor("skills/gone")},
		{ID: "empty", Name: "Empty", SourceURL: sourceFor("skills/empty")},
	}

	result, err := NewSyncer(gh.client(""), root).Sync(context.Background(), skills, SyncOptions{Concurrency: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "skill gone")
	assert.Contains(t, err.Error(), "skill empty")
	assert.Contains(t, err.Error(), "no files found")

	assert.Equal(t, []string{"docx", "pdf"}, result.Synced)
	assert.Equal(t, []string{"empty", "gone"}, result.Failed)
	assert.Empty(t, result.Skipped)

	assert.Equal(t, "# DOCX\n", readTree(t, filepath.Join(root, "docx"))["README.md"])
	assert.NoDirExists(t, filepath.Join(root, "gone"))
	assert.NoDirExists(t, filepath.Join(root, "empty"))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.HasPrefix(entry.Name(), ".staging-"), "staging directory %s left behind", entry.Name())
	}
}

func TestSyncer_SyncReplacesExistingDirectory(t *testing.T) {
	gh := newFakeGitHub(t)
	root := t.TempDir()

	stale := filepath.Join(root, "docx", "stale.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	skills := []catalog.Skill{{ID: "docx", SourceURL: sourceFor("skills/docx")}}
	result, err := NewSyncer(gh.client(""), root).Sync(context.Background(), skills, SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"docx"}, result.Synced)

	assert.Equal(t, map[string]string{"README.md": "# DOCX\n"}, readTree(t, filepath.Join(root, "docx")))
}

func TestSyncer_SyncMissingOnly(t *testing.T) {
	gh := newFakeGitHub(t)
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pdf"), 0o755))

	skills := []catalog.Skill{
		{ID: "pdf", SourceURL: sourceFor("skills/pdf")},
		{ID: "docx", SourceURL: sourceFor("skills/docx")},
	}

	result, err := NewSyncer(gh.client(""), root).Sync(context.Background(), skills, SyncOptions{MissingOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"docx"}, result.Synced)
	assert.Equal(t, []string{"pdf"}, result.Skipped)
	assert.Zero(t, gh.requestCount("/repos/acme/skills/contents/skills/pdf"))
}

func TestSyncer_SyncSelectedIDs(t *testing.T) {
	gh := newFakeGitHub(t)
	root := t.TempDir()

	skills := []catalog.Skill{
		{ID: "pdf", SourceURL: sourceFor("skills/pdf")},
		{ID: "docx", SourceURL: sourceFor("skills/docx")},
	}
	syncer := NewSyncer(gh.client(""), root)

	result, err := syncer.Sync(context.Background(), skills, SyncOptions{IDs: []string{"docx"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"docx"}, result.Synced)

	_, err = syncer.Sync(context.Background(), skills, SyncOptions{IDs: []string{"docx", "nope"}})
	assert.ErrorContains(t, err, "unknown skill ids: [nope]")
}

func TestSyncer_RejectsUnsafeIDs(t *testing.T) {
	gh := newFakeGitHub(t)
	root := t.TempDir()

	skills := []catalog.Skill{{ID: "../escape", SourceURL: sourceFor("skills/docx")}}
	result, err := NewSyncer(gh.client(""), root).Sync(context.Background(), skills, SyncOptions{})
	assert.ErrorContains(t, err, `invalid skill id "../escape"`)
	assert.Equal(t, []string{"../escape"}, result.Failed)
}

func TestSyncer_LockHeld(t *testing.T) {
	gh := newFakeGitHub(t)
	root := t.TempDir()

	held := flock.New(filepath.Join(root, LockFileName))
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer held.Unlock()

	syncer := NewSyncer(gh.client(""), root)
	syncer.lockTimeout = 50 * time.Millisecond

	_, err = syncer.Sync(context.Background(), nil, SyncOptions{})
	assert.ErrorContains(t, err, "another sync is in progress")
}

func TestSyncer_Add(t *testing.T) {
	gh := newFakeGitHub(t)
	root := t.TempDir()
	catalogPath := filepath.Join(t.TempDir(), "skills.json")

	existing := []catalog.Skill{{ID: "docx", Name: "DOCX", Tags: []string{}, SourceURL: sourceFor("skills/docx"), Owner: "acme"}}
	require.NoError(t, catalog.WriteFile(catalogPath, existing))

	skill, err := NewSyncer(gh.client(""), root).Add(context.Background(), catalogPath, AddOptions{
		SourceURL: sourceFor("skills/pdf"),
		Category:  "documents",
		Tags:      []string{"pdf"},
	})
	require.NoError(t, err)

	_, err = uuid.Parse(skill.ID)
	assert.NoError(t, err)
	assert.Equal(t, "PDF Tools", skill.Name)
	assert.Equal(t, "Work with PDF documents", skill.Description)
	assert.Equal(t, "acme", skill.Owner)
	assert.Equal(t, "documents", skill.Category)
	assert.Equal(t, sourceFor("skills/pdf"), skill.SourceURL)

	assert.FileExists(t, filepath.Join(root, skill.ID, "SKILL.md"))
	assert.FileExists(t, filepath.Join(root, skill.ID, "scripts", "extract.py"))

	saved, err := catalog.ReadFile(catalogPath)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, existing[0], saved[0])
	assert.Equal(t, *skill, saved[1])
}

func TestSyncer_AddCreatesCatalog(t *testing.T) {
	gh := newFakeGitHub(t)
	catalogPath := filepath.Join(t.TempDir(), "data", "skills.yaml")

	skill, err := NewSyncer(gh.client(""), t.TempDir()).Add(context.Background(), catalogPath, AddOptions{
		SourceURL: sourceFor("skills/pdf"),
		ID:        "pdf",
		Name:      "PDF",
	})
	require.NoError(t, err)
	assert.Equal(t, "PDF", skill.Name)
	assert.Equal(t, []string{}, skill.Tags)

	saved, err := catalog.ReadFile(catalogPath)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "pdf", saved[0].ID)
}

func TestSyncer_AddRejectsDuplicates(t *testing.T) {
	gh := newFakeGitHub(t)
	catalogPath := filepath.Join(t.TempDir(), "skills.json")
	require.NoError(t, catalog.WriteFile(catalogPath, []catalog.Skill{{ID: "docx", SourceURL: sourceFor("skills/docx")}}))

	syncer := NewSyncer(gh.client(""), t.TempDir())

	_, err := syncer.Add(context.Background(), catalogPath, AddOptions{SourceURL: sourceFor("skills/docx")})
	assert.ErrorContains(t, err, "already in the catalog")

	_, err = syncer.Add(context.Background(), catalogPath, AddOptions{SourceURL: sourceFor("skills/pdf"), ID: "docx"})
	assert.ErrorContains(t, err, `skill id "docx" already exists`)
}

func TestSyncer_AddWithoutFrontmatterNeedsName(t *testing.T) {
	gh := newFakeGitHub(t)
	root := t.TempDir()
	catalogPath := filepath.Join(t.TempDir(), "skills.json")

	_, err := NewSyncer(gh.client(""), root).Add(context.Background(), catalogPath, AddOptions{
		SourceURL: sourceFor("skills/docx"),
		ID:        "docx",
	})
	assert.ErrorContains(t, err, "no name given")
	assert.NoDirExists(t, filepath.Join(root, "docx"))
	assert.NoFileExists(t, catalogPath)
}
