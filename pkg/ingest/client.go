package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/openskills/openskills/pkg/logger"
	"github.com/openskills/openskills/pkg/skillfs"
	"github.com/pkg/errors"
)

// DefaultAPIURL is the public GitHub REST API.
const DefaultAPIURL = "https://api.github.com"

const maxDownloadBytes = 50 << 20

// RetryConfig controls retries of transient GitHub failures.
type RetryConfig struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// BackoffType is "exponential" or "fixed".
	BackoffType string
}

// ClientConfig configures a Client.
type ClientConfig struct {
	APIURL     string
	Token      string
	Retry      RetryConfig
	HTTPClient *http.Client
}

// Client reads repository directories through the GitHub contents API.
type Client struct {
	apiURL     string
	token      string
	retry      RetryConfig
	httpClient *http.Client
}

// ContentEntry is one item of a contents API directory listing.
type ContentEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"download_url"`
}

// StatusError reports an unexpected HTTP status.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

// RateLimitError reports an exhausted GitHub API rate limit. It is never
// retried.
type RateLimitError struct {
	Reset time.Time
}

func (e *RateLimitError) Error() string {
	if e.Reset.IsZero() {
		return "GitHub API rate limit exceeded"
	}
	return fmt.Sprintf("GitHub API rate limit exceeded, resets at %s", e.Reset.Local().Format(time.RFC1123))
}

// NewClient creates a Client, filling unset fields with defaults.
func NewClient(config ClientConfig) *Client {
	c := &Client{
		apiURL:     config.APIURL,
		token:      config.Token,
		retry:      config.Retry,
		httpClient: config.HTTPClient,
	}
	if c.apiURL == "" {
		c.apiURL = DefaultAPIURL
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if c.retry.Attempts < 1 {
		c.retry.Attempts = 1
	}
	return c
}

// ListContents lists the entries of dir in src's repository. A path naming a
// single file yields a one-element listing.
func (c *Client) ListContents(ctx context.Context, src Source, dir string) ([]ContentEntry, error) {
	body, err := c.get(ctx, src.ContentsURL(c.apiURL, dir), "application/vnd.github+json")
	if err != nil {
		return nil, err
	}

	var entries []ContentEntry
	if len(body) > 0 && body[0] == '{' {
		var entry ContentEntry
		if err := json.Unmarshal(body, &entry); err != nil {
			return nil, errors.Wrap(err, "failed to decode contents response")
		}
		return []ContentEntry{entry}, nil
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, errors.Wrap(err, "failed to decode contents response")
	}
	return entries, nil
}

// DownloadDir copies every file under src.Path into dest, descending into
// sub-directories, and returns the number of files written. Symlinks and
// submodules are skipped.
func (c *Client) DownloadDir(ctx context.Context, src Source, dest string) (int, error) {
	type pending struct {
		remote string
		local  string
	}

	log := logger.G(ctx).WithField("source", src.String())
	queue := []pending{{remote: src.Path, local: dest}}
	count := 0

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		entries, err := c.ListContents(ctx, src, current.remote)
		if err != nil {
			return count, err
		}

		if err := os.MkdirAll(current.local, 0o755); err != nil {
			return count, errors.Wrapf(err, "failed to create directory %s", current.local)
		}

		for _, entry := range entries {
			if !skillfs.ValidID(entry.Name) {
				log.WithField("name", entry.Name).Warn("skipping entry with unsafe name")
				continue
			}

			local := filepath.Join(current.local, entry.Name)
			switch entry.Type {
			case "file":
				if err := c.downloadFile(ctx, entry.DownloadURL, local); err != nil {
					return count, errors.Wrapf(err, "failed to download %s", entry.Path)
				}
				count++
				log.WithField("path", entry.Path).Debug("downloaded file")
			case "dir":
				queue = append(queue, pending{remote: path.Join(current.remote, entry.Name), local: local})
			default:
				log.WithFields(map[string]any{"path": entry.Path, "type": entry.Type}).Debug("skipping entry")
			}
		}
	}

	return count, nil
}

func (c *Client) downloadFile(ctx context.Context, url, dest string) error {
	if url == "" {
		return errors.New("entry has no download URL")
	}

	body, err := c.get(ctx, url, "application/octet-stream")
	if err != nil {
		return err
	}

	return errors.Wrapf(os.WriteFile(dest, body, 0o644), "failed to write %s", dest)
}

// get fetches url, retrying transient failures per the retry configuration.
func (c *Client) get(ctx context.Context, url, accept string) ([]byte, error) {
	var delayType retry.DelayTypeFunc
	switch c.retry.BackoffType {
	case "fixed":
		delayType = retry.FixedDelay
	default:
		delayType = retry.BackOffDelay
	}

	var body []byte
	err := retry.Do(
		func() error {
			var err error
			body, err = c.getOnce(ctx, url, accept)
			return err
		},
		retry.RetryIf(isRetryableError),
		retry.Attempts(uint(c.retry.Attempts)),
		retry.Delay(c.retry.InitialDelay),
		retry.DelayType(delayType),
		retry.MaxDelay(c.retry.MaxDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).WithField("max_attempts", c.retry.Attempts).Warn("retrying GitHub request")
		}),
	)
	if err != nil {
		return nil, err
	}

	return body, nil
}

func (c *Client) getOnce(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Unrecoverable(errors.Wrap(err, "failed to create request"))
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", "openskills")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		if rateLimited(resp) {
			return nil, &RateLimitError{Reset: rateLimitReset(resp)}
		}
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}
	if len(body) > maxDownloadBytes {
		return nil, retry.Unrecoverable(errors.Errorf("response from %s exceeds %d bytes", url, maxDownloadBytes))
	}

	return body, nil
}

func rateLimited(resp *http.Response) bool {
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusTooManyRequests {
		return false
	}
	return resp.Header.Get("X-RateLimit-Remaining") == "0"
}

func rateLimitReset(resp *http.Response) time.Time {
	seconds, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(seconds, 0)
}

// isRetryableError reports whether err is worth another attempt: network
// failures, 429 and 5xx responses. Rate-limit exhaustion and other 4xx
// responses are final.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= http.StatusInternalServerError
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}
