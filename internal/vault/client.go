package vault

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/vaultindex/vaultindex/internal/config"
	"github.com/vaultindex/vaultindex/internal/errors"
)

// DefaultTimeout bounds a single vault API request.
const DefaultTimeout = 30 * time.Second

// noteJSONAccept asks the Local REST API for the note-with-metadata
// representation instead of plain markdown.
const noteJSONAccept = "application/vnd.olrapi.note+json"

// Client talks to the Obsidian Local REST API. It implements
// Repository and additionally exposes write helpers.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

var _ Repository = (*Client)(nil)

// NewClient creates a vault client from the connection configuration.
// No connection is made until the first request.
func NewClient(cfg config.VaultConfig) *Client {
	return &Client{
		http:    &http.Client{Timeout: DefaultTimeout},
		baseURL: cfg.BaseURL(),
		apiKey:  cfg.APIKey,
	}
}

// vaultListing is the response of GET /vault/{dir}/. Directories are
// reported with a trailing slash.
type vaultListing struct {
	Files []string `json:"files"`
}

// noteJSON is the note-with-metadata representation.
type noteJSON struct {
	Content string `json:"content"`
	Path    string `json:"path"`
	Stat    struct {
		Ctime int64 `json:"ctime"`
		Mtime int64 `json:"mtime"`
		Size  int64 `json:"size"`
	} `json:"stat"`
}

// ListPaths walks the vault directory tree and returns the paths of
// all markdown notes, sorted.
func (c *Client) ListPaths(ctx context.Context) ([]string, error) {
	var paths []string

	dirs := []string{""}
	for len(dirs) > 0 {
		dir := dirs[0]
		dirs = dirs[1:]

		entries, err := c.listDir(ctx, dir)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if strings.HasSuffix(entry, "/") {
				dirs = append(dirs, dir+entry)
				continue
			}
			if strings.HasSuffix(entry, ".md") {
				paths = append(paths, dir+entry)
			}
		}
	}

	sort.Strings(paths)
	return paths, nil
}

// listDir lists one vault directory. dir is "" for the root or a
// path with a trailing slash.
func (c *Client) listDir(ctx context.Context, dir string) ([]string, error) {
	endpoint := "/vault/"
	if dir != "" {
		endpoint = "/vault/" + encodePath(dir)
	}

	resp, err := c.do(ctx, http.MethodGet, endpoint, "", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp, dir)
	}

	var listing vaultListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, errors.New(errors.ErrCodeVaultConnection,
			"failed to decode vault listing", err)
	}
	return listing.Files, nil
}

// ReadNote fetches a single note with content and mtime.
func (c *Client) ReadNote(ctx context.Context, path string) (*Note, error) {
	resp, err := c.do(ctx, http.MethodGet, "/vault/"+encodePath(path), noteJSONAccept, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp, path)
	}

	var note noteJSON
	if err := json.NewDecoder(resp.Body).Decode(&note); err != nil {
		return nil, errors.New(errors.ErrCodeVaultConnection,
			"failed to decode note response", err)
	}

	// stat.mtime is reported in milliseconds
	return &Note{
		Path:    path,
		Content: note.Content,
		Mtime:   note.Stat.Mtime / 1000,
	}, nil
}

// WriteNote creates or replaces a note.
func (c *Client) WriteNote(ctx context.Context, path, content string) error {
	return c.writeRequest(ctx, http.MethodPut, path, content)
}

// AppendNote appends content to an existing note.
func (c *Client) AppendNote(ctx context.Context, path, content string) error {
	return c.writeRequest(ctx, http.MethodPost, path, content)
}

// DeleteNote deletes a note.
func (c *Client) DeleteNote(ctx context.Context, path string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/vault/"+encodePath(path), "", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return c.statusError(resp, path)
	}
	return nil
}

func (c *Client) writeRequest(ctx context.Context, method, path, content string) error {
	resp, err := c.do(ctx, method, "/vault/"+encodePath(path), "", strings.NewReader(content))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return c.statusError(resp, path)
	}
	return nil
}

// do performs one request with auth and transport error mapping.
func (c *Client) do(ctx context.Context, method, endpoint, accept string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if body != nil {
		req.Header.Set("Content-Type", "text/markdown")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(err)
	}
	return resp, nil
}

// transportError classifies a failed round trip.
func (c *Client) transportError(err error) error {
	var ne net.Error
	if stderrors.Is(err, context.DeadlineExceeded) ||
		(stderrors.As(err, &ne) && ne.Timeout()) {
		return errors.New(errors.ErrCodeVaultTimeout,
			"vault request timed out", err).
			WithDetail("base_url", c.baseURL)
	}
	return errors.New(errors.ErrCodeVaultConnection,
		fmt.Sprintf("cannot connect to %s", c.baseURL), err).
		WithSuggestion("ensure Obsidian is running with the Local REST API plugin enabled")
}

// statusError maps a non-success status to a vault error.
func (c *Client) statusError(resp *http.Response, path string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch resp.StatusCode {
	case http.StatusNotFound:
		return errors.New(errors.ErrCodeVaultNotFound,
			fmt.Sprintf("not found in vault: %s", path), nil)
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.New(errors.ErrCodeVaultAuth,
			"authentication failed", nil).
			WithSuggestion("check your OBSIDIAN_API_KEY")
	case http.StatusTooManyRequests:
		return errors.New(errors.ErrCodeVaultRateLimited,
			"vault API rate limited", nil)
	default:
		return errors.New(errors.ErrCodeVaultConnection,
			fmt.Sprintf("vault API returned status %d: %s",
				resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
}

// encodePath escapes each path segment while keeping separators.
func encodePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
