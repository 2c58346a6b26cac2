package origin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"ImageMigrator/internal/domain"
	"ImageMigrator/internal/ports"
)

// minPathSegments matches dl/download/<id>/<filename>.
const minPathSegments = 4

// Fetcher downloads origin files into <root>/<id>/<filename>.
type Fetcher struct {
	client    *http.Client
	root      string
	chunkSize int
	userAgent string
}

var _ ports.Fetcher = (*Fetcher)(nil)

// Options tune a Fetcher; zero values fall back to defaults.
type Options struct {
	Root      string
	ChunkSize int
	UserAgent string
}

// NewFetcher wires the shared HTTP client with the download tree root.
func NewFetcher(client *http.Client, opts Options) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 64 * 1024
	}
	if opts.Root == "" {
		opts.Root = "."
	}
	return &Fetcher{
		client:    client,
		root:      opts.Root,
		chunkSize: opts.ChunkSize,
		userAgent: opts.UserAgent,
	}
}

// Identify recovers the resource id and filename from the last two path segments.
func (f *Fetcher) Identify(rawURL string) (domain.ResourceIdentity, bool) {
	return Identify(rawURL)
}

// Identify parses https://cld.pt/dl/download/<id>/<filename>[?params].
// Segments keep their percent-escapes, so %2F never becomes a separator.
func Identify(rawURL string) (domain.ResourceIdentity, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return domain.ResourceIdentity{}, false
	}

	parts := strings.Split(strings.Trim(parsed.EscapedPath(), "/"), "/")
	if len(parts) < minPathSegments {
		return domain.ResourceIdentity{}, false
	}

	identity := domain.ResourceIdentity{
		ID:       parts[len(parts)-2],
		Filename: parts[len(parts)-1],
	}
	if !localSegment(identity.ID) || !localSegment(identity.Filename) {
		return domain.ResourceIdentity{}, false
	}
	return identity, true
}

// localSegment accepts a single path element that cannot leave its parent directory.
func localSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, `/\`) && filepath.IsLocal(s)
}

// Fetch streams rawURL into the download tree and returns the written path.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, identity domain.ResourceIdentity) (string, error) {
	if !localSegment(identity.ID) || !localSegment(identity.Filename) {
		return "", fmt.Errorf("%s: %w", rawURL, domain.ErrUnrecognizedOriginURL)
	}

	dir := filepath.Join(f.root, identity.ID)
	path := filepath.Join(dir, identity.Filename)
	if rel, err := filepath.Rel(f.root, path); err != nil || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%s resolves outside %s: %w", rawURL, f.root, domain.ErrUnrecognizedOriginURL)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create dir %s: %w", dir, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request file: %w", err)
	}
	defer resp.Body.Close()

	if !domain.IsSuccess(resp.StatusCode) {
		return "", &domain.StatusError{URL: rawURL, Status: resp.Status, Code: resp.StatusCode}
	}

	if err := f.writeChunks(path, resp.Body); err != nil {
		return "", err
	}

	return path, nil
}

func (f *Fetcher) writeChunks(path string, body io.Reader) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file %s: %w", path, err)
	}

	buf := make([]byte, f.chunkSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := file.Write(buf[:n]); err != nil {
				_ = file.Close()
				_ = os.Remove(path)
				return fmt.Errorf("write %s: %w", path, err)
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			_ = file.Close()
			_ = os.Remove(path)
			return fmt.Errorf("read body: %w", readErr)
		}
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
