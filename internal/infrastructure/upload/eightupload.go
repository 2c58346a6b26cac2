package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ImageMigrator/internal/domain"
	"ImageMigrator/internal/ports"
	"ImageMigrator/internal/relay"
)

const (
	// ProviderName identifies the relay inside the registry.
	ProviderName = "8upload"

	hotlinkLabel    = "Hotlink / Direct-Link"
	deleteLinkLabel = "Delete Link"

	unsupportedTypePhrase = "It seems that the added URL is not a URL to the image. Please check and try again"

	maxResponseBytes = 4 << 20
)

// EightUpload submits origin URLs to 8upload's fetch-by-URL form and scrapes the result page.
type EightUpload struct {
	client    *http.Client
	endpoint  string
	userAgent string
	logger    *slog.Logger
	maxBody   int64
}

var (
	_ relay.Relay    = (*EightUpload)(nil)
	_ ports.Uploader = (*EightUpload)(nil)
)

// NewEightUpload wires the shared HTTP client with the upload form endpoint.
func NewEightUpload(client *http.Client, endpoint, userAgent string, logger *slog.Logger) *EightUpload {
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &EightUpload{
		client:    client,
		endpoint:  endpoint,
		userAgent: userAgent,
		logger:    logger,
		maxBody:   maxResponseBytes,
	}
}

// Name identifies the strategy inside the registry.
func (e *EightUpload) Name() string {
	return ProviderName
}

// Upload posts the normalized URL and returns the hotlink and delete link found in the response.
func (e *EightUpload) Upload(ctx context.Context, rawURL string) (domain.UploadResult, error) {
	normalized, err := Normalize(rawURL)
	if err != nil {
		return domain.UploadResult{}, err
	}

	body, err := e.submit(ctx, normalized)
	if err != nil {
		return domain.UploadResult{}, err
	}

	if bytes.Contains(body, []byte(unsupportedTypePhrase)) {
		return domain.UploadResult{}, fmt.Errorf("%s: %w", normalized, domain.ErrUnsupportedFileType)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("parse document: %w", err)
	}

	return domain.UploadResult{
		Hotlink:    LabeledValue(doc, hotlinkLabel),
		DeleteLink: LabeledValue(doc, deleteLinkLabel),
	}, nil
}

func (e *EightUpload) submit(ctx context.Context, normalized string) ([]byte, error) {
	form := url.Values{}
	form.Set("url", normalized)
	form.Set("submit", "Submit")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if !domain.IsSuccess(resp.StatusCode) {
		return nil, &domain.StatusError{URL: e.endpoint, Status: resp.Status, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) > e.maxBody {
		e.logger.Warn("upload response truncated, links may be missing",
			"url", normalized, "limit_bytes", e.maxBody)
		body = body[:e.maxBody]
	}
	return body, nil
}

// Normalize drops query and fragment, and percent-encodes every dot of the
// path except the last one. 8upload rejects query strings and reads any
// earlier dot as the extension separator.
func Normalize(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %s: %w", rawURL, err)
	}

	escaped := parsed.EscapedPath()
	if dots := strings.Count(escaped, "."); dots > 1 {
		escaped = strings.Replace(escaped, ".", "%2E", dots-1)
	}

	path, err := url.PathUnescape(escaped)
	if err != nil {
		return "", fmt.Errorf("invalid path %s: %w", escaped, err)
	}

	parsed.Path = path
	parsed.RawPath = escaped
	parsed.RawQuery = ""
	parsed.ForceQuery = false
	parsed.Fragment = ""
	parsed.RawFragment = ""
	return parsed.String(), nil
}
