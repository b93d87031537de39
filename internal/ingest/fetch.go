package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/obinexus/trie-search-mcp-server/internal/trie"
)

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 60 * time.Second
)

// Fetcher pulls remote pages for indexing with timeout, bounded retries and
// rate limiting across concurrent fetches.
type Fetcher struct {
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	logger     zerolog.Logger
}

// NewFetcher creates a fetcher. maxRetries bounds attempts beyond the first
// request; maxConcurrent is the number of fetches allowed to start per second
// and the burst size. The number of requests in flight is not bounded.
func NewFetcher(timeout time.Duration, maxRetries, maxConcurrent int, logger zerolog.Logger) *Fetcher {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Fetcher{
		client:     &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(maxConcurrent), maxConcurrent),
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Fetch retrieves rawURL with exponential backoff on transient failures.
// Server errors and throttling responses are retried; other client errors
// fail immediately.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, "", fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	backoff := initialBackoff
	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			f.logger.Debug().Str("url", rawURL).Int("attempt", attempt).Dur("backoff", backoff).
				Msg("retrying fetch")
			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		body, contentType, retryable, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			return body, contentType, nil
		}
		lastErr = err
		if !retryable {
			return nil, "", err
		}
	}
	return nil, "", fmt.Errorf("fetch failed after %d attempts: %w", f.maxRetries+1, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (body []byte, contentType string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", false, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, "", true, fmt.Errorf("failed to read body: %w", err)
		}
		return data, resp.Header.Get("Content-Type"), false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, "", true, fmt.Errorf("server returned %s", resp.Status)
	default:
		return nil, "", false, fmt.Errorf("server returned %s", resp.Status)
	}
}

// FetchDocument retrieves rawURL and converts it into a document based on
// its content type, dispatching to the HTML or markdown adapter. The
// document id is derived from the URL path.
func (f *Fetcher) FetchDocument(ctx context.Context, rawURL string) (*trie.Document, error) {
	body, contentType, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	id := documentID(rawURL)
	switch {
	case strings.Contains(contentType, "text/html"):
		return FromHTML(id, bytes.NewReader(body))
	case strings.Contains(contentType, "markdown") || strings.HasSuffix(id, ".md"):
		return FromMarkdown(id, body)
	default:
		return &trie.Document{
			ID: id,
			Fields: map[string]trie.FieldValue{
				"title":   trie.String(titleFromID(id)),
				"content": trie.Content(string(body)),
			},
		}, nil
	}
}

// documentID derives a stable id from a URL: host plus trimmed path.
func documentID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return u.Host
	}
	return u.Host + "/" + path
}
