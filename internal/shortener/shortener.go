// Package shortener maps long URLs to short ones, falling back to the
// original on any failure so the pipeline never blocks on it.
package shortener

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gozaobot/gozao/internal/cache"
)

const endpoint = "https://is.gd/create.php"

// Shortener is what the curation pipeline depends on.
type Shortener interface {
	Shorten(ctx context.Context, longURL string) string
}

// ISGd shortens through the is.gd simple-format API, caching results so
// recurring links skip the round trip.
type ISGd struct {
	client   *http.Client
	cache    *cache.Cache
	ttl      time.Duration
	endpoint string
}

func New(ttl time.Duration) *ISGd {
	return &ISGd{
		client:   &http.Client{Timeout: 10 * time.Second},
		cache:    cache.New(),
		ttl:      ttl,
		endpoint: endpoint,
	}
}

func (s *ISGd) Shorten(ctx context.Context, longURL string) string {
	if cached, ok := s.cache.Get(longURL); ok {
		return cached
	}

	short, err := s.shortenOnce(ctx, longURL)
	if err != nil {
		slog.Debug("shortening failed, keeping original", "url", longURL, "error", err)
		return longURL
	}

	s.cache.Set(longURL, short, s.ttl)
	return short
}

func (s *ISGd) shortenOnce(ctx context.Context, longURL string) (string, error) {
	params := url.Values{}
	params.Set("format", "simple")
	params.Set("url", longURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("shortener API error: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return "", fmt.Errorf("error reading response: %w", err)
	}

	short := strings.TrimSpace(string(body))
	if !strings.HasPrefix(short, "http") {
		return "", fmt.Errorf("unexpected shortener response: %q", short)
	}
	return short, nil
}

// Noop returns every URL unchanged, wired in when shortening is disabled.
type Noop struct{}

func (Noop) Shorten(_ context.Context, longURL string) string { return longURL }
