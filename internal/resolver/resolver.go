// Package resolver turns aggregator redirect links into the article URLs they
// point at. Google News RSS items link to an interstitial page, not the story;
// shortening or previewing those links is useless without this step.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

type Resolver struct {
	client *http.Client
}

func New() *Resolver {
	return &Resolver{
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// aggregatorHosts are the hosts whose links are interstitials worth resolving.
var aggregatorHosts = []string{"news.google.com", "trends.google.com"}

func isAggregatorLink(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	for _, host := range aggregatorHosts {
		if strings.HasSuffix(u.Host, host) {
			return true
		}
	}
	return false
}

// Resolve returns the canonical article URL behind link, or link itself when
// it is not an aggregator interstitial or anything goes wrong along the way.
func (r *Resolver) Resolve(ctx context.Context, link string) string {
	if !isAggregatorLink(link) {
		return link
	}

	target, err := r.extract(ctx, link)
	if err != nil {
		slog.Debug("link resolution failed, keeping original", "link", link, "error", err)
		return link
	}
	return target
}

func (r *Resolver) extract(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error parsing HTML: %w", err)
	}

	// Interstitials declare the real story either as og:url or as the first
	// outbound anchor.
	if og, ok := doc.Find(`meta[property="og:url"]`).Attr("content"); ok && isExternal(og, link) {
		return og, nil
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if isExternal(href, link) {
			found = href
			return false
		}
		return true
	})
	if found == "" {
		return "", fmt.Errorf("no outbound link found")
	}
	return found, nil
}

func isExternal(candidate, origin string) bool {
	cu, err := url.Parse(candidate)
	if err != nil || cu.Scheme != "http" && cu.Scheme != "https" {
		return false
	}
	ou, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return cu.Host != "" && cu.Host != ou.Host
}
