// Package feed wraps RSS retrieval and parsing into a normalized entry list.
package feed

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Label says which kind of source an entry came from, so downstream filtering
// and the curation prompt can prioritize by source.
type Label string

const (
	LabelGeneral  Label = "general"
	LabelSports   Label = "sports"
	LabelTrending Label = "trending"
	LabelTopic    Label = "topic"
)

// Entry is one normalized feed item. Published is nil when the feed carried
// no parseable publish time; entries are never excluded on missing metadata.
type Entry struct {
	Title     string
	Link      string
	Published *time.Time
}

// Fetcher retrieves and parses one feed URL. Implementations must come back
// with an empty slice on failure; callers check emptiness, not errors.
type Fetcher interface {
	Fetch(ctx context.Context, url string) []Entry
}

// HTTPFetcher is the gofeed-backed Fetcher.
type HTTPFetcher struct {
	parser *gofeed.Parser
}

func NewFetcher() *HTTPFetcher {
	return &HTTPFetcher{parser: gofeed.NewParser()}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) []Entry {
	parsed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		slog.Warn("feed fetch failed", "url", url, "error", err)
		return nil
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}
		entries = append(entries, Entry{
			Title:     title,
			Link:      link,
			Published: item.PublishedParsed,
		})
	}
	slog.Debug("feed fetched", "url", url, "entries", len(entries))
	return entries
}

// treatUnknownAsRecent keeps entries whose publish time is absent or
// unparseable inside every recency window. The lenient fallback makes the
// recency filter non-authoritative, which is the documented policy here:
// feeds are inconsistent about dates and dropping undated items loses more
// than it gains.
const treatUnknownAsRecent = true

// IsRecent reports whether the entry was published within window of now.
func IsRecent(e Entry, window time.Duration, now time.Time) bool {
	if e.Published == nil {
		return treatUnknownAsRecent
	}
	return now.Sub(*e.Published) <= window
}
