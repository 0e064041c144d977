// Package news gathers candidates from multiple feed sources and delegates
// final selection, deduplication and prose formatting to the language model.
// The pipeline's job is only to deliver a clean candidate set and an
// unambiguous instruction.
package news

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gozaobot/gozao/internal/feed"
	"github.com/gozaobot/gozao/internal/llm"
	"github.com/gozaobot/gozao/internal/metrics"
)

var (
	// ErrNoNews means every source contributed zero candidates.
	ErrNoNews = errors.New("no news candidates found")
	// ErrTimeout means the aggregation window closed before the fan-out finished.
	ErrTimeout = errors.New("news aggregation timed out")
	// ErrBlocked means the curation completion came back empty.
	ErrBlocked = errors.New("curation completion was empty")
)

// Candidate is one feed-sourced title/link pair awaiting curation, tagged
// with the source it came from.
type Candidate struct {
	Source    feed.Label
	Title     string
	Link      string
	Published *time.Time
}

// LinkResolver canonicalizes aggregator redirect links.
type LinkResolver interface {
	Resolve(ctx context.Context, link string) string
}

// LinkShortener maps a long URL to a short one, falling back to the input.
type LinkShortener interface {
	Shorten(ctx context.Context, longURL string) string
}

// Config bounds the pipeline.
type Config struct {
	Timeout        time.Duration // overall fan-out budget
	MaxAge         time.Duration // recency window for candidates
	TrendingFanout int           // secondary searches seeded from trending titles
	CharBudget     int           // output character ceiling handed to the model
	CurationTemp   float32
}

// Pipeline orchestrates fetch, filter, merge, enrich and curate.
type Pipeline struct {
	fetcher   feed.Fetcher
	completer llm.Completer
	shortener LinkShortener
	resolver  LinkResolver
	sources   *feed.Sources
	cfg       Config
	now       func() time.Time
}

func New(fetcher feed.Fetcher, completer llm.Completer, short LinkShortener, res LinkResolver, sources *feed.Sources, cfg Config) *Pipeline {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 24 * time.Hour
	}
	if cfg.TrendingFanout <= 0 {
		cfg.TrendingFanout = 3
	}
	if cfg.CharBudget <= 0 {
		cfg.CharBudget = 1800
	}
	if cfg.CurationTemp <= 0 {
		cfg.CurationTemp = 0.4
	}
	return &Pipeline{
		fetcher:   fetcher,
		completer: completer,
		shortener: short,
		resolver:  res,
		sources:   sources,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Digest runs the whole pipeline for a topic and returns the model's digest
// verbatim. maxItems caps how many items the instruction asks for.
func (p *Pipeline) Digest(ctx context.Context, topic string, maxItems int) (string, error) {
	start := p.now()

	candidates, err := p.gather(ctx, topic)
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", ErrNoNews
	}

	p.enrich(ctx, candidates)

	instruction := BuildInstruction(topic, candidates, maxItems, p.cfg.CharBudget)
	res := p.completer.Complete(ctx, llm.Prompt(instruction, p.cfg.CurationTemp))
	if res.Err != nil {
		return "", fmt.Errorf("curation completion: %w", res.Err)
	}
	if res.Text == "" {
		metrics.Global.IncrementCompletionsBlocked()
		return "", ErrBlocked
	}

	metrics.Global.RecordDigestTime(time.Since(start))
	metrics.Global.SetLastRun()
	slog.Info("digest produced", "topic", topic, "candidates", len(candidates), "model", res.Model)
	return res.Text, nil
}

// gather fans out to every configured source under one deadline and merges
// the surviving entries into a single labeled candidate list. Per-source
// failures contribute nothing; only the deadline aborts the whole gather.
func (p *Pipeline) gather(ctx context.Context, topic string) ([]Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	now := p.now()

	var mu sync.Mutex
	var merged []Candidate
	seen := map[string]struct{}{}
	add := func(label feed.Label, entries []feed.Entry) {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range entries {
			if _, dup := seen[e.Link]; dup {
				continue
			}
			seen[e.Link] = struct{}{}
			merged = append(merged, Candidate{Source: label, Title: e.Title, Link: e.Link, Published: e.Published})
		}
	}

	// Trending goes first: its titles steer the secondary searches.
	var trendTitles []string
	if p.sources.Trending != "" {
		entries := p.fetcher.Fetch(ctx, p.sources.Trending)
		metrics.Global.RecordFeedFetch(len(entries))
		for i, e := range entries {
			if i >= p.cfg.TrendingFanout {
				break
			}
			trendTitles = append(trendTitles, e.Title)
		}
		add(feed.LabelTrending, p.recent(entries[:len(trendTitles)], now))
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, src := range p.sources.Sources {
		src := src
		g.Go(func() error {
			entries := p.fetcher.Fetch(gctx, src.URL)
			metrics.Global.RecordFeedFetch(len(entries))
			entries = p.recent(entries, now)
			add(src.Label, p.filterByLabel(src.Label, entries, topic))
			return nil
		})
	}

	if p.sources.TopicSearch != "" {
		g.Go(func() error {
			entries := p.fetcher.Fetch(gctx, p.sources.SearchURL(topic))
			metrics.Global.RecordFeedFetch(len(entries))
			add(feed.LabelTopic, p.recent(entries, now))
			return nil
		})
		for _, title := range trendTitles {
			title := title
			g.Go(func() error {
				entries := p.fetcher.Fetch(gctx, p.sources.SearchURL(title))
				metrics.Global.RecordFeedFetch(len(entries))
				add(feed.LabelTopic, p.recent(entries, now))
				return nil
			})
		}
	}

	_ = g.Wait() // fetchers report failure as emptiness, never as an error

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		// Partial results are abandoned on timeout.
		return nil, ErrTimeout
	}

	return merged, nil
}

// recent drops entries older than the window; unknown dates pass (lenient
// policy, see feed.IsRecent).
func (p *Pipeline) recent(entries []feed.Entry, now time.Time) []feed.Entry {
	kept := entries[:0:0]
	for _, e := range entries {
		if feed.IsRecent(e, p.cfg.MaxAge, now) {
			kept = append(kept, e)
		}
	}
	return kept
}

// filterByLabel applies topic filtering per source kind. General sources must
// overlap the topic. Sports keeps matching entries when any exist and
// everything otherwise, so its candidates never starve on title mismatch.
func (p *Pipeline) filterByLabel(label feed.Label, entries []feed.Entry, topic string) []feed.Entry {
	switch label {
	case feed.LabelGeneral:
		return filterByTopic(entries, topic)
	case feed.LabelSports:
		if matched := filterByTopic(entries, topic); len(matched) > 0 {
			return matched
		}
		return entries
	default:
		return entries
	}
}

// filterByTopic keeps entries whose title contains any topic token longer
// than two characters, case-insensitively.
func filterByTopic(entries []feed.Entry, topic string) []feed.Entry {
	var tokens []string
	for _, tok := range strings.Fields(strings.ToLower(topic)) {
		if len([]rune(tok)) > 2 {
			tokens = append(tokens, tok)
		}
	}
	if len(tokens) == 0 {
		return entries
	}

	kept := entries[:0:0]
	for _, e := range entries {
		title := strings.ToLower(e.Title)
		for _, tok := range tokens {
			if strings.Contains(title, tok) {
				kept = append(kept, e)
				break
			}
		}
	}
	return kept
}

// enrich resolves and shortens every candidate link in parallel. Each link
// falls back to its original form on failure; nothing here can fail the pipeline.
func (p *Pipeline) enrich(ctx context.Context, candidates []Candidate) {
	if p.resolver == nil && p.shortener == nil {
		return
	}

	var wg sync.WaitGroup
	for i := range candidates {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			link := candidates[i].Link
			if p.resolver != nil {
				link = p.resolver.Resolve(ctx, link)
			}
			if p.shortener != nil {
				link = p.shortener.Shorten(ctx, link)
			}
			candidates[i].Link = link
		}()
	}
	wg.Wait()
}
