package news

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gozaobot/gozao/internal/feed"
	"github.com/gozaobot/gozao/internal/llm"
)

type stubFetcher struct {
	mu      sync.Mutex
	feeds   map[string][]feed.Entry
	fetched []string
	delay   time.Duration
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) []feed.Entry {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(f.delay):
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, url)
	return f.feeds[url]
}

func (f *stubFetcher) fetchedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

type stubCompleter struct {
	mu   sync.Mutex
	reqs []llm.Request
	res  llm.Result
}

func (c *stubCompleter) Complete(_ context.Context, req llm.Request) llm.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reqs = append(c.reqs, req)
	return c.res
}

func (c *stubCompleter) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reqs)
}

type prefixShortener struct{}

func (prefixShortener) Shorten(_ context.Context, longURL string) string {
	return "https://is.gd/" + longURL[len(longURL)-1:]
}

func testSources() *feed.Sources {
	return &feed.Sources{
		Sources: []feed.Source{
			{Name: "g1", Label: feed.LabelGeneral, URL: "feed://g1"},
			{Name: "ge", Label: feed.LabelSports, URL: "feed://ge"},
		},
		TopicSearch: "search://%s",
	}
}

func entriesNamed(prefix string, n int) []feed.Entry {
	out := make([]feed.Entry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, feed.Entry{
			Title: fmt.Sprintf("%s %d", prefix, i),
			Link:  fmt.Sprintf("https://example.com/%s/%d", prefix, i),
		})
	}
	return out
}

func TestDigestNoCandidatesSkipsCompletion(t *testing.T) {
	fetcher := &stubFetcher{feeds: map[string][]feed.Entry{}}
	completer := &stubCompleter{res: llm.Result{Text: "não deveria rodar"}}

	p := New(fetcher, completer, nil, nil, testSources(), Config{})
	_, err := p.Digest(context.Background(), "tecnologia", 5)

	assert.ErrorIs(t, err, ErrNoNews)
	assert.Zero(t, completer.calls(), "the model must not be invoked with an empty candidate list")
}

func TestDigestEndToEndEsporte(t *testing.T) {
	fetcher := &stubFetcher{feeds: map[string][]feed.Entry{
		"feed://g1": {
			{Title: "Esporte movimenta economia", Link: "https://g1/e1"},
			{Title: "Final de esporte olímpico", Link: "https://g1/e2"},
			{Title: "Nova arena de esporte", Link: "https://g1/e3"},
			{Title: "Política em Brasília", Link: "https://g1/p1"}, // filtered out
		},
		"feed://ge": {
			{Title: "Esporte: rodada do brasileirão", Link: "https://ge/e1"},
			{Title: "Esporte amador cresce", Link: "https://ge/e2"},
			{Title: "Craque do esporte se aposenta", Link: "https://ge/e3"},
		},
		"search://esporte": entriesNamed("busca", 10),
	}}
	completer := &stubCompleter{res: llm.Result{Text: "digesto final", Model: "gemini-2.5-flash"}}

	p := New(fetcher, completer, nil, nil, testSources(), Config{})
	out, err := p.Digest(context.Background(), "esporte", 5)

	require.NoError(t, err)
	assert.Equal(t, "digesto final", out, "the digest is the completion text verbatim")

	require.Equal(t, 1, completer.calls())
	instruction := completer.reqs[0].Messages[0].Content

	// All 16 surviving candidates appear as source|title|link triples.
	assert.Equal(t, 16, strings.Count(instruction, "|https://"), "16 candidate triples expected")
	assert.Contains(t, instruction, "general|Esporte movimenta economia|https://g1/e1")
	assert.Contains(t, instruction, "sports|Esporte: rodada do brasileirão|https://ge/e1")
	assert.Contains(t, instruction, "topic|busca 9|https://example.com/busca/9")
	assert.NotContains(t, instruction, "Política em Brasília")
	assert.Contains(t, instruction, "no máximo 5 itens")
}

func TestGatherTimeoutAbandonsPartialResults(t *testing.T) {
	fetcher := &stubFetcher{
		feeds: map[string][]feed.Entry{"feed://g1": entriesNamed("lenta", 3)},
		delay: 200 * time.Millisecond,
	}
	completer := &stubCompleter{res: llm.Result{Text: "x"}}

	p := New(fetcher, completer, nil, nil, testSources(), Config{Timeout: 20 * time.Millisecond})
	_, err := p.Digest(context.Background(), "tecnologia", 5)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.Zero(t, completer.calls())
}

func TestTrendingSeedsSecondarySearches(t *testing.T) {
	sources := testSources()
	sources.Trending = "feed://trends"

	fetcher := &stubFetcher{feeds: map[string][]feed.Entry{
		"feed://trends": {
			{Title: "eleições", Link: "https://trends/1"},
			{Title: "carnaval", Link: "https://trends/2"},
			{Title: "dólar", Link: "https://trends/3"},
			{Title: "ignorado", Link: "https://trends/4"}, // beyond the fan-out
		},
		"search://elei%C3%A7%C3%B5es": entriesNamed("eleicoes", 2),
	}}
	completer := &stubCompleter{res: llm.Result{Text: "digesto"}}

	p := New(fetcher, completer, nil, nil, sources, Config{TrendingFanout: 3})
	_, err := p.Digest(context.Background(), "tecnologia", 5)
	require.NoError(t, err)

	fetched := strings.Join(fetcher.fetchedURLs(), "\n")
	assert.Contains(t, fetched, "search://elei%C3%A7%C3%B5es")
	assert.Contains(t, fetched, "search://carnaval")
	assert.Contains(t, fetched, "search://d%C3%B3lar")
	assert.NotContains(t, fetched, "search://ignorado")

	instruction := completer.reqs[0].Messages[0].Content
	assert.Contains(t, instruction, "trending|eleições|https://trends/1")
	assert.Contains(t, instruction, "topic|eleicoes 0|https://example.com/eleicoes/0")
}

func TestSportsSourceLenientWhenNothingMatches(t *testing.T) {
	fetcher := &stubFetcher{feeds: map[string][]feed.Entry{
		"feed://ge": {
			{Title: "Rodada do brasileirão", Link: "https://ge/1"},
			{Title: "Craque se aposenta", Link: "https://ge/2"},
		},
	}}
	completer := &stubCompleter{res: llm.Result{Text: "digesto"}}

	p := New(fetcher, completer, nil, nil, testSources(), Config{})
	_, err := p.Digest(context.Background(), "tecnologia", 5)
	require.NoError(t, err)

	instruction := completer.reqs[0].Messages[0].Content
	assert.Contains(t, instruction, "sports|Rodada do brasileirão|https://ge/1")
	assert.Contains(t, instruction, "sports|Craque se aposenta|https://ge/2")
}

func TestDigestDropsStaleCandidates(t *testing.T) {
	old := time.Now().Add(-48 * time.Hour)
	fresh := time.Now().Add(-time.Hour)
	fetcher := &stubFetcher{feeds: map[string][]feed.Entry{
		"search://tecnologia": {
			{Title: "velha", Link: "https://x/1", Published: &old},
			{Title: "fresca", Link: "https://x/2", Published: &fresh},
			{Title: "sem data", Link: "https://x/3"},
		},
	}}
	completer := &stubCompleter{res: llm.Result{Text: "digesto"}}

	p := New(fetcher, completer, nil, nil, testSources(), Config{})
	_, err := p.Digest(context.Background(), "tecnologia", 5)
	require.NoError(t, err)

	instruction := completer.reqs[0].Messages[0].Content
	assert.NotContains(t, instruction, "velha")
	assert.Contains(t, instruction, "fresca")
	assert.Contains(t, instruction, "sem data", "unknown dates pass the recency filter")
}

func TestDigestShortensLinks(t *testing.T) {
	fetcher := &stubFetcher{feeds: map[string][]feed.Entry{
		"search://tecnologia": {{Title: "uma notícia", Link: "https://example.com/longa/1"}},
	}}
	completer := &stubCompleter{res: llm.Result{Text: "digesto"}}

	p := New(fetcher, completer, prefixShortener{}, nil, testSources(), Config{})
	_, err := p.Digest(context.Background(), "tecnologia", 5)
	require.NoError(t, err)

	instruction := completer.reqs[0].Messages[0].Content
	assert.Contains(t, instruction, "|https://is.gd/1")
	assert.NotContains(t, instruction, "https://example.com/longa/1")
}

func TestDigestSurfacesCompletionOutcomes(t *testing.T) {
	feeds := map[string][]feed.Entry{
		"search://tecnologia": entriesNamed("n", 2),
	}

	p := New(&stubFetcher{feeds: feeds}, &stubCompleter{res: llm.Result{Err: errors.New("all models down")}}, nil, nil, testSources(), Config{})
	_, err := p.Digest(context.Background(), "tecnologia", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all models down")

	p = New(&stubFetcher{feeds: feeds}, &stubCompleter{res: llm.Result{Blocked: true}}, nil, nil, testSources(), Config{})
	_, err = p.Digest(context.Background(), "tecnologia", 5)
	assert.ErrorIs(t, err, ErrBlocked)
}

func TestBuildInstructionUrgentFraming(t *testing.T) {
	out := BuildInstruction("", []Candidate{{Source: feed.LabelGeneral, Title: "t", Link: "l"}}, 10, 1800)
	assert.Contains(t, out, "urgentes")
	assert.Contains(t, out, "general|t|l")
	assert.Contains(t, out, "no máximo 1800 caracteres")
}
