package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	CommandsHandled      int64
	CompletionsOK        int64
	CompletionsBlocked   int64
	CompletionsExhausted int64
	FeedsFetched         int64
	FeedsEmpty           int64
	CandidatesGathered   int64
	DigestsProduced      int64
	BroadcastsDelivered  int64
	MessagesSent         int64
	MessagesTruncated    int64
	SessionsDiscarded    int64

	// Timings
	LastDigestTime    time.Duration
	TotalDigestTime   time.Duration
	AverageDigestTime time.Duration
	DigestCount       int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) IncrementCommandsHandled() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CommandsHandled++
}

func (m *Metrics) IncrementCompletionsOK() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompletionsOK++
}

func (m *Metrics) IncrementCompletionsBlocked() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompletionsBlocked++
}

func (m *Metrics) IncrementCompletionsExhausted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompletionsExhausted++
}

func (m *Metrics) RecordFeedFetch(entries int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FeedsFetched++
	if entries == 0 {
		m.FeedsEmpty++
	}
	m.CandidatesGathered += int64(entries)
}

func (m *Metrics) IncrementBroadcastsDelivered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BroadcastsDelivered++
}

func (m *Metrics) RecordMessageSent(truncated bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesSent++
	if truncated {
		m.MessagesTruncated++
	}
}

func (m *Metrics) IncrementSessionsDiscarded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SessionsDiscarded++
}

func (m *Metrics) RecordDigestTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DigestsProduced++
	m.LastDigestTime = duration
	m.TotalDigestTime += duration
	m.DigestCount++

	if m.DigestCount > 0 {
		m.AverageDigestTime = m.TotalDigestTime / time.Duration(m.DigestCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"commands_handled":       m.CommandsHandled,
		"completions_ok":         m.CompletionsOK,
		"completions_blocked":    m.CompletionsBlocked,
		"completions_exhausted":  m.CompletionsExhausted,
		"feeds_fetched":          m.FeedsFetched,
		"feeds_empty":            m.FeedsEmpty,
		"candidates_gathered":    m.CandidatesGathered,
		"digests_produced":       m.DigestsProduced,
		"broadcasts_delivered":   m.BroadcastsDelivered,
		"messages_sent":          m.MessagesSent,
		"messages_truncated":     m.MessagesTruncated,
		"sessions_discarded":     m.SessionsDiscarded,
		"last_digest_time_ms":    m.LastDigestTime.Milliseconds(),
		"average_digest_time_ms": m.AverageDigestTime.Milliseconds(),
		"last_run_time":          m.LastRunTime.Format(time.RFC3339),
		"last_error_time":        m.LastErrorTime.Format(time.RFC3339),
		"last_error":             m.LastError,
		"is_healthy":             m.IsHealthy,
	}
}
