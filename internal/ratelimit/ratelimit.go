// Package ratelimit caps completion calls per model so a chatty channel
// cannot burn the whole daily API budget.
package ratelimit

import (
	"log/slog"
	"sync"
	"time"
)

// Limiter counts calls per model and resets all counters daily.
type Limiter struct {
	mu        sync.Mutex
	counts    map[string]int
	total     int
	maxPer    int // per-model cap, 0 = unlimited
	maxTotal  int // cap across all models, 0 = unlimited
	resetTime time.Time
	now       func() time.Time
}

func New(maxPerModel, maxTotal int) *Limiter {
	return NewWithClock(maxPerModel, maxTotal, time.Now)
}

// NewWithClock injects the time source, used by reset tests.
func NewWithClock(maxPerModel, maxTotal int, now func() time.Time) *Limiter {
	return &Limiter{
		counts:    make(map[string]int),
		maxPer:    maxPerModel,
		maxTotal:  maxTotal,
		resetTime: now().Add(24 * time.Hour),
		now:       now,
	}
}

// Allow reports whether one more call to model fits the budget and, when it
// does, records the call.
func (l *Limiter) Allow(model string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.checkReset()

	if l.maxPer > 0 && l.counts[model] >= l.maxPer {
		slog.Warn("model rate limit reached", "model", model, "used", l.counts[model], "limit", l.maxPer)
		return false
	}
	if l.maxTotal > 0 && l.total >= l.maxTotal {
		slog.Warn("total rate limit reached", "used", l.total, "limit", l.maxTotal)
		return false
	}

	l.counts[model]++
	l.total++
	return true
}

// Stats returns current usage per model plus the running total.
func (l *Limiter) Stats() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := make(map[string]int, len(l.counts)+1)
	for model, n := range l.counts {
		stats[model] = n
	}
	stats["total"] = l.total
	return stats
}

func (l *Limiter) checkReset() {
	if l.now().After(l.resetTime) {
		slog.Info("resetting rate limiter counters", "total_used", l.total)
		l.counts = make(map[string]int)
		l.total = 0
		l.resetTime = l.now().Add(24 * time.Hour)
	}
}
