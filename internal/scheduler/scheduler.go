// Package scheduler re-runs the curation pipeline on a fixed interval and
// delivers the digest to whichever channel last claimed the broadcast slot.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gozaobot/gozao/internal/metrics"
)

// Digester is the curation pipeline seam.
type Digester interface {
	Digest(ctx context.Context, topic string, maxItems int) (string, error)
}

// Sender delivers one outbound message to a channel.
type Sender interface {
	Send(ctx context.Context, channel string, text string) error
}

// Scheduler owns the single-slot broadcast target. Last write wins; an unset
// target makes every tick a no-op. The slot is memory-resident only and does
// not survive a restart.
type Scheduler struct {
	mu     sync.Mutex
	target string

	digester Digester
	sender   Sender
	interval time.Duration
	items    int
}

func New(digester Digester, sender Sender, interval time.Duration, items int) *Scheduler {
	return &Scheduler{
		digester: digester,
		sender:   sender,
		interval: interval,
		items:    items,
	}
}

// SetTarget claims the broadcast destination.
func (s *Scheduler) SetTarget(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = channel
	slog.Info("broadcast target set", "channel", channel)
}

// Target returns the current destination, empty when unset.
func (s *Scheduler) Target() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Run ticks until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one broadcast round. Exported so a manual trigger and tests can
// drive it directly.
func (s *Scheduler) Tick(ctx context.Context) {
	target := s.Target()
	if target == "" {
		slog.Debug("broadcast tick skipped, no target configured")
		return
	}

	digest, err := s.digester.Digest(ctx, "", s.items)
	if err != nil {
		// Scheduled runs fail silently toward users; the next tick retries.
		slog.Warn("scheduled digest failed", "error", err)
		metrics.Global.SetError(err.Error())
		return
	}

	if err := s.sender.Send(ctx, target, digest); err != nil {
		slog.Error("broadcast delivery failed", "channel", target, "error", err)
		return
	}
	metrics.Global.IncrementBroadcastsDelivered()
}
