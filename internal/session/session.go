// Package session keeps per-identity conversation history with time-based expiry.
//
// State is memory-resident only; a session that expires is simply rebuilt on
// the next access, and sessions for identities that never return are not
// reclaimed. That is acceptable for bounded deployments and a known limitation.
package session

import (
	"sync"
	"time"
)

// Timeout is how long a session survives without activity.
const Timeout = time.Hour

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Key identifies one conversation: state is scoped per user per channel.
type Key struct {
	Channel string
	User    string
}

// Message is one entry of a conversation history.
type Message struct {
	Role    string
	Content string
}

// Session is the ordered history plus the last-active timestamp for one key.
// The first entry is always the persona system message.
type Session struct {
	History    []Message
	LastActive time.Time
}

func (s *Session) AppendUser(text string) {
	s.History = append(s.History, Message{Role: RoleUser, Content: text})
}

func (s *Session) AppendAssistant(text string) {
	s.History = append(s.History, Message{Role: RoleAssistant, Content: text})
}

func (s *Session) expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastActive) > timeout
}

// Store is the key-value abstraction the command layer depends on, so the
// in-memory map can be swapped for an external cache without touching call sites.
type Store interface {
	// GetOrCreate returns the session for key, (re)initialized to a single
	// persona entry when absent or expired, with last-active refreshed.
	GetOrCreate(key Key) *Session
	// Clear removes the session for key and reports whether one existed.
	Clear(key Key) bool
}

// MemoryStore is a mutex-guarded in-memory Store. Expiry is checked lazily on
// access; there is no background sweep.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[Key]*Session
	persona  string
	timeout  time.Duration
	now      func() time.Time
}

// Option tweaks a MemoryStore at construction time.
type Option func(*MemoryStore)

// WithTimeout overrides the default session timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *MemoryStore) { s.timeout = d }
}

// WithClock injects the time source, used by expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates a store whose sessions always start with the given
// persona instruction as their single system entry.
func NewMemoryStore(persona string, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[Key]*Session),
		persona:  persona,
		timeout:  Timeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) GetOrCreate(key Key) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess, ok := s.sessions[key]
	if !ok || sess.expired(now, s.timeout) {
		sess = &Session{
			History:    []Message{{Role: RoleSystem, Content: s.persona}},
			LastActive: now,
		}
		s.sessions[key] = sess
		return sess
	}

	sess.LastActive = now
	return sess
}

func (s *MemoryStore) Clear(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[key]; !ok {
		return false
	}
	delete(s.sessions, key)
	return true
}

// Len reports how many sessions are currently held, including stale ones
// that have not been touched since expiring.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
