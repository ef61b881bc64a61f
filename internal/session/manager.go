package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/flowforge/internal/transform"
)

var (
	// ErrSessionNotFound is returned for unknown or expired session IDs.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTooManySessions is returned by Create when MaxSessions is reached.
	ErrTooManySessions = errors.New("too many active sessions")
)

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// TTL is how long an untouched session survives. Zero disables expiry.
	TTL time.Duration
	// MaxSessions caps live sessions. Zero means unlimited.
	MaxSessions int
	// EngineOptions are passed to every new session's engine.
	EngineOptions []transform.Option
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Manager owns the live sessions.
type Manager struct {
	opts ManagerOptions
	now  func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager returns an empty manager.
func NewManager(opts ManagerOptions) *Manager {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		opts:     opts,
		now:      now,
		sessions: make(map[string]*Session),
	}
}

// Create starts a session with a fresh engine. The engine's audit events
// go to the default logger tagged with the session ID.
func (m *Manager) Create() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.opts.MaxSessions > 0 && len(m.sessions) >= m.opts.MaxSessions {
		return nil, ErrTooManySessions
	}

	id := uuid.NewString()
	opts := append([]transform.Option{
		transform.WithSink(transform.NewSlogSink(slog.Default().With("session_id", id))),
		transform.WithClock(m.now),
	}, m.opts.EngineOptions...)

	s := newSession(id, transform.NewEngine(opts...), m.now)
	m.sessions[id] = s
	return s, nil
}

// Get returns the session and marks it as recently used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok || m.expired(s) {
		return nil, ErrSessionNotFound
	}
	s.touch()
	return s, nil
}

// Delete removes a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

// Len returns the number of live sessions, expired or not.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) expired(s *Session) bool {
	return m.opts.TTL > 0 && m.now().Sub(s.LastSeen()) > m.opts.TTL
}

// Sweep evicts expired sessions and returns how many were removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper calls Sweep every interval until ctx is done. It blocks, so
// run it in its own goroutine.
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				slog.Info("expired sessions evicted", "count", n, "remaining", m.Len())
			}
		}
	}
}
