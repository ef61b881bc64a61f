// Package session holds the per-user working state of the transform
// service: the originally loaded table, the current table, the operation
// ledger and a short display log.
//
// All mutation goes through a Session's mutex, so one session sees its
// operations applied strictly in order.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/flowforge/internal/table"
	"github.com/JonMunkholm/flowforge/internal/transform"
)

// MaxLogEntries caps the display log; the oldest entries are dropped first.
const MaxLogEntries = 200

// LogEntry is one line of the user-facing activity log.
type LogEntry struct {
	Time      time.Time `json:"time"`
	Message   string    `json:"message"`
	Succeeded bool      `json:"succeeded"`
}

// Session is one working copy of a dataset.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	engine   *transform.Engine
	now      func() time.Time
	source   string
	original *table.Table
	current  *table.Table
	log      []LogEntry
	lastSeen time.Time
}

func newSession(id string, engine *transform.Engine, now func() time.Time) *Session {
	t := now()
	return &Session{
		ID:        id,
		CreatedAt: t,
		engine:    engine,
		now:       now,
		lastSeen:  t,
	}
}

// Load makes t both the original and the current table and clears the
// ledger. source is a display label such as a file name.
func (s *Session) Load(source string, t *table.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.source = source
	s.original = t
	s.current = t
	s.engine.ClearHistory()
	s.appendLog(loadMessage(source, t), true)
}

func loadMessage(source string, t *table.Table) string {
	msg := fmt.Sprintf("Loaded %d rows and %d columns", t.NumRows(), t.NumCols())
	if source != "" {
		msg += " from " + source
	}
	return msg
}

// Source returns the label passed to the last Load.
func (s *Session) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// Current returns the current table, or nil before the first Load.
func (s *Session) Current() *table.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Apply runs step against the current table. The current table is replaced
// only when the operation succeeds.
func (s *Session) Apply(step transform.Step) transform.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.engine.Apply(s.current, step)
	if out.Succeeded {
		s.current = out.Table
	}
	s.appendLog(out.Message, out.Succeeded)
	return out
}

// Replay applies a recipe step by step under the session lock.
func (s *Session) Replay(r transform.Recipe, keepGoing bool) []transform.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, outs := s.engine.Replay(s.current, r, keepGoing)
	s.current = cur
	for _, out := range outs {
		s.appendLog(out.Message, out.Succeeded)
	}
	return outs
}

// Reset restores the originally loaded table and clears the ledger.
// It reports false when nothing has been loaded.
func (s *Session) Reset() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.original == nil {
		return false
	}
	s.current = s.original
	s.engine.ClearHistory()
	s.appendLog("Reset to original data", true)
	return true
}

// History returns the operation ledger, oldest first.
func (s *Session) History() []transform.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.History()
}

// ClearHistory empties the ledger without touching the current table.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.ClearHistory()
	s.appendLog("History cleared", true)
}

// Recipe returns the ledger as a replayable recipe.
func (s *Session) Recipe() transform.Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.engine.Recipe()
	r.Name = s.source
	return r
}

// Log returns a copy of the display log, oldest first.
func (s *Session) Log() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LogEntry, len(s.log))
	copy(out, s.log)
	return out
}

// Summary describes the current table.
func (s *Session) Summary() (transform.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return transform.Summarize(s.current)
}

// Suggestions runs the typo heuristic over the current table's headers and,
// when column is set, over that column's values.
func (s *Session) Suggestions(column string) transform.Suggestions {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return transform.Suggestions{Columns: map[string][]string{}, Data: map[string][]string{}}
	}
	return s.engine.SuggestTypos(s.current, column)
}

// LastSeen returns when the session was last touched.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
}

// appendLog must be called with s.mu held.
func (s *Session) appendLog(msg string, ok bool) {
	s.log = append(s.log, LogEntry{Time: s.now(), Message: msg, Succeeded: ok})
	if over := len(s.log) - MaxLogEntries; over > 0 {
		s.log = append(s.log[:0:0], s.log[over:]...)
	}
}
