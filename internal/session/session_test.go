package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/flowforge/internal/table"
	"github.com/JonMunkholm/flowforge/internal/transform"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func orders() *table.Table {
	return table.MustNew(
		table.NewColumn("id", table.KindInteger, []any{1, 1, 2, 3}),
		table.NewColumn("product", table.KindText, []any{"Widget", "Widget", "Gadget", nil}),
	)
}

func newLoadedSession(t *testing.T) (*Manager, *Session) {
	t.Helper()
	m := NewManager(ManagerOptions{Now: newFakeClock().Now})
	s, err := m.Create()
	require.NoError(t, err)
	s.Load("orders.csv", orders())
	return m, s
}

// ---------------------------------------------------------------------------
// Session
// ---------------------------------------------------------------------------

func TestSession_ApplyReplacesCurrentOnSuccess(t *testing.T) {
	_, s := newLoadedSession(t)

	out := s.Apply(transform.Step{Kind: transform.OpRemoveDuplicates})
	require.True(t, out.Succeeded, out.Message)
	assert.Equal(t, 3, s.Current().NumRows())
	assert.Len(t, s.History(), 1)
}

func TestSession_ApplyKeepsCurrentOnFailure(t *testing.T) {
	_, s := newLoadedSession(t)
	before := s.Current()

	out := s.Apply(transform.Step{Kind: transform.OpDropColumns, Columns: []string{"nope"}})
	require.False(t, out.Succeeded)
	assert.Same(t, before, s.Current())
	assert.Empty(t, s.History())

	log := s.Log()
	require.Len(t, log, 2)
	assert.False(t, log[1].Succeeded)
	assert.Contains(t, log[1].Message, "nope")
}

func TestSession_ApplyWithoutLoad(t *testing.T) {
	m := NewManager(ManagerOptions{})
	s, err := m.Create()
	require.NoError(t, err)

	out := s.Apply(transform.Step{Kind: transform.OpRemoveDuplicates})
	assert.False(t, out.Succeeded)
	assert.Nil(t, s.Current())
	assert.False(t, s.Reset())
}

func TestSession_ResetRestoresOriginal(t *testing.T) {
	_, s := newLoadedSession(t)
	s.Apply(transform.Step{Kind: transform.OpRemoveDuplicates})
	require.Equal(t, 3, s.Current().NumRows())

	require.True(t, s.Reset())
	assert.Equal(t, 4, s.Current().NumRows())
	assert.Empty(t, s.History())
}

func TestSession_LoadClearsHistory(t *testing.T) {
	_, s := newLoadedSession(t)
	s.Apply(transform.Step{Kind: transform.OpRemoveDuplicates})
	require.Len(t, s.History(), 1)

	s.Load("other.csv", orders())
	assert.Empty(t, s.History())
	assert.Equal(t, "other.csv", s.Source())
}

func TestSession_ClearHistoryKeepsTable(t *testing.T) {
	_, s := newLoadedSession(t)
	s.Apply(transform.Step{Kind: transform.OpRemoveDuplicates})

	s.ClearHistory()
	assert.Empty(t, s.History())
	assert.Equal(t, 3, s.Current().NumRows())
}

func TestSession_RecipeNamedAfterSource(t *testing.T) {
	_, s := newLoadedSession(t)
	s.Apply(transform.Step{Kind: transform.OpSortData, Columns: []string{"id"}, Ascending: []bool{false}})

	r := s.Recipe()
	assert.Equal(t, "orders.csv", r.Name)
	require.Len(t, r.Steps, 1)
	assert.Equal(t, transform.OpSortData, r.Steps[0].Kind)
}

func TestSession_ReplayAppliesSteps(t *testing.T) {
	_, s := newLoadedSession(t)
	outs := s.Replay(transform.Recipe{Steps: []transform.Step{
		{Kind: transform.OpRemoveDuplicates},
		{Kind: transform.OpDropColumns, Columns: []string{"product"}},
	}}, false)

	require.Len(t, outs, 2)
	assert.Equal(t, 3, s.Current().NumRows())
	assert.Equal(t, []string{"id"}, s.Current().ColumnNames())
}

func TestSession_LogIsCapped(t *testing.T) {
	_, s := newLoadedSession(t)
	for i := 0; i < MaxLogEntries+10; i++ {
		s.Apply(transform.Step{Kind: transform.OpSortData, Columns: []string{"id"}})
	}

	log := s.Log()
	assert.Len(t, log, MaxLogEntries)
	assert.False(t, strings.HasPrefix(log[0].Message, "Loaded"), "oldest entry should have been dropped")
}

func TestSession_SummaryAndSuggestions(t *testing.T) {
	_, s := newLoadedSession(t)

	sum, err := s.Summary()
	require.NoError(t, err)
	assert.Equal(t, 4, sum.TotalRows)
	assert.Equal(t, 1, sum.DuplicateRows)

	sug := s.Suggestions("product")
	assert.NotNil(t, sug.Columns)
	assert.NotNil(t, sug.Data)
}

func TestSession_SummaryWithoutTable(t *testing.T) {
	m := NewManager(ManagerOptions{})
	s, _ := m.Create()

	_, err := s.Summary()
	require.Error(t, err)
	assert.Equal(t, transform.ErrEmptyInput, transform.KindOf(err))
}

func TestSession_ConcurrentApply(t *testing.T) {
	_, s := newLoadedSession(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Apply(transform.Step{Kind: transform.OpSortData, Columns: []string{"id"}})
		}()
	}
	wg.Wait()

	assert.Len(t, s.History(), 20)
}

// ---------------------------------------------------------------------------
// Manager
// ---------------------------------------------------------------------------

func TestManager_CreateGetDelete(t *testing.T) {
	m := NewManager(ManagerOptions{})
	s, err := m.Create()
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 1, m.Len())

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, m.Delete(s.ID))
	_, err = m.Get(s.ID)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	assert.ErrorIs(t, m.Delete(s.ID), ErrSessionNotFound)
}

func TestManager_MaxSessions(t *testing.T) {
	m := NewManager(ManagerOptions{MaxSessions: 1})
	_, err := m.Create()
	require.NoError(t, err)

	_, err = m.Create()
	assert.ErrorIs(t, err, ErrTooManySessions)
}

func TestManager_ExpiryAndSweep(t *testing.T) {
	clock := newFakeClock()
	m := NewManager(ManagerOptions{TTL: time.Minute, Now: clock.Now})

	stale, _ := m.Create()
	clock.Advance(45 * time.Second)
	fresh, _ := m.Create()
	clock.Advance(30 * time.Second)

	_, err := m.Get(stale.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = m.Get(fresh.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Len())
}

func TestManager_GetRefreshesLastSeen(t *testing.T) {
	clock := newFakeClock()
	m := NewManager(ManagerOptions{TTL: time.Minute, Now: clock.Now})
	s, _ := m.Create()

	for i := 0; i < 3; i++ {
		clock.Advance(40 * time.Second)
		_, err := m.Get(s.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, m.Sweep())
}

func TestManager_StartSweeperStopsOnCancel(t *testing.T) {
	m := NewManager(ManagerOptions{TTL: time.Nanosecond})
	_, _ = m.Create()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.StartSweeper(ctx, 5*time.Millisecond) }()

	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
