package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/flowforge/internal/table"
)

type event struct {
	step, message string
	level         Level
}

type captureSink struct{ events []event }

func (c *captureSink) Record(step, message string, level Level) {
	c.events = append(c.events, event{step, message, level})
}

func newTestEngine() (*Engine, *captureSink) {
	sink := &captureSink{}
	clock := func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return NewEngine(WithSink(sink), WithClock(clock)), sink
}

func col(t *testing.T, tbl *table.Table, name string) *table.Column {
	t.Helper()
	c, ok := tbl.Column(name)
	require.True(t, ok, "column %s missing", name)
	return c
}

func people() *table.Table {
	return table.MustNew(
		table.NewColumn("id", table.KindInteger, []any{1, 2, 3, 4, 5}),
		table.NewColumn("name", table.KindText, []any{"Ann", "Bob", nil, "Dee", "Eve"}),
		table.NewColumn("age", table.KindInteger, []any{30, nil, 25, nil, 40}),
		table.NewColumn("city", table.KindText, []any{"NY", "LA", "NY", nil, "SF"}),
		table.NewColumn("score", table.KindFloat, []any{1.5, 2.5, nil, 4.0, 2.5}),
	)
}
