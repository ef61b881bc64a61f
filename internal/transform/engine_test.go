package transform

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/flowforge/internal/table"
)

func TestRemoveDuplicates_EndToEnd(t *testing.T) {
	e, sink := newTestEngine()
	in := table.MustNew(
		table.NewColumn("id", table.KindInteger, []any{1, 1, 2}),
		table.NewColumn("amount", table.KindInteger, []any{10, 10, 20}),
	)

	out := e.RemoveDuplicates(in, DedupParams{Keep: KeepFirst})

	require.True(t, out.Succeeded, out.Message)
	assert.Equal(t, "Removed 1 duplicate rows", out.Message)
	assert.Equal(t, []any{int64(1), int64(2)}, col(t, out.Table, "id").Values)
	assert.Equal(t, []any{int64(10), int64(20)}, col(t, out.Table, "amount").Values)

	hist := e.History()
	require.Len(t, hist, 1)
	assert.Equal(t, OpRemoveDuplicates, hist[0].Operation)
	assert.Equal(t, 3, hist[0].RowsBefore)
	assert.Equal(t, 2, hist[0].RowsAfter)
	assert.Equal(t, -1, hist[0].RowsChanged())
	assert.Equal(t, 0, hist[0].ColsChanged())

	require.Len(t, sink.events, 1)
	assert.Equal(t, "TRANSFORM", sink.events[0].step)
	assert.Equal(t, LevelInfo, sink.events[0].level)
	assert.Contains(t, sink.events[0].message, "REMOVE_DUPLICATES")
}

func TestRemoveDuplicates_IdempotentAndKeepLast(t *testing.T) {
	e, _ := newTestEngine()
	in := table.MustNew(
		table.NewColumn("k", table.KindText, []any{"a", "b", "a", nil, nil}),
		table.NewColumn("v", table.KindInteger, []any{1, 2, 3, 4, 5}),
	)

	once := e.RemoveDuplicates(in, DedupParams{Columns: []string{"k"}})
	twice := e.RemoveDuplicates(once.Table, DedupParams{Columns: []string{"k"}})
	assert.Equal(t, once.Table.Records(0), twice.Table.Records(0))
	assert.Equal(t, []any{int64(1), int64(2), int64(4)}, col(t, once.Table, "v").Values)
	assert.Equal(t, "Removed 0 duplicate rows", twice.Message)

	last := e.RemoveDuplicates(in, DedupParams{Columns: []string{"k"}, Keep: KeepLast})
	assert.Equal(t, []any{int64(2), int64(3), int64(5)}, col(t, last.Table, "v").Values)

	bad := e.RemoveDuplicates(in, DedupParams{Keep: "middle"})
	assert.False(t, bad.Succeeded)
	assert.Equal(t, ErrValidation, KindOf(bad.Err))
}

func TestValidationFirst_ListsEveryMissingColumn(t *testing.T) {
	e, sink := newTestEngine()
	in := people()

	outcomes := map[string]Outcome{
		"dedup":   e.RemoveDuplicates(in, DedupParams{Columns: []string{"id", "nope", "gone"}}),
		"missing": e.HandleMissing(in, MissingParams{Method: MissingDrop, Columns: []string{"nope", "gone"}}),
		"sort":    e.Sort(in, SortParams{Columns: []string{"nope", "age", "gone"}}),
		"rename":  e.RenameColumns(in, map[string]string{"nope": "a", "gone": "b"}),
		"drop":    e.DropColumns(in, []string{"nope", "gone"}),
		"convert": e.ConvertTypes(in, map[string]string{"nope": "int", "gone": "float"}),
		"calc":    e.CreateCalculatedColumn(in, "x", "nope + gone"),
		"typos":   e.FixColumnTypos(in, map[string]string{"nope": "a", "gone": "b"}),
	}
	for name, out := range outcomes {
		t.Run(name, func(t *testing.T) {
			assert.False(t, out.Succeeded)
			assert.Same(t, in, out.Table)
			assert.Contains(t, out.Message, "nope")
			assert.Contains(t, out.Message, "gone")
			assert.Equal(t, ErrValidation, KindOf(out.Err))
		})
	}

	single := e.Filter(in, FilterParams{Column: "nope", Operator: OpEq, Value: 1})
	assert.Equal(t, "Error filtering data: Column 'nope' not found", single.Message)
	assert.Same(t, in, single.Table)

	assert.Empty(t, e.History())
	for _, ev := range sink.events {
		assert.Equal(t, "ERROR", ev.step)
		assert.Equal(t, LevelError, ev.level)
	}
}

func TestAccountingInvariant(t *testing.T) {
	e, _ := newTestEngine()
	current := people()
	steps := []Step{
		{Kind: OpHandleMissing, Method: "drop", Columns: []string{"name"}},
		{Kind: OpCreateColumn, Name: "double", Expression: "id * 2"},
		{Kind: OpDropColumns, Columns: []string{"score"}},
		{Kind: OpFilterData, Column: "id", Operator: ">", Value: 1},
		{Kind: OpTextOperation, Column: "name", Operation: "extract", Pattern: "^(.)"},
	}
	for _, s := range steps {
		out := e.Apply(current, s)
		require.True(t, out.Succeeded, out.Message)
		current = out.Table
	}

	hist := e.History()
	require.Len(t, hist, len(steps))
	last := hist[len(hist)-1]
	assert.Equal(t, current.NumRows(), last.RowsAfter)
	assert.Equal(t, current.NumCols(), last.ColsAfter)
	for i := 1; i < len(hist); i++ {
		assert.Equal(t, hist[i-1].RowsAfter, hist[i].RowsBefore)
		assert.Equal(t, hist[i-1].ColsAfter, hist[i].ColsBefore)
	}
}

func TestHistory_ClearAndJSON(t *testing.T) {
	e, _ := newTestEngine()
	e.DropColumns(people(), []string{"score", "city"})

	data, err := json.Marshal(e.History()[0])
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "2024-05-01 12:00:00", got["timestamp"])
	assert.Equal(t, "DROP_COLUMNS", got["operation"])
	assert.Equal(t, float64(-2), got["cols_changed"])
	assert.Equal(t, "Dropped 2 columns", got["details"])

	e.ClearHistory()
	assert.Empty(t, e.History())
}

func TestApply_UnknownKind(t *testing.T) {
	e, _ := newTestEngine()
	in := people()
	out := e.Apply(in, Step{Kind: "EXPLODE"})
	assert.False(t, out.Succeeded)
	assert.Same(t, in, out.Table)
	assert.Contains(t, out.Message, "unsupported operation 'EXPLODE'")
}

func TestApply_NilTable(t *testing.T) {
	e, _ := newTestEngine()
	out := e.Sort(nil, SortParams{Columns: []string{"a"}})
	assert.False(t, out.Succeeded)
	assert.Contains(t, out.Message, "no table loaded")
}

func TestSinkPanicsAreSwallowed(t *testing.T) {
	e := NewEngine(WithSink(SinkFunc(func(string, string, Level) { panic("disk full") })))
	out := e.DropColumns(people(), []string{"score"})
	assert.True(t, out.Succeeded)
}

func TestRecipeReplay(t *testing.T) {
	e, _ := newTestEngine()
	e.RenameColumns(people(), map[string]string{"name": "full_name"})
	e.Sort(people(), SortParams{Columns: []string{"age"}, Ascending: []bool{false}})

	data, err := e.Recipe().YAML()
	require.NoError(t, err)
	recipe, err := ParseRecipe(data)
	require.NoError(t, err)
	require.Len(t, recipe.Steps, 2)
	assert.Equal(t, OpRenameColumns, recipe.Steps[0].Kind)

	fresh := NewEngine()
	out, outcomes := fresh.Replay(people(), recipe, false)
	require.Len(t, outcomes, 2)
	assert.True(t, out.HasColumn("full_name"))
	assert.Equal(t, []any{int64(5), int64(1), int64(3), int64(2), int64(4)}, col(t, out, "id").Values)
}

func TestReplay_StopsAtFirstFailure(t *testing.T) {
	e := NewEngine()
	recipe := Recipe{Steps: []Step{
		{Kind: OpDropColumns, Columns: []string{"nope"}},
		{Kind: OpDropColumns, Columns: []string{"score"}},
	}}
	out, outcomes := e.Replay(people(), recipe, false)
	assert.Len(t, outcomes, 1)
	assert.True(t, out.HasColumn("score"))

	out, outcomes = e.Replay(people(), recipe, true)
	assert.Len(t, outcomes, 2)
	assert.False(t, out.HasColumn("score"))
}

func TestParseRecipe_RejectsUnknownKind(t *testing.T) {
	_, err := ParseRecipe([]byte("steps:\n  - kind: NOPE\n"))
	assert.ErrorContains(t, err, "recipe step 1")
}
