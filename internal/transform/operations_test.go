package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/flowforge/internal/table"
)

func TestHandleMissing_Methods(t *testing.T) {
	tests := []struct {
		name    string
		params  MissingParams
		column  string
		want    []any
		message string
	}{
		{
			name:    "fill_mean promotes integer column",
			params:  MissingParams{Method: MissingMean, Columns: []string{"age"}},
			column:  "age",
			want:    []any{30.0, 31.666666666666668, 25.0, 31.666666666666668, 40.0},
			message: "Handled 2 missing values using fill_mean",
		},
		{
			name:   "fill_median keeps integer column when integral",
			params: MissingParams{Method: MissingMedian, Columns: []string{"age"}},
			column: "age",
			want:   []any{int64(30), int64(30), int64(25), int64(30), int64(40)},
		},
		{
			name:   "fill_mode picks most frequent",
			params: MissingParams{Method: MissingMode, Columns: []string{"city"}},
			column: "city",
			want:   []any{"NY", "LA", "NY", "NY", "SF"},
		},
		{
			name:   "forward_fill follows row order",
			params: MissingParams{Method: MissingForward, Columns: []string{"age"}},
			column: "age",
			want:   []any{int64(30), int64(30), int64(25), int64(25), int64(40)},
		},
		{
			name:   "backward_fill follows row order",
			params: MissingParams{Method: MissingBackward, Columns: []string{"score"}},
			column: "score",
			want:   []any{1.5, 2.5, 4.0, 4.0, 2.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine()
			out := e.HandleMissing(people(), tt.params)
			require.True(t, out.Succeeded, out.Message)
			assert.Equal(t, tt.want, col(t, out.Table, tt.column).Values)
			if tt.message != "" {
				assert.Equal(t, tt.message, out.Message)
			}
		})
	}
}

func TestHandleMissing_MeanSkipsTextColumns(t *testing.T) {
	e, _ := newTestEngine()
	out := e.HandleMissing(people(), MissingParams{Method: MissingMean})
	require.True(t, out.Succeeded)
	assert.True(t, col(t, out.Table, "name").IsNull(2))
	assert.Equal(t, 0, col(t, out.Table, "score").NullCount())
	assert.Equal(t, "Handled 3 missing values using fill_mean", out.Message)
}

func TestHandleMissing_Drop(t *testing.T) {
	e, _ := newTestEngine()
	out := e.HandleMissing(people(), MissingParams{Method: MissingDrop, Columns: []string{"age", "city"}})
	require.True(t, out.Succeeded)
	assert.Equal(t, []any{int64(1), int64(3), int64(5)}, col(t, out.Table, "id").Values)
	assert.Equal(t, "Handled 3 missing values using drop", out.Message)
}

func TestHandleMissing_FillValueCompleteness(t *testing.T) {
	e, _ := newTestEngine()
	cols := []string{"name", "age", "score", "city"}
	out := e.HandleMissing(people(), MissingParams{Method: MissingValue, Columns: cols, FillValue: "unknown"})
	require.True(t, out.Succeeded)
	for _, c := range cols {
		assert.Zero(t, col(t, out.Table, c).NullCount(), c)
	}
	assert.Equal(t, table.KindText, col(t, out.Table, "age").Kind)

	out = e.HandleMissing(people(), MissingParams{Method: MissingValue, Columns: []string{"age"}, FillValue: 0})
	require.True(t, out.Succeeded)
	assert.Equal(t, table.KindInteger, col(t, out.Table, "age").Kind)
	assert.Equal(t, int64(0), col(t, out.Table, "age").Values[1])
}

func TestHandleMissing_RejectsUnknownMethodAndNilFill(t *testing.T) {
	e, _ := newTestEngine()
	in := people()

	out := e.HandleMissing(in, MissingParams{Method: "interpolate"})
	assert.False(t, out.Succeeded)
	assert.Same(t, in, out.Table)
	assert.Contains(t, out.Message, "unknown missing-value method 'interpolate'")

	out = e.HandleMissing(in, MissingParams{Method: MissingValue})
	assert.False(t, out.Succeeded)
	assert.Equal(t, ErrValidation, KindOf(out.Err))
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name   string
		params FilterParams
		ids    []any
	}{
		{"numeric greater", FilterParams{Column: "age", Operator: OpGt, Value: 26}, []any{int64(1), int64(5)}},
		{"numeric from text", FilterParams{Column: "score", Operator: OpGe, Value: "2.5"}, []any{int64(2), int64(4), int64(5)}},
		{"equality", FilterParams{Column: "city", Operator: OpEq, Value: "NY"}, []any{int64(1), int64(3)}},
		{"not equal keeps nulls", FilterParams{Column: "city", Operator: OpNe, Value: "NY"}, []any{int64(2), int64(4), int64(5)}},
		{"contains skips nulls", FilterParams{Column: "name", Operator: OpContains, Value: "e"}, []any{int64(4), int64(5)}},
		{"startswith", FilterParams{Column: "name", Operator: OpStartsWith, Value: "B"}, []any{int64(2)}},
		{"endswith on numbers", FilterParams{Column: "score", Operator: OpEndsWith, Value: ".5"}, []any{int64(1), int64(2), int64(5)}},
		{"uncoercible equality matches nothing", FilterParams{Column: "age", Operator: OpEq, Value: "old"}, []any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine()
			out := e.Filter(people(), tt.params)
			require.True(t, out.Succeeded, out.Message)
			assert.Equal(t, tt.ids, col(t, out.Table, "id").Values)
		})
	}
}

func TestFilter_Failures(t *testing.T) {
	e, _ := newTestEngine()
	in := people()

	out := e.Filter(in, FilterParams{Column: "age", Operator: "~=", Value: 1})
	assert.False(t, out.Succeeded)
	assert.Contains(t, out.Message, "Unsupported operator: ~=")

	out = e.Filter(in, FilterParams{Column: "age", Operator: OpGt, Value: "old"})
	assert.False(t, out.Succeeded)
	assert.Equal(t, ErrParse, KindOf(out.Err))
	assert.Same(t, in, out.Table)
}

func TestFilter_Message(t *testing.T) {
	e, _ := newTestEngine()
	out := e.Filter(people(), FilterParams{Column: "age", Operator: OpGt, Value: 26})
	assert.Equal(t, "Filtered to 2 rows where Column 'age' > '26'", out.Message)
}

func TestSort_StableMultiKeyNullsLast(t *testing.T) {
	e, _ := newTestEngine()
	in := table.MustNew(
		table.NewColumn("group", table.KindText, []any{"b", "a", "b", "a", nil, "a"}),
		table.NewColumn("v", table.KindInteger, []any{1, 2, 1, nil, 0, 2}),
		table.NewColumn("seq", table.KindInteger, []any{0, 1, 2, 3, 4, 5}),
	)

	out := e.Sort(in, SortParams{Columns: []string{"group", "v"}, Ascending: []bool{true, false}})
	require.True(t, out.Succeeded)
	assert.Equal(t, []any{int64(1), int64(5), int64(3), int64(0), int64(2), int64(4)}, col(t, out.Table, "seq").Values)
	assert.Equal(t, "Sorted data by 2 columns", out.Message)
	assert.Equal(t, "Sorted by: group (asc), v (desc)", e.History()[0].Details)

	out = e.Sort(in, SortParams{Columns: []string{"group"}, Ascending: []bool{true, false}})
	assert.False(t, out.Succeeded)
	assert.Contains(t, out.Message, "Length of ascending list must match columns list")
}

func TestRenameAndDrop(t *testing.T) {
	e, _ := newTestEngine()

	out := e.RenameColumns(people(), map[string]string{"name": "full_name", "city": "town"})
	require.True(t, out.Succeeded)
	assert.Equal(t, "Renamed 2 columns", out.Message)
	assert.Equal(t, []string{"id", "full_name", "age", "town", "score"}, out.Table.ColumnNames())

	out = e.RenameColumns(people(), map[string]string{"name": "id"})
	assert.False(t, out.Succeeded)
	assert.Contains(t, out.Message, "duplicate column name 'id'")

	out = e.DropColumns(people(), []string{"name", "city"})
	require.True(t, out.Succeeded)
	assert.Equal(t, "Dropped 2 columns", out.Message)
	assert.Equal(t, 5, out.Table.NumRows())
	assert.Equal(t, []string{"id", "age", "score"}, out.Table.ColumnNames())
}

func TestConvertTypes_PartialFailure(t *testing.T) {
	e, sink := newTestEngine()
	in := table.MustNew(
		table.NewColumn("age", table.KindText, []any{"30", "41", "n/a"}),
		table.NewColumn("name", table.KindText, []any{"Ann", "Bob", "Cy"}),
		table.NewColumn("active", table.KindText, []any{"yes", "maybe", "no"}),
	)

	out := e.ConvertTypes(in, map[string]string{"age": "int", "name": "datetime", "active": "boolean"})

	require.True(t, out.Succeeded, out.Message)
	assert.True(t, out.Partial)
	assert.Equal(t, ErrPartial, KindOf(out.Err))
	assert.Equal(t, table.KindInteger, col(t, out.Table, "age").Kind)
	assert.Equal(t, []any{int64(30), int64(41), nil}, col(t, out.Table, "age").Values)
	assert.Equal(t, table.KindDateTime, col(t, out.Table, "name").Kind)
	assert.Equal(t, 3, col(t, out.Table, "name").NullCount())
	assert.Equal(t, table.KindText, col(t, out.Table, "active").Kind)

	assert.Contains(t, out.Message, "Successfully converted 2 columns")
	assert.Contains(t, out.Message, "age → int (1 unparseable set to null)")
	assert.Contains(t, out.Message, "name → datetime (3 unparseable set to null)")
	assert.Contains(t, out.Message, "Failed to convert 'active' to boolean: unrecognized boolean value 'maybe'")

	require.Len(t, sink.events, 1)
	assert.Equal(t, LevelWarning, sink.events[0].level)
	require.Len(t, e.History(), 1)
}

func TestConvertTypes_Targets(t *testing.T) {
	e, _ := newTestEngine()
	in := table.MustNew(
		table.NewColumn("price", table.KindText, []any{"$1,200.50", "(3.00)", nil}),
		table.NewColumn("when", table.KindText, []any{"2024-01-02", "01/15/2023", "soon"}),
		table.NewColumn("n", table.KindInteger, []any{1, 0, 2}),
		table.NewColumn("grade", table.KindText, []any{"b", "a", "b"}),
	)
	out := e.ConvertTypes(in, map[string]string{
		"price": "float", "when": "datetime", "n": "boolean", "grade": "category",
	})
	require.True(t, out.Succeeded, out.Message)
	assert.False(t, out.Partial)
	assert.Equal(t, []any{1200.5, -3.0, nil}, col(t, out.Table, "price").Values)
	assert.Equal(t, time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), col(t, out.Table, "when").Values[1])
	assert.Nil(t, col(t, out.Table, "when").Values[2])
	assert.Equal(t, []any{true, false, true}, col(t, out.Table, "n").Values)
	assert.Equal(t, table.KindCategorical, col(t, out.Table, "grade").Kind)
	assert.Equal(t, []string{"a", "b"}, col(t, out.Table, "grade").Categories())
}

func TestConvertTypes_AllFail(t *testing.T) {
	e, _ := newTestEngine()
	in := table.MustNew(table.NewColumn("x", table.KindFloat, []any{1.5, 2.0}))

	out := e.ConvertTypes(in, map[string]string{"x": "int"})
	assert.False(t, out.Succeeded)
	assert.Same(t, in, out.Table)
	assert.Contains(t, out.Message, "non-integral value 1.5")

	out = e.ConvertTypes(in, map[string]string{"x": "complex"})
	assert.False(t, out.Succeeded)
	assert.Contains(t, out.Message, `unsupported type "complex"`)
	assert.Empty(t, e.History())
}

func TestConvertTypes_IntegerOutOfRange(t *testing.T) {
	e, _ := newTestEngine()
	in := table.MustNew(
		table.NewColumn("f", table.KindFloat, []any{1e20, 3.0}),
		table.NewColumn("s", table.KindText, []any{"100000000000000000000", "4"}),
		table.NewColumn("ok", table.KindFloat, []any{-2.0, 3.0}),
	)

	out := e.ConvertTypes(in, map[string]string{"f": "int", "s": "int", "ok": "int"})
	require.True(t, out.Succeeded, out.Message)
	assert.True(t, out.Partial)
	assert.Contains(t, out.Message, "Failed to convert 'f' to int: value 1e+20 is out of range for int")
	assert.Contains(t, out.Message, "Failed to convert 's' to int: value 1e+20 is out of range for int")
	assert.Equal(t, table.KindFloat, col(t, out.Table, "f").Kind)
	assert.Equal(t, []any{1e20, 3.0}, col(t, out.Table, "f").Values)
	assert.Equal(t, []any{int64(-2), int64(3)}, col(t, out.Table, "ok").Values)

	out = e.ConvertTypes(in, map[string]string{"f": "int"})
	assert.False(t, out.Succeeded)
	assert.Same(t, in, out.Table)
}

func TestCreateCalculatedColumn(t *testing.T) {
	e, _ := newTestEngine()
	in := table.MustNew(
		table.NewColumn("price", table.KindFloat, []any{2.5, 4.0, nil}),
		table.NewColumn("qty", table.KindInteger, []any{2, 3, 1}),
		table.NewColumn("Unit Cost", table.KindInteger, []any{1, 1, 1}),
	)

	out := e.CreateCalculatedColumn(in, "total", "round(price * qty, 1)")
	require.True(t, out.Succeeded, out.Message)
	assert.Equal(t, "Created calculated column 'total'", out.Message)
	total := col(t, out.Table, "total")
	assert.Equal(t, table.KindFloat, total.Kind)
	assert.Equal(t, []any{5.0, 12.0, nil}, total.Values)

	out = e.CreateCalculatedColumn(in, "margin", "qty - `Unit Cost`")
	require.True(t, out.Succeeded)
	assert.Equal(t, table.KindInteger, col(t, out.Table, "margin").Kind)
	assert.Equal(t, []any{int64(1), int64(2), int64(0)}, col(t, out.Table, "margin").Values)

	out = e.CreateCalculatedColumn(in, "filled", "coalesce(price, 0)")
	require.True(t, out.Succeeded)
	assert.Equal(t, 0, col(t, out.Table, "filled").NullCount())

	for _, bad := range []string{"price +", "__import__('os')", "price * 'x'"} {
		out = e.CreateCalculatedColumn(in, "bad", bad)
		assert.False(t, out.Succeeded, bad)
		assert.Equal(t, ErrParse, KindOf(out.Err), bad)
		assert.Same(t, in, out.Table)
	}

	out = e.CreateCalculatedColumn(in, " ", "qty")
	assert.Equal(t, ErrValidation, KindOf(out.Err))
}

func TestCreateCalculatedColumn_LargeIntegers(t *testing.T) {
	e, _ := newTestEngine()
	in := table.MustNew(table.NewColumn("a", table.KindInteger, []any{int64(10000000000), int64(9007199254740993)}))

	out := e.CreateCalculatedColumn(in, "same", "a + 0")
	require.True(t, out.Succeeded, out.Message)
	assert.Equal(t, table.KindInteger, col(t, out.Table, "same").Kind)
	assert.Equal(t, []any{int64(10000000000), int64(9007199254740993)}, col(t, out.Table, "same").Values)

	out = e.CreateCalculatedColumn(in, "sq", "a * a")
	require.True(t, out.Succeeded, out.Message)
	sq := col(t, out.Table, "sq")
	assert.Equal(t, table.KindFloat, sq.Kind)
	assert.InEpsilon(t, 1e20, sq.Values[0], 1e-12)
	assert.InEpsilon(t, 8.112963841460668e31, sq.Values[1], 1e-12)
}

func TestTextOperation(t *testing.T) {
	in := table.MustNew(
		table.NewColumn("name", table.KindText, []any{"  ada LOVELACE ", nil, "alan turing"}),
		table.NewColumn("code", table.KindText, []any{"SKU-123", "SKU-9", "none"}),
	)
	tests := []struct {
		params TextParams
		column string
		want   []any
	}{
		{TextParams{Column: "name", Operation: TextUpper}, "name", []any{"  ADA LOVELACE ", nil, "ALAN TURING"}},
		{TextParams{Column: "name", Operation: TextLower}, "name", []any{"  ada lovelace ", nil, "alan turing"}},
		{TextParams{Column: "name", Operation: "title-case"}, "name", []any{"  Ada Lovelace ", nil, "Alan Turing"}},
		{TextParams{Column: "name", Operation: "strip-whitespace"}, "name", []any{"ada LOVELACE", nil, "alan turing"}},
		{TextParams{Column: "code", Operation: TextReplace, Old: "SKU-", New: "#"}, "code", []any{"#123", "#9", "none"}},
		{TextParams{Column: "code", Operation: TextExtract, Pattern: `SKU-(\d+)`}, "code_extracted", []any{"123", "9", nil}},
	}
	for _, tt := range tests {
		t.Run(string(tt.params.Operation), func(t *testing.T) {
			e, _ := newTestEngine()
			out := e.TextOperation(in, tt.params)
			require.True(t, out.Succeeded, out.Message)
			assert.Equal(t, tt.want, col(t, out.Table, tt.column).Values)
		})
	}

	e, _ := newTestEngine()
	out := e.TextOperation(in, TextParams{Column: "code", Operation: TextExtract, Pattern: `SKU-\d+`})
	assert.Equal(t, ErrParse, KindOf(out.Err))
	out = e.TextOperation(in, TextParams{Column: "code", Operation: TextExtract, Pattern: `(`})
	assert.Equal(t, ErrParse, KindOf(out.Err))
	out = e.TextOperation(in, TextParams{Column: "code", Operation: "reverse"})
	assert.Equal(t, ErrValidation, KindOf(out.Err))
	out = e.TextOperation(in, TextParams{Column: "code", Operation: TextUpper})
	assert.Equal(t, "Applied upper operation to 'code'", out.Message)
}

func TestFixDataTypos_CountsPreImage(t *testing.T) {
	e, _ := newTestEngine()
	in := table.MustNew(table.NewColumn("state", table.KindText, []any{"NY", "NY", "Ny", "CA"}))

	out := e.FixDataTypos(in, "state", map[string]string{"Ny": "NY"})
	require.True(t, out.Succeeded)
	assert.Equal(t, "Successfully fixed 1 typos in column 'state' (1 values changed)", out.Message)
	assert.Equal(t, []any{"NY", "NY", "NY", "CA"}, col(t, out.Table, "state").Values)
}

func TestFixDataTypos_SinglePass(t *testing.T) {
	e, _ := newTestEngine()
	in := table.MustNew(table.NewColumn("v", table.KindText, []any{"A", "B", "C"}))

	out := e.FixDataTypos(in, "v", map[string]string{"A": "B", "B": "C"})
	require.True(t, out.Succeeded)
	assert.Equal(t, []any{"B", "C", "C"}, col(t, out.Table, "v").Values)
}

func TestFixDataTypos_NumericReplacementMustFit(t *testing.T) {
	e, _ := newTestEngine()
	in := table.MustNew(table.NewColumn("n", table.KindInteger, []any{1, 2}))

	out := e.FixDataTypos(in, "n", map[string]string{"2": "20"})
	require.True(t, out.Succeeded)
	assert.Equal(t, []any{int64(1), int64(20)}, col(t, out.Table, "n").Values)

	out = e.FixDataTypos(in, "n", map[string]string{"2": "two"})
	assert.Equal(t, ErrParse, KindOf(out.Err))
}

func TestFixColumnTypos(t *testing.T) {
	e, _ := newTestEngine()
	in := table.MustNew(
		table.NewColumn("nam", table.KindText, []any{"x"}),
		table.NewColumn("prise", table.KindFloat, []any{1.0}),
	)
	out := e.FixColumnTypos(in, map[string]string{"nam": "name", "prise": "price"})
	require.True(t, out.Succeeded)
	assert.Equal(t, "Successfully fixed 2 column name typos", out.Message)
	assert.Equal(t, []string{"name", "price"}, out.Table.ColumnNames())
}
