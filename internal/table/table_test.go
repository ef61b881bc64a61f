package table

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Table {
	return MustNew(
		NewColumn("id", KindInteger, []any{1, 2, 3}),
		NewColumn("city", KindText, []any{"NY", nil, "CA"}),
		NewColumn("score", KindFloat, []any{1.5, 2, nil}),
	)
}

func TestNew_RejectsRaggedAndDuplicateColumns(t *testing.T) {
	_, err := New(
		NewColumn("a", KindInteger, []any{1, 2}),
		NewColumn("b", KindInteger, []any{1}),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column 'b' has 1 rows, want 2")

	_, err = New(
		NewColumn("a", KindInteger, []any{1}),
		NewColumn("a", KindText, []any{"x"}),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate column name 'a'")
}

func TestNewColumn_Normalizes(t *testing.T) {
	c := NewColumn("n", KindInteger, []any{int(4), int32(5), 6.0, 6.5, "x"})
	assert.Equal(t, []any{int64(4), int64(5), int64(6), nil, nil}, c.Values)
	assert.Equal(t, 2, c.NullCount())

	f := NewColumn("f", KindFloat, []any{1, float32(0.5)})
	assert.Equal(t, []any{1.0, 0.5}, f.Values)
}

func TestTable_Accessors(t *testing.T) {
	tbl := sample()
	assert.Equal(t, 3, tbl.NumRows())
	assert.Equal(t, 3, tbl.NumCols())
	assert.Equal(t, []string{"id", "city", "score"}, tbl.ColumnNames())
	assert.Equal(t, []any{int64(2), nil, 2.0}, tbl.Row(1))
	assert.Equal(t, []bool{false, true, false}, tbl.NullMask("city"))
	assert.Nil(t, tbl.NullMask("nope"))
	assert.Equal(t, []string{"x", "y"}, tbl.Missing("id", "x", "y", "x"))
}

func TestTable_DerivationsDoNotMutateSource(t *testing.T) {
	tbl := sample()

	sub := tbl.SelectRows([]int{2, 0})
	assert.Equal(t, 2, sub.NumRows())
	assert.Equal(t, []any{int64(3), int64(1)}, mustColumn(t, sub, "id").Values)

	renamed, err := tbl.Rename(map[string]string{"id": "city", "city": "id"})
	require.NoError(t, err)
	assert.Equal(t, []string{"city", "id", "score"}, renamed.ColumnNames())

	_, err = tbl.Rename(map[string]string{"id": "score"})
	assert.Error(t, err)

	dropped := tbl.Drop("city")
	assert.Equal(t, []string{"id", "score"}, dropped.ColumnNames())
	assert.Equal(t, 3, dropped.NumRows())

	added, err := tbl.WithColumn(NewColumn("flag", KindBoolean, []any{true, false, nil}))
	require.NoError(t, err)
	assert.Equal(t, 4, added.NumCols())

	_, err = tbl.WithColumn(NewColumn("short", KindBoolean, []any{true}))
	assert.Error(t, err)

	assert.Equal(t, []string{"id", "city", "score"}, tbl.ColumnNames())
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, mustColumn(t, tbl, "id").Values)
}

func TestCompareAndKey(t *testing.T) {
	assert.Equal(t, -1, Compare(int64(1), 1.5))
	assert.Equal(t, 0, Compare(2.0, int64(2)))
	assert.Equal(t, -1, Compare(false, true))
	assert.Equal(t, 1, Compare("b", "a"))

	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.Add(time.Hour)
	assert.Equal(t, -1, Compare(d1, d2))

	assert.Equal(t, Key(nil), Key(nil))
	assert.Equal(t, Key(int64(3)), Key(3.0))
	assert.NotEqual(t, Key("3"), Key(int64(3)))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "", Format(nil))
	assert.Equal(t, "2.5", Format(2.5))
	assert.Equal(t, "2024-03-01", Format(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-03-01 10:30:00", Format(time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)))
}

func TestMemoryBytes(t *testing.T) {
	tbl := MustNew(
		NewColumn("n", KindInteger, []any{1, 2}),
		NewColumn("s", KindText, []any{"ab", nil}),
		NewColumn("b", KindBoolean, []any{true, false}),
	)
	assert.Equal(t, int64(16+34+2), tbl.MemoryBytes())
}

func TestRecords(t *testing.T) {
	tbl := MustNew(
		NewColumn("d", KindDateTime, []any{time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), nil}),
	)
	recs := tbl.Records(1)
	require.Len(t, recs, 1)
	assert.Equal(t, "2024-01-02", recs[0]["d"])
	assert.Len(t, tbl.Records(0), 2)
}

func TestReadCSV_InfersKinds(t *testing.T) {
	input := "\xEF\xBB\xBFid,price,name,active,joined,mixed\n" +
		"1,9.99,Alice,true,2024-01-02,1\n" +
		"2,,Bob,false,01/15/2023,x\n" +
		"3,3,,yes,2023-05-06,2\n"

	tbl, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	want := map[string]Kind{
		"id":     KindInteger,
		"price":  KindFloat,
		"name":   KindText,
		"active": KindBoolean,
		"joined": KindDateTime,
		"mixed":  KindText,
	}
	for name, kind := range want {
		assert.Equal(t, kind, mustColumn(t, tbl, name).Kind, name)
	}
	assert.Equal(t, []any{9.99, nil, 3.0}, mustColumn(t, tbl, "price").Values)
	assert.True(t, mustColumn(t, tbl, "name").IsNull(2))
}

func TestReadCSV_HeaderProblems(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyCSV)

	_, err = ReadCSV(strings.NewReader("a,,a\n1,2,3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header column 2 is blank")
	assert.Contains(t, err.Error(), "duplicate header 'a'")

	_, err = ReadCSV(strings.NewReader("a\n1,2\n"))
	assert.Error(t, err)
}

func TestReadCSV_ShortRowsArePadded(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("a,b\n1\n2,x\n"))
	require.NoError(t, err)
	assert.Equal(t, []any{nil, "x"}, mustColumn(t, tbl, "b").Values)
}

func TestReadCSV_SanitizesInvalidUTF8(t *testing.T) {
	tbl, err := ReadCSV(bytes.NewReader([]byte("name\nab\xffc\n")))
	require.NoError(t, err)
	assert.Equal(t, "ab?c", mustColumn(t, tbl, "name").Values[0])
}

func TestWriteCSV_RoundTripsText(t *testing.T) {
	tbl := sample()
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl))
	assert.Equal(t, "id,city,score\n1,NY,1.5\n2,,2\n3,CA,\n", buf.String())
	assert.Equal(t, int64(buf.Len()), CSVSize(tbl))
}

func mustColumn(t *testing.T, tbl *Table, name string) *Column {
	t.Helper()
	c, ok := tbl.Column(name)
	require.True(t, ok, "column %s", name)
	return c
}
