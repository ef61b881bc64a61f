package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/flowforge/internal/table"
)

func TestSuggestColumnTypos_ThresholdBoundary(t *testing.T) {
	e := NewEngine(WithTypoConfig(TypoConfig{Vocabulary: []string{"name"}}))
	in := table.MustNew(
		table.NewColumn("nam", table.KindText, []any{"a"}),
		table.NewColumn("xyz123", table.KindText, []any{"b"}),
		table.NewColumn("NAME", table.KindText, []any{"c"}),
	)

	got := e.SuggestColumnTypos(in)
	assert.Equal(t, map[string][]string{"nam": {"name"}}, got)
}

func TestSuggestColumnTypos_DefaultVocabulary(t *testing.T) {
	e := NewEngine()
	in := table.MustNew(
		table.NewColumn("Pric", table.KindFloat, []any{1.0}),
		table.NewColumn("amount", table.KindFloat, []any{1.0}),
		table.NewColumn("customer_segment", table.KindText, []any{"x"}),
	)

	got := e.SuggestColumnTypos(in)
	assert.Contains(t, got, "Pric")
	assert.Equal(t, "price", got["Pric"][0])
	assert.NotContains(t, got, "amount")
	assert.NotContains(t, got, "customer_segment")
	assert.LessOrEqual(t, len(got["Pric"]), 3)
}

func TestSuggestDataTypos(t *testing.T) {
	e := NewEngine()
	in := table.MustNew(table.NewColumn("category", table.KindText, []any{
		"Electronics", "Electronics", "Electronics", "Electronic",
		"Clothing", "Clothing", "Clothing", "Clothng",
		"Garden", nil,
	}))

	got := e.SuggestDataTypos(in, "category")
	assert.Equal(t, map[string][]string{
		"Electronic": {"Electronics"},
		"Clothng":    {"Clothing"},
	}, got)
}

func TestSuggestDataTypos_NeverFails(t *testing.T) {
	e := NewEngine()
	in := table.MustNew(table.NewColumn("n", table.KindInteger, []any{1, 1, 1, 2}))

	assert.Empty(t, e.SuggestDataTypos(in, "n"))
	assert.Empty(t, e.SuggestDataTypos(in, "absent"))
	assert.Empty(t, e.SuggestDataTypos(nil, "n"))
	assert.Empty(t, e.SuggestColumnTypos(nil))
}

func TestSuggestTypos_Combined(t *testing.T) {
	e := NewEngine()
	in := table.MustNew(
		table.NewColumn("nam", table.KindText, []any{"Ann", "Ann", "Ann", "Anm"}),
	)
	s := e.SuggestTypos(in, "nam")
	assert.Contains(t, s.Columns, "nam")
	assert.Empty(t, s.Data, "Anm vs Ann scores below the data cutoff")

	s = e.SuggestTypos(in, "")
	assert.Empty(t, s.Data)
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 0.75, Similarity("nam", "name"), 1e-9)
	assert.InDelta(t, 1.0, Similarity("same", "same"), 1e-9)
	assert.Less(t, Similarity("xyz123", "name"), 0.6)
}
