package transform

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/flowforge/internal/table"
)

// Keep selects which occurrence of a duplicate group survives.
type Keep string

const (
	KeepFirst Keep = "first"
	KeepLast  Keep = "last"
)

// DedupParams configures RemoveDuplicates. An empty Columns compares whole rows.
type DedupParams struct {
	Columns []string
	Keep    Keep
}

func (p DedupParams) step() Step {
	return Step{Kind: OpRemoveDuplicates, Columns: p.Columns, Keep: string(p.Keep)}
}

// RemoveDuplicates drops repeated rows, keeping the first or last occurrence
// of each group in row order. Nulls compare equal to each other.
func (e *Engine) RemoveDuplicates(t *table.Table, p DedupParams) Outcome {
	return e.run(p.step(), t, func(t *table.Table) (change, *OpError) {
		if err := requireColumns(t, p.Columns...); err != nil {
			return change{}, err
		}
		keep := p.Keep
		if keep == "" {
			keep = KeepFirst
		}
		if keep != KeepFirst && keep != KeepLast {
			return change{}, validationf("keep must be 'first' or 'last', got '%s'", keep)
		}

		cols := keyColumns(t, p.Columns)
		keepRow := make([]bool, t.NumRows())
		seen := make(map[string]struct{}, t.NumRows())
		mark := func(i int) {
			k := rowKey(cols, i)
			if _, dup := seen[k]; dup {
				return
			}
			seen[k] = struct{}{}
			keepRow[i] = true
		}
		if keep == KeepFirst {
			for i := 0; i < t.NumRows(); i++ {
				mark(i)
			}
		} else {
			for i := t.NumRows() - 1; i >= 0; i-- {
				mark(i)
			}
		}

		idx := make([]int, 0, len(seen))
		for i, ok := range keepRow {
			if ok {
				idx = append(idx, i)
			}
		}
		removed := t.NumRows() - len(idx)
		out := t
		if removed > 0 {
			out = t.SelectRows(idx)
		}
		return change{
			table:   out,
			message: fmt.Sprintf("Removed %d duplicate rows", removed),
		}, nil
	})
}

// DuplicateRows counts rows that repeat an earlier row in full.
func DuplicateRows(t *table.Table) int {
	cols := keyColumns(t, nil)
	seen := make(map[string]struct{}, t.NumRows())
	dups := 0
	for i := 0; i < t.NumRows(); i++ {
		k := rowKey(cols, i)
		if _, ok := seen[k]; ok {
			dups++
			continue
		}
		seen[k] = struct{}{}
	}
	return dups
}

func keyColumns(t *table.Table, names []string) []*table.Column {
	if len(names) == 0 {
		return t.Columns()
	}
	cols := make([]*table.Column, len(names))
	for i, n := range names {
		cols[i], _ = t.Column(n)
	}
	return cols
}

func rowKey(cols []*table.Column, i int) string {
	var b strings.Builder
	for _, c := range cols {
		b.WriteString(table.Key(c.Values[i]))
		b.WriteByte(0x1f)
	}
	return b.String()
}
