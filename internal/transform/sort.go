package transform

import (
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/flowforge/internal/table"
)

// SortParams configures Sort. A nil Ascending sorts every key ascending.
type SortParams struct {
	Columns   []string
	Ascending []bool
}

func (p SortParams) step() Step {
	return Step{Kind: OpSortData, Columns: p.Columns, Ascending: p.Ascending}
}

// Sort orders rows by the columns left to right. The sort is stable and
// nulls go last regardless of direction.
func (e *Engine) Sort(t *table.Table, p SortParams) Outcome {
	return e.run(p.step(), t, func(t *table.Table) (change, *OpError) {
		if len(p.Columns) == 0 {
			return change{}, validationf("at least one sort column is required")
		}
		if err := requireColumns(t, p.Columns...); err != nil {
			return change{}, err
		}
		asc := p.Ascending
		if asc == nil {
			asc = make([]bool, len(p.Columns))
			for i := range asc {
				asc[i] = true
			}
		}
		if len(asc) != len(p.Columns) {
			return change{}, validationf("Length of ascending list must match columns list")
		}

		keys := keyColumns(t, p.Columns)
		idx := make([]int, t.NumRows())
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			ra, rb := idx[a], idx[b]
			for k, c := range keys {
				va, vb := c.Values[ra], c.Values[rb]
				switch {
				case va == nil && vb == nil:
					continue
				case va == nil:
					return false
				case vb == nil:
					return true
				}
				cmp := table.Compare(va, vb)
				if cmp == 0 {
					continue
				}
				if asc[k] {
					return cmp < 0
				}
				return cmp > 0
			}
			return false
		})

		parts := make([]string, len(p.Columns))
		for i, name := range p.Columns {
			dir := "asc"
			if !asc[i] {
				dir = "desc"
			}
			parts[i] = fmt.Sprintf("%s (%s)", name, dir)
		}
		return change{
			table:   t.SelectRows(idx),
			message: fmt.Sprintf("Sorted data by %d columns", len(p.Columns)),
			details: "Sorted by: " + strings.Join(parts, ", "),
		}, nil
	})
}
