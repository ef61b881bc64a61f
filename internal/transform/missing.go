package transform

import (
	"fmt"
	"math"
	"sort"

	"github.com/JonMunkholm/flowforge/internal/table"
)

// MissingMethod selects how HandleMissing resolves nulls.
type MissingMethod string

const (
	MissingDrop     MissingMethod = "drop"
	MissingMean     MissingMethod = "fill_mean"
	MissingMedian   MissingMethod = "fill_median"
	MissingMode     MissingMethod = "fill_mode"
	MissingValue    MissingMethod = "fill_value"
	MissingForward  MissingMethod = "forward_fill"
	MissingBackward MissingMethod = "backward_fill"
)

// MissingParams configures HandleMissing. An empty Columns targets every
// column; FillValue is read by fill_value only.
type MissingParams struct {
	Method    MissingMethod
	Columns   []string
	FillValue any
}

func (p MissingParams) step() Step {
	return Step{Kind: OpHandleMissing, Method: string(p.Method), Columns: p.Columns, FillValue: p.FillValue}
}

// HandleMissing resolves nulls in the target columns and reports how many
// were resolved.
func (e *Engine) HandleMissing(t *table.Table, p MissingParams) Outcome {
	return e.run(p.step(), t, func(t *table.Table) (change, *OpError) {
		if err := requireColumns(t, p.Columns...); err != nil {
			return change{}, err
		}
		targets := p.Columns
		if len(targets) == 0 {
			targets = t.ColumnNames()
		}
		before := nullsIn(t, targets)

		var (
			out *table.Table
			err *OpError
		)
		switch p.Method {
		case MissingDrop:
			out = dropNullRows(t, targets)
		case MissingMean, MissingMedian:
			out = fillColumns(t, targets, func(c *table.Column) *table.Column {
				return fillStatistic(c, p.Method)
			})
		case MissingMode:
			out = fillColumns(t, targets, fillMode)
		case MissingValue:
			if p.FillValue == nil {
				return change{}, validationf("fill_value requires a fill value")
			}
			out = fillColumns(t, targets, func(c *table.Column) *table.Column {
				return fillLiteral(c, p.FillValue)
			})
		case MissingForward:
			out = fillColumns(t, targets, func(c *table.Column) *table.Column { return propagate(c, true) })
		case MissingBackward:
			out = fillColumns(t, targets, func(c *table.Column) *table.Column { return propagate(c, false) })
		default:
			err = validationf("unknown missing-value method '%s'", p.Method)
		}
		if err != nil {
			return change{}, err
		}

		resolved := before - nullsIn(out, targets)
		return change{
			table:   out,
			message: fmt.Sprintf("Handled %d missing values using %s", resolved, p.Method),
		}, nil
	})
}

func nullsIn(t *table.Table, names []string) int {
	n := 0
	for _, name := range names {
		if c, ok := t.Column(name); ok {
			n += c.NullCount()
		}
	}
	return n
}

func dropNullRows(t *table.Table, names []string) *table.Table {
	cols := keyColumns(t, names)
	idx := make([]int, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		keep := true
		for _, c := range cols {
			if c.IsNull(i) {
				keep = false
				break
			}
		}
		if keep {
			idx = append(idx, i)
		}
	}
	if len(idx) == t.NumRows() {
		return t
	}
	return t.SelectRows(idx)
}

// fillColumns replaces each target column by fill(col); a nil result leaves
// the column unchanged.
func fillColumns(t *table.Table, names []string, fill func(*table.Column) *table.Column) *table.Table {
	var replaced []*table.Column
	for _, name := range names {
		c, _ := t.Column(name)
		if c.NullCount() == 0 {
			continue
		}
		if next := fill(c); next != nil {
			replaced = append(replaced, next)
		}
	}
	if len(replaced) == 0 {
		return t
	}
	return mustWith(t, replaced...)
}

func fillStatistic(c *table.Column, method MissingMethod) *table.Column {
	if !c.Kind.IsNumeric() {
		return nil
	}
	var nums []float64
	for _, v := range c.Values {
		if f, ok := table.AsFloat(v); ok {
			nums = append(nums, f)
		}
	}
	if len(nums) == 0 {
		return nil
	}

	var stat float64
	if method == MissingMean {
		for _, f := range nums {
			stat += f
		}
		stat /= float64(len(nums))
	} else {
		sort.Float64s(nums)
		mid := len(nums) / 2
		stat = nums[mid]
		if len(nums)%2 == 0 {
			stat = (nums[mid-1] + nums[mid]) / 2
		}
	}

	kind := c.Kind
	var fill any = stat
	if kind == table.KindInteger {
		if stat == math.Trunc(stat) {
			fill = int64(stat)
		} else {
			kind = table.KindFloat
		}
	}
	return fillNulls(c, kind, fill)
}

// fillMode fills with the most frequent value; ties go to the smallest.
func fillMode(c *table.Column) *table.Column {
	counts := make(map[string]int)
	values := make(map[string]any)
	for _, v := range c.Values {
		if v == nil {
			continue
		}
		k := table.Key(v)
		counts[k]++
		values[k] = v
	}
	if len(counts) == 0 {
		return nil
	}
	var best any
	bestCount := 0
	for k, n := range counts {
		v := values[k]
		if n > bestCount || (n == bestCount && table.Compare(v, best) < 0) {
			best, bestCount = v, n
		}
	}
	return fillNulls(c, c.Kind, best)
}

// fillLiteral coerces the literal to the column's kind, converting the
// column to text when the literal does not fit.
func fillLiteral(c *table.Column, literal any) *table.Column {
	if v, ok := table.Coerce(c.Kind, literal); ok && v != nil {
		return fillNulls(c, c.Kind, v)
	}
	text, _ := table.Coerce(table.KindText, literal)
	values := make([]any, c.Len())
	for i, v := range c.Values {
		if v == nil {
			values[i] = text
		} else {
			values[i] = table.Format(v)
		}
	}
	return &table.Column{Name: c.Name, Kind: table.KindText, Values: values}
}

func fillNulls(c *table.Column, kind table.Kind, fill any) *table.Column {
	values := make([]any, c.Len())
	for i, v := range c.Values {
		switch {
		case v == nil:
			values[i] = fill
		case kind != c.Kind:
			values[i] = table.Normalize(kind, v)
		default:
			values[i] = v
		}
	}
	return &table.Column{Name: c.Name, Kind: kind, Values: values}
}

// propagate carries the nearest non-null value forward (or backward) along
// row order. Nulls with no such neighbour stay null.
func propagate(c *table.Column, forward bool) *table.Column {
	out := c.Clone()
	var last any
	n := out.Len()
	for k := 0; k < n; k++ {
		i := k
		if !forward {
			i = n - 1 - k
		}
		if out.Values[i] == nil {
			out.Values[i] = last
		} else {
			last = out.Values[i]
		}
	}
	return out
}
