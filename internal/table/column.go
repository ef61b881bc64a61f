package table

import (
	"math"
	"sort"
	"time"
)

// Column is a named, single-kind sequence of cells. A nil cell is null.
//
// Cells hold int64 (Integer), float64 (Float), string (Text, Categorical),
// bool (Boolean) or time.Time (DateTime). Columns reachable from a Table
// are shared between tables and must not be modified.
type Column struct {
	Name   string
	Kind   Kind
	Values []any
}

// NewColumn builds a column, normalizing Go numeric types to the kind's
// canonical representation. Values that do not fit the kind become null.
func NewColumn(name string, kind Kind, values []any) *Column {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = Normalize(kind, v)
	}
	return &Column{Name: name, Kind: kind, Values: out}
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.Values) }

// IsNull reports whether cell i is null.
func (c *Column) IsNull(i int) bool { return c.Values[i] == nil }

// NullCount returns the number of null cells.
func (c *Column) NullCount() int {
	n := 0
	for _, v := range c.Values {
		if v == nil {
			n++
		}
	}
	return n
}

// NullMask returns one flag per cell, true where the cell is null.
func (c *Column) NullMask() []bool {
	mask := make([]bool, len(c.Values))
	for i, v := range c.Values {
		mask[i] = v == nil
	}
	return mask
}

// Clone returns a column with its own copy of the cell slice.
func (c *Column) Clone() *Column {
	values := make([]any, len(c.Values))
	copy(values, c.Values)
	return &Column{Name: c.Name, Kind: c.Kind, Values: values}
}

// Categories returns the sorted distinct non-null values of a categorical
// or text column.
func (c *Column) Categories() []string {
	seen := make(map[string]struct{})
	var cats []string
	for _, v := range c.Values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		cats = append(cats, s)
	}
	sort.Strings(cats)
	return cats
}

// Normalize converts v to the canonical cell representation for kind,
// returning nil when v cannot be represented.
func Normalize(kind Kind, v any) any {
	if v == nil {
		return nil
	}
	switch kind {
	case KindInteger:
		switch n := v.(type) {
		case int64:
			return n
		case int:
			return int64(n)
		case int32:
			return int64(n)
		case int16:
			return int64(n)
		case int8:
			return int64(n)
		case uint8:
			return int64(n)
		case uint16:
			return int64(n)
		case uint32:
			return int64(n)
		case float64:
			if i, ok := FloatToInt(n); ok {
				return i
			}
		}
	case KindFloat:
		switch n := v.(type) {
		case float64:
			if math.IsNaN(n) {
				return nil
			}
			return n
		case float32:
			return float64(n)
		case int64:
			return float64(n)
		case int:
			return float64(n)
		case int32:
			return float64(n)
		}
	case KindText, KindCategorical:
		if s, ok := v.(string); ok {
			return s
		}
	case KindBoolean:
		if b, ok := v.(bool); ok {
			return b
		}
	case KindDateTime:
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	return nil
}
