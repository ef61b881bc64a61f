package table

import "time"

// Records returns up to limit rows as name→value maps for JSON and HTML
// previews. Datetimes are rendered as text. A limit <= 0 returns every row.
func (t *Table) Records(limit int) []map[string]any {
	n := t.rows
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		rec := make(map[string]any, len(t.cols))
		for _, c := range t.cols {
			v := c.Values[i]
			if ts, ok := v.(time.Time); ok {
				v = Format(ts)
			}
			rec[c.Name] = v
		}
		out[i] = rec
	}
	return out
}

// Schema returns the column kinds in table order.
func (t *Table) Schema() []Field {
	fields := make([]Field, len(t.cols))
	for i, c := range t.cols {
		fields[i] = Field{Name: c.Name, Kind: c.Kind}
	}
	return fields
}

// Field names a column and its kind.
type Field struct {
	Name string `json:"name" yaml:"name"`
	Kind Kind   `json:"kind" yaml:"kind"`
}

// MemoryBytes estimates the in-memory footprint of the table.
func (t *Table) MemoryBytes() int64 {
	var total int64
	for _, c := range t.cols {
		total += c.MemoryBytes()
	}
	return total
}

// MemoryBytes estimates the column footprint: fixed-width cells take their
// width, text cells take a header plus their length, categorical columns
// take a code per row plus their dictionary.
func (c *Column) MemoryBytes() int64 {
	const textHeader = 16
	switch c.Kind {
	case KindInteger, KindFloat, KindDateTime:
		return int64(8 * len(c.Values))
	case KindBoolean:
		return int64(len(c.Values))
	case KindCategorical:
		total := int64(4 * len(c.Values))
		for _, cat := range c.Categories() {
			total += textHeader + int64(len(cat))
		}
		return total
	default:
		var total int64
		for _, v := range c.Values {
			total += textHeader
			if s, ok := v.(string); ok {
				total += int64(len(s))
			}
		}
		return total
	}
}
