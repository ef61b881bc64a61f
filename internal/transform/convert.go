package transform

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/JonMunkholm/flowforge/internal/table"
)

// ConvertTypes converts each column in mapping (column → type name)
// independently. Columns that fail are reported next to the ones that
// converted; the outcome only fails when every column fails.
//
// Integer, float and datetime targets null out unparseable text. A
// non-integral number cannot become an integer, and unrecognized text
// cannot become a boolean; either fails that column.
func (e *Engine) ConvertTypes(t *table.Table, mapping map[string]string) Outcome {
	step := Step{Kind: OpConvertTypes, Mapping: mapping}
	return e.run(step, t, func(t *table.Table) (change, *OpError) {
		if len(mapping) == 0 {
			return change{}, validationf("no type conversions requested")
		}
		names := sortedKeys(mapping)
		if err := requireColumns(t, names...); err != nil {
			return change{}, err
		}

		var (
			converted []*table.Column
			done      []string
			failures  []string
		)
		for _, name := range names {
			col, _ := t.Column(name)
			kind, err := table.ParseKind(mapping[name])
			if err != nil {
				failures = append(failures, fmt.Sprintf("Failed to convert '%s' to %s: %v", name, mapping[name], err))
				continue
			}
			next, nulled, err := convertColumn(col, kind)
			if err != nil {
				failures = append(failures, fmt.Sprintf("Failed to convert '%s' to %s: %v", name, kind, err))
				continue
			}
			note := fmt.Sprintf("%s → %s", name, kind)
			if nulled > 0 {
				note += fmt.Sprintf(" (%d unparseable set to null)", nulled)
			}
			done = append(done, note)
			converted = append(converted, next)
		}

		if len(converted) == 0 {
			return change{}, &OpError{Kind: ErrParse, Msg: strings.Join(failures, "; ")}
		}

		res := change{
			table:   mustWith(t, converted...),
			message: fmt.Sprintf("Successfully converted %d columns (%s)", len(done), strings.Join(done, ", ")),
			details: "Converted: " + strings.Join(done, ", "),
		}
		if len(failures) > 0 {
			res.message += ". Errors: " + strings.Join(failures, "; ")
			res.partial = &OpError{Kind: ErrPartial, Msg: strings.Join(failures, "; ")}
		}
		return res, nil
	})
}

// convertColumn returns the converted column and how many non-null cells
// became null.
func convertColumn(c *table.Column, kind table.Kind) (*table.Column, int, error) {
	values := make([]any, c.Len())
	nulled := 0
	for i, v := range c.Values {
		if v == nil {
			continue
		}
		out, err := convertValue(v, kind)
		if err != nil {
			return nil, 0, err
		}
		if out == nil {
			nulled++
		}
		values[i] = out
	}
	return &table.Column{Name: c.Name, Kind: kind, Values: values}, nulled, nil
}

// convertValue converts one non-null cell. A nil result without error means
// the cell could not be parsed and becomes null.
func convertValue(v any, kind table.Kind) (any, error) {
	switch kind {
	case table.KindText, table.KindCategorical:
		return table.Format(v), nil

	case table.KindInteger:
		switch x := v.(type) {
		case int64:
			return x, nil
		case float64:
			if x != math.Trunc(x) {
				return nil, fmt.Errorf("cannot safely cast non-integral value %v to int", x)
			}
			n, ok := table.FloatToInt(x)
			if !ok {
				return nil, fmt.Errorf("value %v is out of range for int", x)
			}
			return n, nil
		case bool:
			return boolToInt(x), nil
		case time.Time:
			return x.Unix(), nil
		case string:
			if n, ok := table.ParseInt(x); ok {
				return n, nil
			}
			if f, ok := table.ParseNumber(x); ok {
				if f == math.Trunc(f) {
					return nil, fmt.Errorf("value %v is out of range for int", f)
				}
				return nil, fmt.Errorf("cannot safely cast non-integral value %v to int", f)
			}
			return nil, nil
		}

	case table.KindFloat:
		switch x := v.(type) {
		case time.Time:
			return float64(x.Unix()), nil
		case string:
			if f, ok := table.ParseNumber(x); ok {
				return f, nil
			}
			return nil, nil
		default:
			if f, ok := table.AsFloat(v); ok {
				return f, nil
			}
		}

	case table.KindDateTime:
		switch x := v.(type) {
		case time.Time:
			return x, nil
		case int64:
			return time.Unix(x, 0).UTC(), nil
		case float64:
			sec, frac := math.Modf(x)
			return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
		case string:
			if ts, ok := table.ParseTime(x); ok {
				return ts, nil
			}
			return nil, nil
		case bool:
			return nil, nil
		}

	case table.KindBoolean:
		switch x := v.(type) {
		case bool:
			return x, nil
		case int64:
			return x != 0, nil
		case float64:
			return x != 0, nil
		case string:
			if b, ok := table.ParseBool(x); ok {
				return b, nil
			}
			return nil, fmt.Errorf("unrecognized boolean value '%s'", x)
		case time.Time:
			return nil, fmt.Errorf("datetime values cannot be converted to boolean")
		}
	}
	return nil, fmt.Errorf("unsupported conversion of %T to %s", v, kind)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
