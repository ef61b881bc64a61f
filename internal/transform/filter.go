package transform

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/flowforge/internal/table"
)

// Operator is a filter comparison.
type Operator string

const (
	OpEq         Operator = "=="
	OpNe         Operator = "!="
	OpGt         Operator = ">"
	OpLt         Operator = "<"
	OpGe         Operator = ">="
	OpLe         Operator = "<="
	OpContains   Operator = "contains"
	OpStartsWith Operator = "startswith"
	OpEndsWith   Operator = "endswith"
)

// Operators lists the supported filter operators.
var Operators = []Operator{OpEq, OpNe, OpGt, OpLt, OpGe, OpLe, OpContains, OpStartsWith, OpEndsWith}

func (o Operator) valid() bool {
	for _, op := range Operators {
		if o == op {
			return true
		}
	}
	return false
}

func (o Operator) isString() bool {
	return o == OpContains || o == OpStartsWith || o == OpEndsWith
}

// FilterParams configures Filter.
type FilterParams struct {
	Column   string
	Operator Operator
	Value    any
}

func (p FilterParams) step() Step {
	return Step{Kind: OpFilterData, Column: p.Column, Operator: string(p.Operator), Value: p.Value}
}

// Filter keeps the rows whose cell in Column satisfies the comparison.
//
// The value is coerced to the column's kind. When it cannot be, == matches
// nothing, != matches everything and ordering operators fail. Nulls only
// ever match !=. String operators compare the cell text literally.
func (e *Engine) Filter(t *table.Table, p FilterParams) Outcome {
	return e.run(p.step(), t, func(t *table.Table) (change, *OpError) {
		if err := requireColumns(t, p.Column); err != nil {
			return change{}, err
		}
		if !p.Operator.valid() {
			return change{}, validationf("Unsupported operator: %s", p.Operator)
		}
		col, _ := t.Column(p.Column)

		match, err := matcher(col, p.Operator, p.Value)
		if err != nil {
			return change{}, err
		}
		idx := make([]int, 0, t.NumRows())
		for i, v := range col.Values {
			if match(v) {
				idx = append(idx, i)
			}
		}

		out := t
		if len(idx) != t.NumRows() {
			out = t.SelectRows(idx)
		}
		return change{
			table: out,
			message: fmt.Sprintf("Filtered to %d rows where Column '%s' %s '%s'",
				out.NumRows(), p.Column, p.Operator, table.Format(normalizeLiteral(p.Value))),
		}, nil
	})
}

func matcher(col *table.Column, op Operator, value any) (func(any) bool, *OpError) {
	if op.isString() {
		needle := table.Format(normalizeLiteral(value))
		test := map[Operator]func(string, string) bool{
			OpContains:   strings.Contains,
			OpStartsWith: strings.HasPrefix,
			OpEndsWith:   strings.HasSuffix,
		}[op]
		return func(v any) bool {
			return v != nil && test(table.Format(v), needle)
		}, nil
	}

	kind := col.Kind
	if kind.IsNumeric() {
		kind = table.KindFloat
	}
	target, ok := table.Coerce(kind, value)
	if !ok || target == nil {
		switch op {
		case OpEq:
			return func(any) bool { return false }, nil
		case OpNe:
			return func(any) bool { return true }, nil
		default:
			return nil, parseErr(nil, "cannot compare column '%s' (%s) with '%s'",
				col.Name, col.Kind, table.Format(normalizeLiteral(value)))
		}
	}

	return func(v any) bool {
		if v == nil {
			return op == OpNe
		}
		c := table.Compare(v, target)
		switch op {
		case OpEq:
			return c == 0
		case OpNe:
			return c != 0
		case OpGt:
			return c > 0
		case OpLt:
			return c < 0
		case OpGe:
			return c >= 0
		default:
			return c <= 0
		}
	}, nil
}

// normalizeLiteral maps JSON/YAML literal types to cell types for display.
func normalizeLiteral(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case float32:
		return float64(x)
	}
	return v
}
