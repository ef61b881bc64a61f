package transform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/flowforge/internal/table"
	"github.com/JonMunkholm/flowforge/internal/transform/expr"
)

// CreateCalculatedColumn evaluates expression for every row and stores the
// result in column name, replacing a column of that name if present.
//
// The result is an integer column when every value is an exact result of
// integer arithmetic, a float column for other numbers (including integer
// results that left the int64 range) and a text column for strings. An expression yielding both numbers and strings fails.
func (e *Engine) CreateCalculatedColumn(t *table.Table, name, expression string) Outcome {
	step := Step{Kind: OpCreateColumn, Name: name, Expression: expression}
	return e.run(step, t, func(t *table.Table) (change, *OpError) {
		if strings.TrimSpace(name) == "" {
			return change{}, validationf("new column name is required")
		}
		prog, err := expr.Compile(expression, t.ColumnNames())
		if err != nil {
			var unknown *expr.UnknownColumnsError
			if errors.As(err, &unknown) {
				return change{}, missingColumns(unknown.Names)
			}
			return change{}, parseErr(err, "invalid expression: %v", err)
		}

		refs := prog.References()
		refCols := make([]*table.Column, len(refs))
		refIdx := make([]int, len(refs))
		names := t.ColumnNames()
		for i, r := range refs {
			refCols[i], _ = t.Column(r)
			for j, n := range names {
				if n == r {
					refIdx[i] = j
				}
			}
		}

		results := make([]expr.Value, t.NumRows())
		resultType := expr.TypeNull
		allInt := true
		row := make([]any, t.NumCols())
		for i := 0; i < t.NumRows(); i++ {
			for k, c := range refCols {
				row[refIdx[k]] = c.Values[i]
			}
			v, err := prog.Eval(row)
			if err != nil {
				return change{}, parseErr(err, "row %d: %v", i+1, err)
			}
			if v.IsNull() {
				results[i] = v
				continue
			}
			if resultType != expr.TypeNull && resultType != v.Type {
				return change{}, parseErr(expr.ErrTypeMismatch, "expression produces both numbers and strings")
			}
			resultType = v.Type
			allInt = allInt && v.Int
			results[i] = v
		}

		col := calculatedColumn(name, results, resultType, allInt)
		return change{
			table:   mustWith(t, col),
			message: fmt.Sprintf("Created calculated column '%s'", name),
			details: fmt.Sprintf("Created column '%s' = %s", name, expression),
		}, nil
	})
}

func calculatedColumn(name string, results []expr.Value, typ expr.Type, allInt bool) *table.Column {
	values := make([]any, len(results))
	kind := table.KindFloat
	switch {
	case typ == expr.TypeString:
		kind = table.KindText
	case typ == expr.TypeNumber && allInt:
		kind = table.KindInteger
	}
	for i, v := range results {
		if v.IsNull() {
			continue
		}
		switch kind {
		case table.KindText:
			values[i] = v.Str
		case table.KindInteger:
			values[i] = v.I
		default:
			values[i] = v.Num
		}
	}
	return &table.Column{Name: name, Kind: kind, Values: values}
}
