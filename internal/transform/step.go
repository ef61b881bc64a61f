package transform

import (
	"github.com/JonMunkholm/flowforge/internal/table"
)

// Step is a serializable operation request. Only the fields the operation
// reads are set.
type Step struct {
	Kind       OperationKind     `json:"kind" yaml:"kind"`
	Columns    []string          `json:"columns,omitempty" yaml:"columns,omitempty"`
	Keep       string            `json:"keep,omitempty" yaml:"keep,omitempty"`
	Method     string            `json:"method,omitempty" yaml:"method,omitempty"`
	FillValue  any               `json:"fill_value,omitempty" yaml:"fill_value,omitempty"`
	Column     string            `json:"column,omitempty" yaml:"column,omitempty"`
	Operator   string            `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value      any               `json:"value,omitempty" yaml:"value,omitempty"`
	Ascending  []bool            `json:"ascending,omitempty" yaml:"ascending,omitempty"`
	Mapping    map[string]string `json:"mapping,omitempty" yaml:"mapping,omitempty"`
	Name       string            `json:"name,omitempty" yaml:"name,omitempty"`
	Expression string            `json:"expression,omitempty" yaml:"expression,omitempty"`
	Operation  string            `json:"operation,omitempty" yaml:"operation,omitempty"`
	Old        string            `json:"old,omitempty" yaml:"old,omitempty"`
	New        string            `json:"new,omitempty" yaml:"new,omitempty"`
	Pattern    string            `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// Apply dispatches a Step to its catalog operation.
func (e *Engine) Apply(t *table.Table, s Step) Outcome {
	switch s.Kind {
	case OpRemoveDuplicates:
		return e.RemoveDuplicates(t, DedupParams{Columns: s.Columns, Keep: Keep(s.Keep)})
	case OpHandleMissing:
		return e.HandleMissing(t, MissingParams{Method: MissingMethod(s.Method), Columns: s.Columns, FillValue: s.FillValue})
	case OpFilterData:
		return e.Filter(t, FilterParams{Column: s.Column, Operator: Operator(s.Operator), Value: s.Value})
	case OpSortData:
		return e.Sort(t, SortParams{Columns: s.Columns, Ascending: s.Ascending})
	case OpRenameColumns:
		return e.RenameColumns(t, s.Mapping)
	case OpDropColumns:
		return e.DropColumns(t, s.Columns)
	case OpConvertTypes:
		return e.ConvertTypes(t, s.Mapping)
	case OpCreateColumn:
		return e.CreateCalculatedColumn(t, s.Name, s.Expression)
	case OpTextOperation:
		return e.TextOperation(t, TextParams{Column: s.Column, Operation: TextOp(s.Operation), Old: s.Old, New: s.New, Pattern: s.Pattern})
	case OpFixColumnTypos:
		return e.FixColumnTypos(t, s.Mapping)
	case OpFixDataTypos:
		return e.FixDataTypos(t, s.Column, s.Mapping)
	default:
		return e.run(s, t, func(*table.Table) (change, *OpError) {
			return change{}, validationf("unsupported operation '%s'", s.Kind)
		})
	}
}
