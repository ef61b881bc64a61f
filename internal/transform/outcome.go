package transform

import "github.com/JonMunkholm/flowforge/internal/table"

// OperationKind identifies a catalog operation in the ledger and on the wire.
type OperationKind string

const (
	OpRemoveDuplicates OperationKind = "REMOVE_DUPLICATES"
	OpHandleMissing    OperationKind = "HANDLE_MISSING"
	OpFilterData       OperationKind = "FILTER_DATA"
	OpSortData         OperationKind = "SORT_DATA"
	OpRenameColumns    OperationKind = "RENAME_COLUMNS"
	OpDropColumns      OperationKind = "DROP_COLUMNS"
	OpConvertTypes     OperationKind = "CONVERT_TYPES"
	OpCreateColumn     OperationKind = "CREATE_COLUMN"
	OpTextOperation    OperationKind = "TEXT_OPERATION"
	OpFixColumnTypos   OperationKind = "FIX_COLUMN_TYPOS"
	OpFixDataTypos     OperationKind = "FIX_DATA_TYPOS"
)

// Catalog lists every operation in display order.
var Catalog = []OperationKind{
	OpRemoveDuplicates, OpHandleMissing, OpFilterData, OpSortData,
	OpRenameColumns, OpDropColumns, OpConvertTypes, OpCreateColumn,
	OpTextOperation, OpFixColumnTypos, OpFixDataTypos,
}

var actions = map[OperationKind]string{
	OpRemoveDuplicates: "removing duplicates",
	OpHandleMissing:    "handling missing values",
	OpFilterData:       "filtering data",
	OpSortData:         "sorting data",
	OpRenameColumns:    "renaming columns",
	OpDropColumns:      "dropping columns",
	OpConvertTypes:     "converting data types",
	OpCreateColumn:     "creating calculated column",
	OpTextOperation:    "applying text operation",
	OpFixColumnTypos:   "fixing column typos",
	OpFixDataTypos:     "fixing data typos",
}

func (k OperationKind) action() string {
	if a, ok := actions[k]; ok {
		return a
	}
	return "applying " + string(k)
}

// Valid reports whether k names a catalog operation.
func (k OperationKind) Valid() bool {
	_, ok := actions[k]
	return ok
}

// Outcome is the result of one operation attempt. On failure Table is the
// input table itself and Message explains why.
type Outcome struct {
	Table     *table.Table
	Message   string
	Succeeded bool
	// Partial is set when the operation succeeded for some columns only;
	// Err then describes the failed part.
	Partial bool
	Err     error
}
