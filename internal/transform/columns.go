package transform

import (
	"fmt"
	"sort"

	"github.com/JonMunkholm/flowforge/internal/table"
)

// RenameColumns renames columns simultaneously, so a→b with b→a swaps them.
func (e *Engine) RenameColumns(t *table.Table, mapping map[string]string) Outcome {
	step := Step{Kind: OpRenameColumns, Mapping: mapping}
	return e.run(step, t, func(t *table.Table) (change, *OpError) {
		out, err := renameColumns(t, mapping)
		if err != nil {
			return change{}, err
		}
		return change{
			table:   out,
			message: fmt.Sprintf("Renamed %d columns", len(mapping)),
		}, nil
	})
}

// FixColumnTypos applies column-name corrections as a rename.
func (e *Engine) FixColumnTypos(t *table.Table, corrections map[string]string) Outcome {
	step := Step{Kind: OpFixColumnTypos, Mapping: corrections}
	return e.run(step, t, func(t *table.Table) (change, *OpError) {
		out, err := renameColumns(t, corrections)
		if err != nil {
			return change{}, err
		}
		return change{
			table:   out,
			message: fmt.Sprintf("Successfully fixed %d column name typos", len(corrections)),
		}, nil
	})
}

func renameColumns(t *table.Table, mapping map[string]string) (*table.Table, *OpError) {
	if len(mapping) == 0 {
		return nil, validationf("no columns to rename")
	}
	sources := sortedKeys(mapping)
	if err := requireColumns(t, sources...); err != nil {
		return nil, err
	}
	for _, src := range sources {
		if mapping[src] == "" {
			return nil, validationf("new name for column '%s' is empty", src)
		}
	}
	out, err := t.Rename(mapping)
	if err != nil {
		return nil, &OpError{Kind: ErrValidation, Msg: fmt.Sprintf("rename would produce a %s", err), Err: err}
	}
	return out, nil
}

// DropColumns removes the named columns.
func (e *Engine) DropColumns(t *table.Table, columns []string) Outcome {
	step := Step{Kind: OpDropColumns, Columns: columns}
	return e.run(step, t, func(t *table.Table) (change, *OpError) {
		if len(columns) == 0 {
			return change{}, validationf("no columns to drop")
		}
		if err := requireColumns(t, columns...); err != nil {
			return change{}, err
		}
		out := t.Drop(columns...)
		return change{
			table:   out,
			message: fmt.Sprintf("Dropped %d columns", t.NumCols()-out.NumCols()),
		}, nil
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
