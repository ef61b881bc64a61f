// Package store moves tables in and out of FlowForge: SQL extraction and
// loading for Postgres and MySQL, and file exports for downloads.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/flowforge/internal/table"
)

// SaveMode decides what Save does when the target table already exists.
type SaveMode string

const (
	ModeFail    SaveMode = "fail"
	ModeReplace SaveMode = "replace"
	ModeAppend  SaveMode = "append"
)

var (
	// ErrTableExists is returned by Save in ModeFail when the target exists.
	ErrTableExists = errors.New("target table already exists")

	// ErrEmptyTable is returned when asked to save or export nothing.
	ErrEmptyTable = errors.New("cannot save empty table")
)

// ParseSaveMode accepts fail, replace or append. Empty means fail.
func ParseSaveMode(s string) (SaveMode, error) {
	switch m := SaveMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeFail, nil
	case ModeFail, ModeReplace, ModeAppend:
		return m, nil
	default:
		return "", fmt.Errorf("unknown save mode %q (want fail, replace or append)", s)
	}
}

// Source extracts a table from a SQL query.
type Source interface {
	Query(ctx context.Context, query string, args ...any) (*table.Table, error)
}

// Sink persists a table and returns the number of rows written.
type Sink interface {
	Save(ctx context.Context, name string, t *table.Table, mode SaveMode) (int64, error)
}

// CountMismatchError reports a load whose row count did not verify.
type CountMismatchError struct {
	Table    string
	Expected int64
	Got      int64
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("row count mismatch for %s: expected %d, got %d", e.Table, e.Expected, e.Got)
}

// sqlType returns the column type used by CREATE TABLE for a kind.
// dialect picks the spelling of float and datetime types.
func sqlType(k table.Kind, mysql bool) string {
	switch k {
	case table.KindInteger:
		return "BIGINT"
	case table.KindFloat:
		if mysql {
			return "DOUBLE"
		}
		return "DOUBLE PRECISION"
	case table.KindBoolean:
		return "BOOLEAN"
	case table.KindDateTime:
		if mysql {
			return "DATETIME(6)"
		}
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

// collect builds a table from scanned rows. kinds holds one kind per column
// and convert maps a raw driver value to a cell of that kind.
func collect(names []string, kinds []table.Kind, rows [][]any, convert func(table.Kind, any) any) (*table.Table, error) {
	cols := make([]*table.Column, len(names))
	for j, name := range names {
		values := make([]any, len(rows))
		for i, row := range rows {
			values[i] = convert(kinds[j], row[j])
		}
		cols[j] = table.NewColumn(name, kinds[j], values)
	}
	if len(cols) == 0 {
		return table.Empty(), nil
	}
	return table.New(cols...)
}

// coerceCell converts a driver value to kind k. Non-scalar values are
// rendered as text first; values that still do not fit become null.
func coerceCell(k table.Kind, v any) any {
	switch x := v.(type) {
	case int:
		v = int64(x)
	case int8:
		v = int64(x)
	case int16:
		v = int64(x)
	case int32:
		v = int64(x)
	case uint8:
		v = int64(x)
	case uint16:
		v = int64(x)
	case uint32:
		v = int64(x)
	case float32:
		v = float64(x)
	case nil, string, bool, int64, float64, time.Time:
	default:
		v = fmt.Sprint(v)
	}
	if c, ok := table.Coerce(k, v); ok {
		return c
	}
	return nil
}
