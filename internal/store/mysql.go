package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // registers the "mysql" driver
	"github.com/jmoiron/sqlx"

	"github.com/JonMunkholm/flowforge/internal/config"
	"github.com/JonMunkholm/flowforge/internal/table"
)

// MySQL extracts and loads tables through sqlx.
type MySQL struct {
	db      *sqlx.DB
	timeout time.Duration
	batch   int
}

// OpenMySQL connects with cfg.MySQLDSN and applies the pool limits.
// parseTime is forced on so DATETIME columns scan as time.Time.
func OpenMySQL(ctx context.Context, cfg config.DatabaseConfig) (*MySQL, error) {
	dsn := cfg.MySQLDSN
	if !strings.Contains(dsn, "parseTime=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "parseTime=true"
	}

	db, err := sqlx.ConnectContext(ctx, "mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to mysql: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MinConns)
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)

	return NewMySQL(db, cfg.QueryTimeout, cfg.BatchSize), nil
}

// NewMySQL wraps an open handle. batch is the number of rows per INSERT.
func NewMySQL(db *sqlx.DB, timeout time.Duration, batch int) *MySQL {
	if batch <= 0 {
		batch = 500
	}
	return &MySQL{db: db, timeout: timeout, batch: batch}
}

// Close closes the handle.
func (m *MySQL) Close() error { return m.db.Close() }

// Ping checks connectivity.
func (m *MySQL) Ping(ctx context.Context) error { return m.db.PingContext(ctx) }

func (m *MySQL) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.timeout)
}

// Query runs a read query. Column kinds come from the driver's database
// type names.
func (m *MySQL) Query(ctx context.Context, query string, args ...any) (*table.Table, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	rows, err := m.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types: %w", err)
	}
	names := make([]string, len(types))
	kinds := make([]table.Kind, len(types))
	for i, ct := range types {
		names[i] = ct.Name()
		kinds[i] = mysqlKind(ct.DatabaseTypeName())
	}

	var data [][]any
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(data)+1, err)
		}
		data = append(data, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	t, err := collect(names, kinds, data, mysqlValue)
	if err != nil {
		return nil, fmt.Errorf("build table: %w", err)
	}
	slog.Debug("mysql extract", "rows", t.NumRows(), "columns", t.NumCols())
	return t, nil
}

// mysqlKind maps a MySQL column type name to a column kind.
func mysqlKind(typeName string) table.Kind {
	switch strings.TrimPrefix(strings.ToUpper(typeName), "UNSIGNED ") {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT", "YEAR":
		return table.KindInteger
	case "DECIMAL", "FLOAT", "DOUBLE", "REAL":
		return table.KindFloat
	case "BOOL", "BOOLEAN", "BIT":
		return table.KindBoolean
	case "DATE", "DATETIME", "TIMESTAMP":
		return table.KindDateTime
	default:
		return table.KindText
	}
}

// mysqlValue converts a scanned driver value to a cell of kind k. The text
// protocol hands most values back as []byte.
func mysqlValue(k table.Kind, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		if k == table.KindBoolean && len(x) == 1 && x[0] <= 1 {
			return x[0] == 1
		}
		v = string(x)
	case time.Time:
		if x.IsZero() {
			return nil
		}
	}
	return coerceCell(k, v)
}

func mysqlQuote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// mysqlIdent quotes an optionally database-qualified name.
func mysqlIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = mysqlQuote(p)
	}
	return strings.Join(parts, ".")
}

// insertSQL builds one multi-row INSERT for rows placeholders groups.
func insertSQL(ident string, cols []string, rows int) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = mysqlQuote(c)
	}
	group := "(" + strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",") + ")"
	groups := make([]string, rows)
	for i := range groups {
		groups[i] = group
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", ident, strings.Join(quoted, ", "), strings.Join(groups, ", "))
}

// Save writes t to the named table in one transaction using batched
// multi-row INSERTs, then verifies the row count.
func (m *MySQL) Save(ctx context.Context, name string, t *table.Table, mode SaveMode) (int64, error) {
	if t == nil || t.NumRows() == 0 || t.NumCols() == 0 {
		return 0, ErrEmptyTable
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	ident := mysqlIdent(name)
	tableName := name
	if i := strings.LastIndex(name, "."); i >= 0 {
		tableName = name[i+1:]
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var found int
	if err := tx.GetContext(ctx, &found,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?", tableName); err != nil {
		return 0, fmt.Errorf("check table: %w", err)
	}
	exists := found > 0

	var before int64
	switch {
	case exists && mode == ModeFail:
		return 0, fmt.Errorf("%w: %s", ErrTableExists, name)
	case exists && mode == ModeReplace:
		if _, err := tx.ExecContext(ctx, "DROP TABLE "+ident); err != nil {
			return 0, fmt.Errorf("drop table: %w", err)
		}
		exists = false
	case exists && mode == ModeAppend:
		if err := tx.GetContext(ctx, &before, "SELECT COUNT(*) FROM "+ident); err != nil {
			return 0, fmt.Errorf("count rows: %w", err)
		}
	}
	if !exists {
		if _, err := tx.ExecContext(ctx, createTableSQL(ident, t, true, mysqlQuote)); err != nil {
			return 0, fmt.Errorf("create table: %w", err)
		}
	}

	cols := t.ColumnNames()
	var written int64
	for start := 0; start < t.NumRows(); start += m.batch {
		end := min(start+m.batch, t.NumRows())
		args := make([]any, 0, (end-start)*len(cols))
		for i := start; i < end; i++ {
			args = append(args, t.Row(i)...)
		}
		res, err := tx.ExecContext(ctx, insertSQL(ident, cols, end-start), args...)
		if err != nil {
			return 0, fmt.Errorf("insert rows %d-%d: %w", start+1, end, err)
		}
		n, _ := res.RowsAffected()
		written += n
	}

	var after int64
	if err := tx.GetContext(ctx, &after, "SELECT COUNT(*) FROM "+ident); err != nil {
		return 0, fmt.Errorf("verify row count: %w", err)
	}
	if after-before != int64(t.NumRows()) {
		return 0, &CountMismatchError{Table: name, Expected: int64(t.NumRows()), Got: after - before}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	slog.Info("mysql load", "table", name, "mode", mode, "rows", written)
	return written, nil
}
