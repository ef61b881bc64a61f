package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/flowforge/internal/config"
	"github.com/JonMunkholm/flowforge/internal/table"
)

// Postgres extracts and loads tables through a pgx connection pool.
type Postgres struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// OpenPostgres parses cfg.URL, connects the pool and pings it.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewPostgres(pool, cfg.QueryTimeout), nil
}

// NewPostgres wraps an existing pool. A zero timeout disables the per-call
// deadline.
func NewPostgres(pool *pgxpool.Pool, timeout time.Duration) *Postgres {
	return &Postgres{pool: pool, timeout: timeout}
}

// Close releases the pool.
func (p *Postgres) Close() { p.pool.Close() }

// Ping checks connectivity.
func (p *Postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *Postgres) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

// Query runs a read query and builds a table with one column per result
// field. Column kinds come from the field type OIDs.
func (p *Postgres) Query(ctx context.Context, query string, args ...any) (*table.Table, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	kinds := make([]table.Kind, len(fields))
	for i, f := range fields {
		names[i] = f.Name
		kinds[i] = pgKind(f.DataTypeOID)
	}

	var data [][]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(data)+1, err)
		}
		data = append(data, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	t, err := collect(names, kinds, data, pgValue)
	if err != nil {
		return nil, fmt.Errorf("build table: %w", err)
	}
	slog.Debug("postgres extract", "rows", t.NumRows(), "columns", t.NumCols())
	return t, nil
}

// pgKind maps a Postgres type OID to a column kind.
func pgKind(oid uint32) table.Kind {
	switch oid {
	case pgtype.Int2OID, pgtype.Int4OID, pgtype.Int8OID:
		return table.KindInteger
	case pgtype.Float4OID, pgtype.Float8OID, pgtype.NumericOID:
		return table.KindFloat
	case pgtype.BoolOID:
		return table.KindBoolean
	case pgtype.DateOID, pgtype.TimestampOID, pgtype.TimestamptzOID:
		return table.KindDateTime
	default:
		return table.KindText
	}
}

// pgValue converts a decoded pgx value to a cell of kind k.
func pgValue(k table.Kind, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case pgtype.Numeric:
		return numericValue(x)
	case time.Time:
		if k == table.KindDateTime {
			return x.UTC()
		}
	case [16]byte:
		if u, err := (pgtype.UUID{Bytes: x, Valid: true}).Value(); err == nil {
			v = u
		}
	case []byte:
		v = string(x)
	case map[string]any, []any:
		if b, err := json.Marshal(x); err == nil {
			v = string(b)
		}
	}
	return coerceCell(k, v)
}

// numericValue converts a Postgres numeric through an exact decimal so
// large scales round once, on the final conversion.
func numericValue(n pgtype.Numeric) any {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite || n.Int == nil {
		return nil
	}
	f, _ := decimal.NewFromBigInt(n.Int, n.Exp).Float64()
	return f
}

// pgIdent splits an optionally schema-qualified name.
func pgIdent(name string) pgx.Identifier {
	return pgx.Identifier(strings.Split(name, "."))
}

func createTableSQL(ident string, t *table.Table, mysql bool, quote func(string) string) string {
	defs := make([]string, t.NumCols())
	for i, c := range t.Columns() {
		defs[i] = quote(c.Name) + " " + sqlType(c.Kind, mysql)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", ident, strings.Join(defs, ", "))
}

func pgQuote(name string) string { return pgx.Identifier{name}.Sanitize() }

// Save writes t to the named table inside one transaction: create or
// replace per mode, bulk copy, then verify the row count.
func (p *Postgres) Save(ctx context.Context, name string, t *table.Table, mode SaveMode) (int64, error) {
	if t == nil || t.NumRows() == 0 || t.NumCols() == 0 {
		return 0, ErrEmptyTable
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	ident := pgIdent(name)
	quoted := ident.Sanitize()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", quoted).Scan(&exists); err != nil {
		return 0, fmt.Errorf("check table: %w", err)
	}

	var before int64
	switch {
	case exists && mode == ModeFail:
		return 0, fmt.Errorf("%w: %s", ErrTableExists, name)
	case exists && mode == ModeReplace:
		if _, err := tx.Exec(ctx, "DROP TABLE "+quoted); err != nil {
			return 0, fmt.Errorf("drop table: %w", err)
		}
		exists = false
	case exists && mode == ModeAppend:
		if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM "+quoted).Scan(&before); err != nil {
			return 0, fmt.Errorf("count rows: %w", err)
		}
	}
	if !exists {
		if _, err := tx.Exec(ctx, createTableSQL(quoted, t, false, pgQuote)); err != nil {
			return 0, fmt.Errorf("create table: %w", err)
		}
	}

	copied, err := tx.CopyFrom(ctx, ident, t.ColumnNames(), pgx.CopyFromSlice(t.NumRows(), func(i int) ([]any, error) {
		return t.Row(i), nil
	}))
	if err != nil {
		return 0, fmt.Errorf("copy rows: %w", err)
	}

	var after int64
	if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM "+quoted).Scan(&after); err != nil {
		return 0, fmt.Errorf("verify row count: %w", err)
	}
	if after-before != int64(t.NumRows()) {
		return 0, &CountMismatchError{Table: name, Expected: int64(t.NumRows()), Got: after - before}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	slog.Info("postgres load", "table", name, "mode", mode, "rows", copied)
	return copied, nil
}
