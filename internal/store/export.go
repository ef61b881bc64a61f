package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/flowforge/internal/table"
)

// Format is an export file format.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
)

// Orient is the JSON layout: one object per row, or one object per column
// keyed by row position.
type Orient string

const (
	OrientRecords Orient = "records"
	OrientColumns Orient = "columns"
)

// ParseFormat accepts csv, json or ndjson, case-insensitively. Empty means csv.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatJSON, FormatNDJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatNDJSON:
		return "application/x-ndjson"
	default:
		return "text/csv"
	}
}

// ExportOptions configures one export.
type ExportOptions struct {
	Format Format
	Orient Orient
	// Destination labels the export in the history, e.g. a file name.
	Destination string
}

// ExportRecord is one export history entry.
type ExportRecord struct {
	Time        time.Time `json:"timestamp"`
	Format      Format    `json:"format"`
	Destination string    `json:"destination"`
	Rows        int       `json:"rows"`
	Columns     int       `json:"columns"`
	Bytes       int64     `json:"bytes"`
}

// Exporter writes tables to files and remembers what it wrote.
type Exporter struct {
	now func() time.Time

	mu      sync.Mutex
	history []ExportRecord
}

// NewExporter returns an exporter with an empty history.
func NewExporter() *Exporter {
	return &Exporter{now: time.Now}
}

// Export writes t to w. Empty tables are refused with ErrEmptyTable.
func (e *Exporter) Export(w io.Writer, t *table.Table, opts ExportOptions) (ExportRecord, error) {
	if t == nil || t.NumRows() == 0 || t.NumCols() == 0 {
		return ExportRecord{}, ErrEmptyTable
	}
	if opts.Format == "" {
		opts.Format = FormatCSV
	}

	cw := &countingWriter{w: w}
	var err error
	switch opts.Format {
	case FormatCSV:
		err = table.WriteCSV(cw, t)
	case FormatJSON:
		err = writeJSON(cw, t, opts.Orient)
	case FormatNDJSON:
		err = writeNDJSON(cw, t)
	default:
		err = fmt.Errorf("unsupported format: %s", opts.Format)
	}
	if err != nil {
		return ExportRecord{}, fmt.Errorf("export %s: %w", opts.Format, err)
	}

	rec := ExportRecord{
		Time:        e.now(),
		Format:      opts.Format,
		Destination: opts.Destination,
		Rows:        t.NumRows(),
		Columns:     t.NumCols(),
		Bytes:       cw.n,
	}
	e.mu.Lock()
	e.history = append(e.history, rec)
	e.mu.Unlock()

	slog.Info("export", "format", rec.Format, "destination", rec.Destination, "rows", rec.Rows, "bytes", rec.Bytes)
	return rec, nil
}

// History returns past exports, oldest first.
func (e *Exporter) History() []ExportRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ExportRecord, len(e.history))
	copy(out, e.history)
	return out
}

// ClearHistory forgets past exports.
func (e *Exporter) ClearHistory() {
	e.mu.Lock()
	e.history = nil
	e.mu.Unlock()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// jsonValue makes a cell JSON-safe. Datetimes use ISO 8601.
func jsonValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.Format("2006-01-02T15:04:05.000")
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	}
	return v
}

// writeRecord writes one row as a JSON object with keys in column order.
func writeRecord(buf *bytes.Buffer, names [][]byte, row []any) error {
	buf.WriteByte('{')
	for j, v := range row {
		if j > 0 {
			buf.WriteByte(',')
		}
		buf.Write(names[j])
		buf.WriteByte(':')
		b, err := json.Marshal(jsonValue(v))
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return nil
}

func encodedNames(t *table.Table) ([][]byte, error) {
	names := make([][]byte, t.NumCols())
	for j, n := range t.ColumnNames() {
		b, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		names[j] = b
	}
	return names, nil
}

func writeJSON(w io.Writer, t *table.Table, orient Orient) error {
	names, err := encodedNames(t)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	switch orient {
	case OrientColumns:
		buf.WriteString("{\n")
		for j, c := range t.Columns() {
			if j > 0 {
				buf.WriteString(",\n")
			}
			buf.WriteString("  ")
			buf.Write(names[j])
			buf.WriteString(": {")
			for i, v := range c.Values {
				if i > 0 {
					buf.WriteByte(',')
				}
				buf.WriteString(strconv.Quote(strconv.Itoa(i)))
				buf.WriteByte(':')
				b, err := json.Marshal(jsonValue(v))
				if err != nil {
					return err
				}
				buf.Write(b)
			}
			buf.WriteByte('}')
		}
		buf.WriteString("\n}\n")
	case OrientRecords, "":
		buf.WriteString("[\n")
		for i := 0; i < t.NumRows(); i++ {
			if i > 0 {
				buf.WriteString(",\n")
			}
			buf.WriteString("  ")
			if err := writeRecord(&buf, names, t.Row(i)); err != nil {
				return err
			}
		}
		buf.WriteString("\n]\n")
	default:
		return fmt.Errorf("unsupported JSON orient: %s", orient)
	}
	_, err = buf.WriteTo(w)
	return err
}

func writeNDJSON(w io.Writer, t *table.Table) error {
	names, err := encodedNames(t)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	var buf bytes.Buffer
	for i := 0; i < t.NumRows(); i++ {
		buf.Reset()
		if err := writeRecord(&buf, names, t.Row(i)); err != nil {
			return err
		}
		buf.WriteByte('\n')
		if _, err := bw.Write(buf.Bytes()); err != nil {
			return err
		}
	}
	return bw.Flush()
}
