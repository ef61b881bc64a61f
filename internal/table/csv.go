package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// ErrEmptyCSV is returned when the input has no header row.
var ErrEmptyCSV = errors.New("csv file is empty")

// CSVOptions tunes ReadCSVWith. The zero value reads comma-separated input.
type CSVOptions struct {
	Comma rune
}

// delimiterNames are the spelled-out forms accepted by ParseDelimiter.
var delimiterNames = map[string]rune{
	"comma":     ',',
	"semicolon": ';',
	"tab":       '\t',
	"pipe":      '|',
}

// ParseDelimiter reads a field delimiter from a form or flag value. An empty
// value means comma; a single character or one of comma, semicolon, tab and
// pipe is accepted. Quotes, line breaks and the replacement character are
// rejected.
func ParseDelimiter(s string) (rune, error) {
	if s == "" {
		return ',', nil
	}
	if r, ok := delimiterNames[strings.ToLower(s)]; ok {
		return r, nil
	}
	if s == `\t` {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return r, nil
}

// ReadCSV parses a headed CSV document and infers one kind per column.
func ReadCSV(r io.Reader) (*Table, error) {
	t, _, err := ReadCSVCounted(r)
	return t, err
}

// ReadCSVCounted is ReadCSV that also reports the bytes consumed.
func ReadCSVCounted(r io.Reader) (*Table, int64, error) {
	return ReadCSVWith(r, CSVOptions{})
}

// ReadCSVWith is ReadCSVCounted with a custom field delimiter.
func ReadCSVWith(r io.Reader, opts CSVOptions) (*Table, int64, error) {
	in := wrapInput(r)
	cr := csv.NewReader(in)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, in.n, ErrEmptyCSV
	}
	if err != nil {
		return nil, in.n, fmt.Errorf("reading csv header: %w", err)
	}

	names := make([]string, len(header))
	seen := make(map[string]struct{}, len(header))
	var problems []string
	for i, h := range header {
		name := CleanCell(h)
		switch {
		case name == "":
			problems = append(problems, fmt.Sprintf("header column %d is blank", i+1))
		default:
			if _, dup := seen[name]; dup {
				problems = append(problems, fmt.Sprintf("duplicate header '%s'", name))
			}
		}
		seen[name] = struct{}{}
		names[i] = name
	}
	if len(problems) > 0 {
		return nil, in.n, fmt.Errorf("invalid csv header: %s", strings.Join(problems, ", "))
	}

	raw := make([][]string, len(names))
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, in.n, fmt.Errorf("reading csv row %d: %w", line, err)
		}
		if len(record) > len(names) {
			return nil, in.n, fmt.Errorf("csv row %d has %d fields, header has %d", line, len(record), len(names))
		}
		for j := range names {
			cell := ""
			if j < len(record) {
				cell = record[j]
			}
			raw[j] = append(raw[j], cell)
		}
	}

	cols := make([]*Column, len(names))
	for j, name := range names {
		cols[j] = Infer(name, raw[j])
	}
	t, err := New(cols...)
	return t, in.n, err
}

// WriteCSV renders the table as a headed CSV document. Nulls are empty cells.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.ColumnNames()); err != nil {
		return err
	}
	record := make([]string, t.NumCols())
	for i := 0; i < t.NumRows(); i++ {
		for j := 0; j < t.NumCols(); j++ {
			record[j] = Format(t.ColumnAt(j).Values[i])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSVSize returns the byte length of the table rendered by WriteCSV.
func CSVSize(t *Table) int64 {
	var c byteCounter
	_ = WriteCSV(&c, t)
	return int64(c)
}

type byteCounter int64

func (c *byteCounter) Write(p []byte) (int, error) {
	*c += byteCounter(len(p))
	return len(p), nil
}
