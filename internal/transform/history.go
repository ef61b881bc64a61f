package transform

import (
	"encoding/json"
	"time"
)

// TimestampLayout is the ledger timestamp format.
const TimestampLayout = "2006-01-02 15:04:05"

// Record is one successful operation in the ledger.
type Record struct {
	Timestamp  time.Time
	Operation  OperationKind
	Details    string
	RowsBefore int
	RowsAfter  int
	ColsBefore int
	ColsAfter  int
	// Step is the request that produced the record, for replay.
	Step Step
}

func (r Record) RowsChanged() int { return r.RowsAfter - r.RowsBefore }
func (r Record) ColsChanged() int { return r.ColsAfter - r.ColsBefore }

type recordJSON struct {
	Timestamp   string        `json:"timestamp"`
	Operation   OperationKind `json:"operation"`
	Details     string        `json:"details"`
	RowsBefore  int           `json:"rows_before"`
	RowsAfter   int           `json:"rows_after"`
	ColsBefore  int           `json:"cols_before"`
	ColsAfter   int           `json:"cols_after"`
	RowsChanged int           `json:"rows_changed"`
	ColsChanged int           `json:"cols_changed"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		Timestamp:   r.Timestamp.Format(TimestampLayout),
		Operation:   r.Operation,
		Details:     r.Details,
		RowsBefore:  r.RowsBefore,
		RowsAfter:   r.RowsAfter,
		ColsBefore:  r.ColsBefore,
		ColsAfter:   r.ColsAfter,
		RowsChanged: r.RowsChanged(),
		ColsChanged: r.ColsChanged(),
	})
}

// History is an append-only, insertion-ordered ledger. It is not safe for
// concurrent use.
type History struct {
	records []Record
}

func (h *History) Append(r Record) { h.records = append(h.records, r) }

// List returns a copy of the records, oldest first.
func (h *History) List() []Record {
	out := make([]Record, len(h.records))
	copy(out, h.records)
	return out
}

func (h *History) Len() int { return len(h.records) }

func (h *History) Clear() { h.records = nil }

// Recipe returns the steps of every record, oldest first.
func (h *History) Recipe() Recipe {
	steps := make([]Step, len(h.records))
	for i, r := range h.records {
		steps[i] = r.Step
	}
	return Recipe{Steps: steps}
}
