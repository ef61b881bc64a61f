package transform

import (
	"fmt"
	"time"

	"github.com/JonMunkholm/flowforge/internal/table"
)

// Engine runs catalog operations for one working session.
type Engine struct {
	history *History
	sink    AuditSink
	now     func() time.Time
	typos   TypoConfig
}

// Option configures an Engine.
type Option func(*Engine)

// WithSink sets the audit sink. The default discards events.
func WithSink(s AuditSink) Option {
	return func(e *Engine) {
		if s != nil {
			e.sink = s
		}
	}
}

// WithClock sets the ledger clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithTypoConfig overrides the typo heuristic settings. Zero fields keep
// their defaults.
func WithTypoConfig(cfg TypoConfig) Option {
	return func(e *Engine) { e.typos = cfg.withDefaults() }
}

// NewEngine returns an engine with an empty ledger.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		history: &History{},
		sink:    NopSink{},
		now:     time.Now,
		typos:   DefaultTypoConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// History returns the ledger, oldest first.
func (e *Engine) History() []Record { return e.history.List() }

// ClearHistory empties the ledger.
func (e *Engine) ClearHistory() { e.history.Clear() }

// Recipe returns the ledger as a replayable recipe.
func (e *Engine) Recipe() Recipe { return e.history.Recipe() }

// change is what a successful operation body produces.
type change struct {
	table   *table.Table
	message string
	details string
	partial *OpError
}

// run wraps an operation body with validation of the input, panic recovery,
// ledger bookkeeping, audit events and metrics.
func (e *Engine) run(step Step, in *table.Table, body func(*table.Table) (change, *OpError)) Outcome {
	start := time.Now()
	kind := step.Kind

	var (
		res   change
		opErr *OpError
	)
	if in == nil {
		opErr = validationf("no table loaded")
	} else {
		res, opErr = invoke(in, body)
	}

	if opErr != nil {
		opErr.Op = kind
		out := Outcome{Table: in, Message: opErr.Error(), Err: opErr}
		safeRecord(e.sink, "ERROR", out.Message, LevelError)
		observe(kind, "failed", time.Since(start).Seconds(), 0)
		return out
	}

	e.history.Append(Record{
		Timestamp:  e.now(),
		Operation:  kind,
		Details:    res.details,
		RowsBefore: in.NumRows(),
		RowsAfter:  res.table.NumRows(),
		ColsBefore: in.NumCols(),
		ColsAfter:  res.table.NumCols(),
		Step:       step,
	})

	out := Outcome{Table: res.table, Message: res.message, Succeeded: true}
	level, outcome := LevelInfo, "succeeded"
	if res.partial != nil {
		res.partial.Op = kind
		out.Partial = true
		out.Err = res.partial
		level, outcome = LevelWarning, "partial"
	}
	safeRecord(e.sink, "TRANSFORM", fmt.Sprintf("%s: %s", kind, res.details), level)
	observe(kind, outcome, time.Since(start).Seconds(), in.NumRows()-res.table.NumRows())
	return out
}

func invoke(in *table.Table, body func(*table.Table) (change, *OpError)) (res change, opErr *OpError) {
	defer func() {
		if r := recover(); r != nil {
			opErr = &OpError{Kind: ErrInternal, Msg: fmt.Sprint(r)}
		}
	}()
	res, opErr = body(in)
	if opErr == nil && res.details == "" {
		res.details = res.message
	}
	return res, opErr
}

func requireColumns(t *table.Table, names ...string) *OpError {
	if missing := t.Missing(names...); len(missing) > 0 {
		return missingColumns(missing)
	}
	return nil
}

func mustWith(t *table.Table, cols ...*table.Column) *table.Table {
	out, err := t.WithColumns(cols...)
	if err != nil {
		panic(err)
	}
	return out
}
