// Package transform implements the FlowForge transform engine: the catalog
// of table operations, the operation history ledger, the typo suggestion
// heuristic and the read-only export summary.
//
// Every catalog operation has the same contract:
//
//	out := engine.Sort(t, transform.SortParams{Columns: []string{"amount"}})
//	if !out.Succeeded {
//	    // out.Table == t, out.Message explains why
//	}
//
// Operations never panic or return errors to the caller. Failures come back
// as an Outcome carrying the untouched input table, a message prefixed with
// the operation context and, in Err, an *OpError classifying the failure.
// Column references are validated before anything is computed, and the
// message names every missing column.
//
// An Engine is scoped to one working session. It owns the History ledger
// and an optional AuditSink, and never keeps a reference to a table between
// calls. It holds no locks: hosts that share an Engine between goroutines
// must serialize calls themselves (see internal/session).
package transform
