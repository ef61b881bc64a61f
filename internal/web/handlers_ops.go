package web

import (
	"fmt"
	"io"
	"net/http"

	"github.com/JonMunkholm/flowforge/internal/logging"
	"github.com/JonMunkholm/flowforge/internal/table"
	"github.com/JonMunkholm/flowforge/internal/transform"
)

// maxRecipeBody bounds uploaded YAML recipes.
const maxRecipeBody = 1 << 20

type tableResponse struct {
	Source  string           `json:"source"`
	Rows    int              `json:"rows"`
	Columns int              `json:"columns"`
	Schema  []table.Field    `json:"schema"`
	Records []map[string]any `json:"records"`
}

// handleTable returns up to ?limit rows of the current table.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	t := sess.Current()
	if t == nil {
		t = table.Empty()
	}
	writeJSON(w, http.StatusOK, tableResponse{
		Source:  sess.Source(),
		Rows:    t.NumRows(),
		Columns: t.NumCols(),
		Schema:  t.Schema(),
		Records: t.Records(intParam(r, "limit", s.cfg.Upload.PreviewRows)),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := currentSession(r).Summary()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	column := r.URL.Query().Get("column")
	sess := currentSession(r)
	if t := sess.Current(); column != "" && t != nil && !t.HasColumn(column) {
		s.fail(w, r, fmt.Errorf("%s: column '%s' not found", invalidRequest, column))
		return
	}
	writeJSON(w, http.StatusOK, sess.Suggestions(column))
}

// operationResponse converts an outcome to the wire shape. Failures and
// partial conversions carry the mapped error code.
func operationResponse(out transform.Outcome) OperationResponse {
	resp := OperationResponse{
		Succeeded: out.Succeeded,
		Partial:   out.Partial,
		Message:   out.Message,
	}
	if out.Table != nil {
		resp.Rows = out.Table.NumRows()
		resp.Columns = out.Table.NumCols()
	}
	if out.Err != nil {
		m := MapError(out.Err)
		resp.Code = m.Code
		resp.Action = m.Action
	}
	return resp
}

// handleApply runs one Step. A failed operation leaves the table as it was
// and answers with the status of its error kind.
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	var step transform.Step
	if err := s.decodeJSON(w, r, &step); err != nil {
		s.fail(w, r, err)
		return
	}

	out := sess.Apply(step)
	logger := logging.WithFields(r.Context(), "operation", step.Kind)
	status := http.StatusOK
	if !out.Succeeded {
		status = statusFor(out.Err)
		logger.Warn("operation failed", "error", out.Err)
	} else {
		logger.Info("operation applied", "rows", out.Table.NumRows(), "columns", out.Table.NumCols(), "partial", out.Partial)
	}
	writeJSON(w, status, operationResponse(out))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	if !sess.Reset() {
		s.fail(w, r, &transform.OpError{Kind: transform.ErrEmptyInput, Msg: "No original data to reset to"})
		return
	}
	t := sess.Current()
	writeJSON(w, http.StatusOK, OperationResponse{
		Succeeded: true,
		Message:   "Reset to original data",
		Rows:      t.NumRows(),
		Columns:   t.NumCols(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history := currentSession(r).History()
	if history == nil {
		history = []transform.Record{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	currentSession(r).ClearHistory()
	w.WriteHeader(http.StatusNoContent)
}

// handleRecipe downloads the ledger as a YAML recipe.
func (s *Server) handleRecipe(w http.ResponseWriter, r *http.Request) {
	recipe := currentSession(r).Recipe()
	data, err := recipe.YAML()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", `attachment; filename="recipe.yaml"`)
	_, _ = w.Write(data)
}

type replayResponse struct {
	Outcomes []OperationResponse `json:"outcomes"`
	Rows     int                 `json:"rows"`
	Columns  int                 `json:"columns"`
}

// handleReplay applies an uploaded YAML recipe to the current table. It
// stops at the first failure unless ?continue=true.
func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRecipeBody))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	recipe, err := transform.ParseRecipe(data)
	if err != nil {
		s.fail(w, r, fmt.Errorf("%s: %w", invalidRequest, err))
		return
	}

	outcomes := sess.Replay(recipe, boolParam(r, "continue", false))
	resp := replayResponse{Outcomes: make([]OperationResponse, len(outcomes))}
	status := http.StatusOK
	for i, out := range outcomes {
		resp.Outcomes[i] = operationResponse(out)
		if !out.Succeeded {
			status = http.StatusUnprocessableEntity
		}
	}
	if t := sess.Current(); t != nil {
		resp.Rows, resp.Columns = t.NumRows(), t.NumCols()
	}
	logging.FromContext(r.Context()).Info("recipe replayed", "steps", len(recipe.Steps), "attempted", len(outcomes))
	writeJSON(w, status, resp)
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentSession(r).Log())
}
