package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/JonMunkholm/flowforge/internal/logging"
	"github.com/JonMunkholm/flowforge/internal/store"
	"github.com/JonMunkholm/flowforge/internal/table"
)

// multipartMemory is how much of a multipart form is held in memory before
// spilling to temp files.
const multipartMemory = 32 << 20

type loadedResponse struct {
	Source  string        `json:"source"`
	Rows    int           `json:"rows"`
	Columns int           `json:"columns"`
	Bytes   int64         `json:"bytes,omitempty"`
	Schema  []table.Field `json:"schema"`
}

func loaded(source string, t *table.Table, n int64) loadedResponse {
	return loadedResponse{
		Source:  source,
		Rows:    t.NumRows(),
		Columns: t.NumCols(),
		Bytes:   n,
		Schema:  t.Schema(),
	}
}

// handleUpload parses a multipart CSV or JSON file into the session. The
// optional form fields are format (csv or json, else taken from the file
// extension) and delimiter for CSV. Uploads share the server-wide slot
// limiter.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	if err := s.limiter.Acquire(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	defer s.limiter.Release()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			s.fail(w, r, err)
			return
		}
		s.fail(w, r, fmt.Errorf("%s: %w", invalidRequest, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, errNoFile)
		return
	}
	defer file.Close()

	var (
		t *table.Table
		n int64
	)
	if uploadFormat(r.FormValue("format"), header.Filename) == "json" {
		t, n, err = table.ReadJSONCounted(file)
	} else {
		var comma rune
		if comma, err = table.ParseDelimiter(r.FormValue("delimiter")); err != nil {
			s.fail(w, r, fmt.Errorf("%s: %w", invalidRequest, err))
			return
		}
		t, n, err = table.ReadCSVWith(file, table.CSVOptions{Comma: comma})
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	name := path.Base(header.Filename)
	sess.Load(name, t)
	logging.FromContext(r.Context()).Info("file uploaded",
		"file", name, "bytes", n, "rows", t.NumRows(), "columns", t.NumCols())
	writeJSON(w, http.StatusOK, loaded(name, t, n))
}

// handleExtract loads data from a configured database, an HTTP JSON API or
// pasted CSV text into the session.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	var req ExtractRequest
	if err := s.decodeJSONLimit(w, r, &req, s.cfg.Upload.MaxFileSize); err != nil {
		s.fail(w, r, err)
		return
	}

	var (
		t     *table.Table
		label string
		err   error
	)
	switch req.Source {
	case SourceAPI:
		label, _, _ = strings.Cut(req.URL, "?")
		t, err = s.extractAPI(r, req)
	case SourceText:
		label = "pasted csv"
		t, err = s.extractText(r, req)
	default:
		label = req.Source + " query"
		src := s.sources[req.Source]
		if src == nil {
			s.fail(w, r, fmt.Errorf("%s: %w", req.Source, errSourceNotConfigured))
			return
		}
		t, err = src.Query(r.Context(), req.Query)
	}
	if err != nil {
		s.fail(w, r, fmt.Errorf("extract from %s: %w", req.Source, err))
		return
	}

	sess.Load(label, t)
	logging.FromContext(r.Context()).Info("data extracted",
		"source", req.Source, "rows", t.NumRows(), "columns", t.NumCols())
	writeJSON(w, http.StatusOK, loaded(label, t, 0))
}

// extractAPI fetches a JSON endpoint. The fetch holds an upload slot since
// it parses a whole document in memory.
func (s *Server) extractAPI(r *http.Request, req ExtractRequest) (*table.Table, error) {
	if err := s.limiter.Acquire(r.Context()); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	return s.api.Fetch(r.Context(), store.APIRequest{
		URL:     req.URL,
		Headers: req.Headers,
		Params:  req.Params,
	})
}

// extractText parses pasted CSV text.
func (s *Server) extractText(r *http.Request, req ExtractRequest) (*table.Table, error) {
	comma, err := table.ParseDelimiter(req.Delimiter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", invalidRequest, err)
	}
	if err := s.limiter.Acquire(r.Context()); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	t, _, err := table.ReadCSVWith(strings.NewReader(req.Text), table.CSVOptions{Comma: comma})
	return t, err
}

// uploadFormat picks csv or json from an explicit form value, falling back
// to the file extension.
func uploadFormat(format, filename string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return "json"
	case "csv":
		return "csv"
	}
	if strings.EqualFold(path.Ext(filename), ".json") {
		return "json"
	}
	return "csv"
}

type loadResponse struct {
	Target string         `json:"target"`
	Table  string         `json:"table"`
	Mode   store.SaveMode `json:"mode"`
	Rows   int64          `json:"rows"`
}

// handleLoad writes the current table to a configured sink.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	var req LoadRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	mode, err := store.ParseSaveMode(req.Mode)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sink := s.sinks[req.Target]
	if sink == nil {
		s.fail(w, r, fmt.Errorf("%s: %w", req.Target, errSourceNotConfigured))
		return
	}
	t := sess.Current()
	if t == nil {
		s.fail(w, r, store.ErrEmptyTable)
		return
	}

	n, err := sink.Save(r.Context(), req.Table, t, mode)
	if err != nil {
		s.fail(w, r, fmt.Errorf("load into %s: %w", req.Target, err))
		return
	}
	logging.FromContext(r.Context()).Info("data loaded",
		"target", req.Target, "table", req.Table, "mode", mode, "rows", n)
	writeJSON(w, http.StatusOK, loadResponse{Target: req.Target, Table: req.Table, Mode: mode, Rows: n})
}

// handleExport streams the current table as a download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	format, err := store.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	orient := store.Orient(r.URL.Query().Get("orient"))
	if orient != "" && orient != store.OrientRecords && orient != store.OrientColumns {
		s.fail(w, r, fmt.Errorf("%s: orient must be records or columns", invalidRequest))
		return
	}

	filename := exportName(sess.Source(), format)
	var buf bytes.Buffer
	if _, err := s.exporter.Export(&buf, sess.Current(), store.ExportOptions{
		Format:      format,
		Orient:      orient,
		Destination: filename,
	}); err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Error("write export", "error", err)
	}
}

func (s *Server) handleExportHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.exporter.History())
}

// exportName derives a download name from the session source, e.g.
// "orders.csv" exported as JSON becomes "orders_cleaned.json".
func exportName(source string, f store.Format) string {
	base := path.Base(source)
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ' || r == '.':
			return '_'
		default:
			return -1
		}
	}, base)
	if base == "" || base == "_" {
		base = "flowforge"
	}
	return base + "_cleaned." + string(f)
}
