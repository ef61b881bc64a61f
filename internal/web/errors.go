package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is:
//   - logged with its technical detail and the request and session IDs
//   - mapped through MapError to a coded user message
//   - rendered as an HTMX fragment, JSON or plain text depending on the client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/JonMunkholm/flowforge/internal/logging"
	"github.com/JonMunkholm/flowforge/internal/session"
	"github.com/JonMunkholm/flowforge/internal/store"
	"github.com/JonMunkholm/flowforge/internal/table"
	"github.com/JonMunkholm/flowforge/internal/transform"
)

var (
	errNoFile              = errors.New("no file provided")
	errSourceNotConfigured = errors.New("data source not configured")
)

// invalidRequest prefixes request decoding and validation errors.
const invalidRequest = "invalid request"

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	var op *transform.OpError
	var mismatch *store.CountMismatchError
	var upstream *store.APIStatusError
	var netErr net.Error

	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrTooManySessions), errors.Is(err, session.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.Is(err, errSourceNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, store.ErrTableExists):
		return http.StatusConflict
	case errors.Is(err, store.ErrEmptyTable), errors.Is(err, table.ErrEmptyCSV), errors.Is(err, table.ErrEmptyJSON),
		errors.Is(err, errNoFile):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrHostNotAllowed):
		return http.StatusForbidden
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return http.StatusGatewayTimeout
	case errors.As(err, &mismatch):
		return http.StatusInternalServerError
	case errors.As(err, &op):
		switch op.Kind {
		case transform.ErrInternal:
			return http.StatusInternalServerError
		case transform.ErrEmptyInput:
			return http.StatusConflict
		default:
			return http.StatusUnprocessableEntity
		}
	}
	msg := err.Error()
	if strings.Contains(msg, "api response exceeds") {
		return http.StatusBadGateway
	}
	if strings.Contains(msg, invalidRequest) || strings.Contains(msg, "invalid csv") || strings.Contains(msg, "invalid json") ||
		strings.Contains(msg, "fields, header has") || strings.Contains(msg, "unsupported format") ||
		strings.Contains(msg, "unknown save mode") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// fail is respondError with the status chosen by statusFor.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.respondError(w, r, err, statusFor(err))
}

// respondError logs the technical error and writes the user message in the
// format the client asked for.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := MapError(err)

	logger := logging.FromContext(r.Context())
	log := logger.Warn
	if statusCode >= http.StatusInternalServerError {
		log = logger.Error
	}
	log("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, userMsg, statusCode)
	case wantsJSON(r):
		writeJSON(w, statusCode, ErrorResponse{
			Error:   userMsg.Message,
			Message: userMsg.Message,
			Action:  userMsg.Action,
			Code:    userMsg.Code,
		})
	default:
		http.Error(w, userMsg.Message+" ("+userMsg.Code+")", statusCode)
	}
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := ErrorAlert(msg).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render error alert", "error", err)
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers JSON response.
// API routes default to JSON.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json") ||
		strings.HasPrefix(r.URL.Path, "/api/")
}
