package web

// error_messages.go maps technical errors to messages a user can act on.
// Every message carries a code the user can quote when asking for help.
//
// # Operation Errors (VAL, PRS, PRT, EMP)
//
// Transform operations report *transform.OpError values. These are mapped
// by kind before any pattern matching, and the operation's own message is
// shown since it already names the column or parameter at fault:
//
//	VAL001 - Validation: a column is missing or a parameter is malformed
//	PRS001 - Parse: an expression, pattern or value could not be parsed
//	PRT001 - Partial: some columns converted, others failed
//	EMP001 - Empty input: no data to summarize or export
//	ERR001 - Internal: the operation crashed; the table is unchanged
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session not found
//	SES002 - Too many active sessions
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - Invalid CSV
//	FILE003 - Encoding error
//	FILE004 - No file provided
//	FILE005 - Empty file
//	FILE006 - Invalid JSON
//	FILE007 - JSON with no records
//	FILE008 - Unsupported CSV delimiter
//
// # API Extract Errors (API001-API099)
//
//	API001 - Upstream returned a non-2xx status
//	API002 - Host not in EXTRACT_API_ALLOWED_HOSTS
//	API003 - Response larger than EXTRACT_API_MAX_BYTES
//	API004 - Upstream returned no records
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - Too many uploads in progress
//	UPL004 - Request cancelled
//	UPL005 - Request timed out
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request body failed validation
//	REQ002 - Unsupported export format or save mode
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key
//	DB002 - Unique constraint
//	DB004 - Connection refused
//	DB006 - Timeout
//	DB008 - Target table exists
//	DB009 - Row count did not verify after load
//	DB010 - Data source not configured
//	DB011 - SQL error in an extract query
//
// # Rate Limiting (RATE001)
//
// # Default Error (ERR000)
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/flowforge/internal/transform"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var opActions = map[transform.ErrorKind]UserMessage{
	transform.ErrValidation: {Action: "Check the column names and parameters", Code: "VAL001"},
	transform.ErrParse:      {Action: "Check the expression, pattern or value syntax", Code: "PRS001"},
	transform.ErrPartial:    {Action: "Review the columns that failed to convert", Code: "PRT001"},
	transform.ErrEmptyInput: {Action: "Load data before continuing", Code: "EMP001"},
	transform.ErrInternal:   {Action: "Your data is unchanged. Please report this error", Code: "ERR001"},
}

var errorPatterns = []errorPattern{
	// Sessions
	{"session not found", UserMessage{"Session not found", "The session may have expired. Please start a new session", "SES001"}},
	{"too many active sessions", UserMessage{"Too many active sessions", "Close an unused session and try again", "SES002"}},

	// API extract
	{"api returned status", UserMessage{"The API returned an error", "Check the URL, headers and params, then try again", "API001"}},
	{"api host not allowed", UserMessage{"That API host is not allowed", "Ask an administrator to add it to EXTRACT_API_ALLOWED_HOSTS", "API002"}},
	{"api response exceeds", UserMessage{"The API response is too large", "Narrow the request with params such as a page size", "API003"}},
	{"api returned empty data", UserMessage{"The API returned no records", "Check the URL and params", "API004"}},

	// Files
	{"request body too large", UserMessage{"File exceeds maximum size limit", "Split the file into smaller chunks", "FILE001"}},
	{"file too large", UserMessage{"File exceeds maximum size limit", "Split the file into smaller chunks", "FILE001"}},
	{"invalid csv", UserMessage{"File is not a valid CSV", "Ensure the header row has unique, non-blank names", "FILE002"}},
	{"fields, header has", UserMessage{"File is not a valid CSV", "Ensure every row has the same number of columns as the header", "FILE002"}},
	{"encoding error", UserMessage{"File contains invalid characters", "Save file as UTF-8 encoding", "FILE003"}},
	{"no file provided", UserMessage{"No file was selected", "Please select a CSV file to upload", "FILE004"}},
	{"csv file is empty", UserMessage{"The uploaded file is empty", "Please upload a CSV file with data rows", "FILE005"}},
	{"invalid json", UserMessage{"File is not valid JSON", "Upload an array of objects or a single object", "FILE006"}},
	{"json contains no records", UserMessage{"The JSON document has no records", "Upload an array with at least one object", "FILE007"}},
	{"invalid delimiter", UserMessage{"Unsupported CSV delimiter", "Use a single character such as , ; | or tab", "FILE008"}},

	// Uploads
	{"too many concurrent uploads", UserMessage{"System is busy processing other uploads", "Please wait a moment and try again", "UPL002"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "UPL004"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try a smaller file or a narrower query", "UPL005"}},

	// Requests
	{"invalid request", UserMessage{"The request is missing or has invalid fields", "Check the request body against the API reference", "REQ001"}},
	{"unsupported format", UserMessage{"Unsupported export format", "Use csv, json or ndjson", "REQ002"}},
	{"unknown save mode", UserMessage{"Unknown save mode", "Use fail, replace or append", "REQ002"}},

	// Database
	{"duplicate key", UserMessage{"A record with this ID already exists", "Remove duplicates before loading", "DB001"}},
	{"unique constraint", UserMessage{"This value must be unique but already exists", "Remove duplicates before loading", "DB002"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"timeout", UserMessage{"Operation timed out", "Try again later", "DB006"}},
	{"target table already exists", UserMessage{"The target table already exists", "Choose replace or append mode, or another table name", "DB008"}},
	{"row count mismatch", UserMessage{"The load could not be verified", "Check the target table and try again", "DB009"}},
	{"not configured", UserMessage{"That data source is not configured", "Set DATABASE_URL or MYSQL_DSN on the server", "DB010"}},
	{"syntax error", UserMessage{"The SQL query could not be run", "Check the query syntax", "DB011"}},

	// Rate limiting
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Operation errors map by kind; anything else goes through the pattern
// table, falling back to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ue *UserError
	if errors.As(err, &ue) {
		return ue.User
	}

	var op *transform.OpError
	if errors.As(err, &op) {
		if m, ok := opActions[op.Kind]; ok {
			m.Message = op.Error()
			return m
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error, kept for logging, with the message
// shown to the user.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError creates a UserError by mapping a technical error to a
// user-friendly message. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
