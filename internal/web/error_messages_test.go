package web

import (
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/flowforge/internal/session"
	"github.com/JonMunkholm/flowforge/internal/store"
	"github.com/JonMunkholm/flowforge/internal/table"
	"github.com/JonMunkholm/flowforge/internal/transform"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name: "nil error returns empty",
		},
		{
			name:        "validation op error shows its own message",
			err:         &transform.OpError{Op: transform.OpFilterData, Kind: transform.ErrValidation, Msg: "Column 'x' not found"},
			wantCode:    "VAL001",
			wantMessage: "Error filtering data: Column 'x' not found",
		},
		{
			name:        "wrapped parse op error",
			err:         fmt.Errorf("step 2: %w", &transform.OpError{Op: transform.OpCreateColumn, Kind: transform.ErrParse, Msg: "unexpected ')'"}),
			wantCode:    "PRS001",
			wantMessage: "Error creating calculated column: unexpected ')'",
		},
		{
			name:        "partial conversion",
			err:         &transform.OpError{Op: transform.OpConvertTypes, Kind: transform.ErrPartial, Msg: "Failed to convert: b"},
			wantCode:    "PRT001",
			wantMessage: "Failed to convert: b",
		},
		{
			name:        "empty input",
			err:         &transform.OpError{Kind: transform.ErrEmptyInput, Msg: "No data to summarize"},
			wantCode:    "EMP001",
			wantMessage: "No data to summarize",
		},
		{
			name:        "session not found",
			err:         session.ErrSessionNotFound,
			wantCode:    "SES001",
			wantMessage: "Session not found",
		},
		{
			name:        "too many sessions",
			err:         session.ErrTooManySessions,
			wantCode:    "SES002",
			wantMessage: "Too many active sessions",
		},
		{
			name:        "body too large",
			err:         errors.New("http: request body too large"),
			wantCode:    "FILE001",
			wantMessage: "File exceeds maximum size limit",
		},
		{
			name:        "bad header",
			err:         errors.New("invalid csv header: duplicate header 'a'"),
			wantCode:    "FILE002",
			wantMessage: "File is not a valid CSV",
		},
		{
			name:        "empty csv",
			err:         table.ErrEmptyCSV,
			wantCode:    "FILE005",
			wantMessage: "The uploaded file is empty",
		},
		{
			name:        "invalid json",
			err:         errors.New("invalid json: record 2 is not an object"),
			wantCode:    "FILE006",
			wantMessage: "File is not valid JSON",
		},
		{
			name:        "empty json",
			err:         table.ErrEmptyJSON,
			wantCode:    "FILE007",
			wantMessage: "The JSON document has no records",
		},
		{
			name:        "delimiter before generic invalid request",
			err:         errors.New(`invalid request: invalid delimiter ";;"`),
			wantCode:    "FILE008",
			wantMessage: "Unsupported CSV delimiter",
		},
		{
			name:        "api status",
			err:         fmt.Errorf("extract from api: %w", &store.APIStatusError{StatusCode: 404, Status: "404 Not Found"}),
			wantCode:    "API001",
			wantMessage: "The API returned an error",
		},
		{
			name:        "api host",
			err:         fmt.Errorf("%w: evil.example.net", store.ErrHostNotAllowed),
			wantCode:    "API002",
			wantMessage: "That API host is not allowed",
		},
		{
			name:        "api size cap before invalid json",
			err:         errors.New("invalid json: api response exceeds 64 bytes"),
			wantCode:    "API003",
			wantMessage: "The API response is too large",
		},
		{
			name:        "api empty before json empty",
			err:         fmt.Errorf("api returned empty data: %w", table.ErrEmptyJSON),
			wantCode:    "API004",
			wantMessage: "The API returned no records",
		},
		{
			name:        "no file",
			err:         errNoFile,
			wantCode:    "FILE004",
			wantMessage: "No file was selected",
		},
		{
			name:        "upload slots exhausted",
			err:         session.ErrTooManyUploads,
			wantCode:    "UPL002",
			wantMessage: "System is busy processing other uploads",
		},
		{
			name:        "deadline before generic timeout",
			err:         errors.New("context deadline exceeded (timeout)"),
			wantCode:    "UPL005",
			wantMessage: "Request timed out",
		},
		{
			name:        "duplicate key",
			err:         errors.New("ERROR: duplicate key value violates unique constraint"),
			wantCode:    "DB001",
			wantMessage: "A record with this ID already exists",
		},
		{
			name:        "connection refused",
			err:         errors.New("dial tcp 127.0.0.1:5432: connection refused"),
			wantCode:    "DB004",
			wantMessage: "Unable to connect to database",
		},
		{
			name:        "table exists",
			err:         fmt.Errorf("load into postgres: %w: orders", store.ErrTableExists),
			wantCode:    "DB008",
			wantMessage: "The target table already exists",
		},
		{
			name:        "count mismatch",
			err:         &store.CountMismatchError{Table: "orders", Expected: 3, Got: 2},
			wantCode:    "DB009",
			wantMessage: "The load could not be verified",
		},
		{
			name:        "source not configured",
			err:         fmt.Errorf("mysql: %w", errSourceNotConfigured),
			wantCode:    "DB010",
			wantMessage: "That data source is not configured",
		},
		{
			name:        "invalid request",
			err:         errors.New("invalid request: source is required"),
			wantCode:    "REQ001",
			wantMessage: "The request is missing or has invalid fields",
		},
		{
			name:        "unsupported export format",
			err:         errors.New("unsupported format: xml"),
			wantCode:    "REQ002",
			wantMessage: "Unsupported export format",
		},
		{
			name:        "rate limit",
			err:         errRateLimited,
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error falls back",
			err:         errors.New("something odd"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
	got := FormatUserError(session.ErrSessionNotFound)
	want := "Session not found (Code: SES001). The session may have expired. Please start a new session"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("IsUserFacing(nil) = true, want false")
	}
	if IsUserFacing(errors.New("weird")) {
		t.Error("IsUserFacing(unknown) = true, want false")
	}
	if !IsUserFacing(table.ErrEmptyCSV) {
		t.Error("IsUserFacing(ErrEmptyCSV) = false, want true")
	}
}

func TestNewUserError(t *testing.T) {
	if NewUserError(nil) != nil {
		t.Fatal("NewUserError(nil) should be nil")
	}
	tech := errors.New("dial tcp: connection refused")
	ue := NewUserError(tech)
	if ue.Error() != "Unable to connect to database" {
		t.Errorf("Error() = %q", ue.Error())
	}
	if !errors.Is(ue, tech) {
		t.Error("UserError should unwrap to the technical error")
	}
	if got := MapError(fmt.Errorf("wrapped: %w", ue)); got.Code != "DB004" {
		t.Errorf("MapError(wrapped UserError) code = %q, want DB004", got.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", session.ErrSessionNotFound, 404},
		{"too many sessions", session.ErrTooManySessions, 503},
		{"uploads busy", session.ErrTooManyUploads, 503},
		{"no source", fmt.Errorf("postgres: %w", errSourceNotConfigured), 503},
		{"exists", store.ErrTableExists, 409},
		{"empty csv", table.ErrEmptyCSV, 400},
		{"validation", &transform.OpError{Kind: transform.ErrValidation}, 422},
		{"empty input", &transform.OpError{Kind: transform.ErrEmptyInput}, 409},
		{"internal", &transform.OpError{Kind: transform.ErrInternal}, 500},
		{"invalid request", errors.New("invalid request: empty body"), 400},
		{"wrapped invalid request", fmt.Errorf("extract from text: %w", errors.New(`invalid request: invalid delimiter ";;"`)), 400},
		{"empty json", fmt.Errorf("api returned empty data: %w", table.ErrEmptyJSON), 400},
		{"invalid json", errors.New("invalid json: unexpected EOF"), 400},
		{"host not allowed", fmt.Errorf("%w: evil.example.net", store.ErrHostNotAllowed), 403},
		{"upstream status", &store.APIStatusError{StatusCode: 500, Status: "500 Internal Server Error"}, 502},
		{"upstream too large", errors.New("invalid json: api response exceeds 64 bytes"), 502},
		{"rate", errRateLimited, 429},
		{"unknown", errors.New("boom"), 500},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%s) = %d, want %d", tt.name, got, tt.want)
		}
	}
}
