package transform

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies why an operation failed.
type ErrorKind int

const (
	// ErrValidation: a referenced column is absent or parameters are malformed.
	ErrValidation ErrorKind = iota + 1
	// ErrParse: an expression, pattern or value could not be parsed or coerced.
	ErrParse
	// ErrPartial: some columns of a conversion failed while others succeeded.
	ErrPartial
	// ErrEmptyInput: the table has no rows or no columns.
	ErrEmptyInput
	// ErrInternal: the operation panicked.
	ErrInternal
)

func (k ErrorKind) String() string {
	switch k {
	case ErrValidation:
		return "validation"
	case ErrParse:
		return "parse"
	case ErrPartial:
		return "partial"
	case ErrEmptyInput:
		return "empty_input"
	case ErrInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// OpError describes a failed (or partially failed) operation.
type OpError struct {
	Op      OperationKind
	Kind    ErrorKind
	Msg     string
	Missing []string
	Err     error
}

func (e *OpError) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" || e.Kind == ErrPartial || e.Kind == ErrEmptyInput {
		return msg
	}
	return fmt.Sprintf("Error %s: %s", e.Op.action(), msg)
}

func (e *OpError) Unwrap() error { return e.Err }

// KindOf returns the ErrorKind of err, or 0 when err is not an *OpError.
func KindOf(err error) ErrorKind {
	var op *OpError
	if errors.As(err, &op) {
		return op.Kind
	}
	return 0
}

func validationf(format string, args ...any) *OpError {
	return &OpError{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func parseErr(err error, format string, args ...any) *OpError {
	return &OpError{Kind: ErrParse, Msg: fmt.Sprintf(format, args...), Err: err}
}

func missingColumns(missing []string) *OpError {
	msg := fmt.Sprintf("Columns not found: %s", strings.Join(missing, ", "))
	if len(missing) == 1 {
		msg = fmt.Sprintf("Column '%s' not found", missing[0])
	}
	return &OpError{Kind: ErrValidation, Msg: msg, Missing: missing}
}
