package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// maxJSONBody bounds JSON request bodies. Uploads have their own limit.
const maxJSONBody = 1 << 20

// ExtractRequest pulls data into the session. Database sources take a
// query, the api source a URL with optional headers and params, and the
// text source pasted CSV with an optional delimiter.
type ExtractRequest struct {
	Source    string            `json:"source" validate:"required,oneof=postgres mysql api text"`
	Query     string            `json:"query" validate:"required_if=Source postgres,required_if=Source mysql"`
	URL       string            `json:"url" validate:"required_if=Source api,max=2048"`
	Headers   map[string]string `json:"headers,omitempty"`
	Params    map[string]string `json:"params,omitempty"`
	Text      string            `json:"text" validate:"required_if=Source text"`
	Delimiter string            `json:"delimiter,omitempty"`
}

// LoadRequest writes the current table to a database.
type LoadRequest struct {
	Target string `json:"target" validate:"required,oneof=postgres mysql"`
	Table  string `json:"table" validate:"required,max=128"`
	Mode   string `json:"mode" validate:"omitempty,oneof=fail replace append"`
}

// OperationResponse reports one operation attempt.
type OperationResponse struct {
	Succeeded bool   `json:"succeeded"`
	Partial   bool   `json:"partial"`
	Message   string `json:"message"`
	Rows      int    `json:"rows"`
	Columns   int    `json:"columns"`
	Code      string `json:"code,omitempty"`
	Action    string `json:"action,omitempty"`
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a JSON body into dst and validates it when dst is a
// struct with validate tags. Unknown fields are rejected.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return s.decodeJSONLimit(w, r, dst, maxJSONBody)
}

// decodeJSONLimit is decodeJSON with a custom body limit.
func (s *Server) decodeJSONLimit(w http.ResponseWriter, r *http.Request, dst any, limit int64) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s: empty body", invalidRequest)
		}
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return fmt.Errorf("%s: %v", invalidRequest, err)
	}
	if reflect.Indirect(reflect.ValueOf(dst)).Kind() != reflect.Struct {
		return nil
	}
	if err := s.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError flattens validator errors into one message.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%s: %v", invalidRequest, err)
	}
	parts := make([]string, len(verrs))
	for i, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts[i] = fmt.Sprintf("%s is required", fe.Field())
		case "required_if":
			parts[i] = fmt.Sprintf("%s is required when %s", fe.Field(), requiredIfCondition(fe.Param()))
		case "oneof":
			parts[i] = fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
		case "max":
			parts[i] = fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
		default:
			parts[i] = fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
		}
	}
	return fmt.Errorf("%s: %s", invalidRequest, strings.Join(parts, "; "))
}

// requiredIfCondition renders a required_if param such as "Source api" as
// "source is api".
func requiredIfCondition(param string) string {
	field, value, _ := strings.Cut(param, " ")
	return fmt.Sprintf("%s is %s", strings.ToLower(field), value)
}
