// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Every API handler sends JSON back to the client. Rather than repeating
// the same three lines (set header, set status, encode JSON) in every
// handler, we centralise them here.
//
// Consistent response shapes also make life easier for API consumers —
// they always know what error and warning responses look like.
package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ─────────────────────────────────────────────────────────────────────────────
// Response is the standard envelope returned for non-success cases.
//
// Success responses may return any JSON shape (a student, a list, a
// summary…). Everything else looks like:
//
//	{ "status": "error",   "error": "Please enter the student's name" }
//	{ "status": "warning", "error": "Student must be marked paid before deletion" }
//
// A warning is a business rule turning the request down; nothing is
// wrong with the request or the server.
// ─────────────────────────────────────────────────────────────────────────────
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Status string constants — use these instead of raw string literals so
// a typo is caught by the compiler rather than silently sending "eroor".
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusWarning = "warning"
)

// ─────────────────────────────────────────────────────────────────────────────
// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
// Once WriteHeader is called (or the first Write), headers are locked.
// ─────────────────────────────────────────────────────────────────────────────
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// GeneralError wraps any Go error into our standard Response shape.
// Use this for bad input and unexpected errors (storage failures,
// decode errors, etc.)
func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

// Warning wraps a rejected business rule.
func Warning(err error) Response {
	return Response{
		Status: StatusWarning,
		Error:  err.Error(),
	}
}

// OK is the body of a request that has nothing else to return.
func OK() Response {
	return Response{Status: StatusOK}
}

// ─────────────────────────────────────────────────────────────────────────────
// ValidationError converts the validator.FieldError values of one failed
// Struct call into a single human-readable Response.
//
// Each FieldError becomes a plain English sentence; the sentences are
// joined with ", " so the reader sees one error string:
//
//	{ "status": "error", "error": "field storage_path is required, field total_policy must be one of: guarded, legacy" }
//
// e.Field() is whatever name the validator was told to report. The config
// loader reports YAML keys, so the messages point at the config file.
// ─────────────────────────────────────────────────────────────────────────────
func ValidationError(errs validator.ValidationErrors) Response {
	var errMessages []string

	for _, e := range errs {
		switch e.ActualTag() {
		case "required", "required_unless":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is required", e.Field()))
		case "oneof":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be one of: %s", e.Field(),
					strings.Join(strings.Fields(e.Param()), ", ")))
		case "min":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be at least %s characters long", e.Field(), e.Param()))
		// Catch-all for any other validation tag (gte, max, len, etc.)
		default:
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}

	return Response{
		Status: StatusError,
		Error:  strings.Join(errMessages, ", "),
	}
}
