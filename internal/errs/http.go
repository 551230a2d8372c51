package errs

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// FieldError represents a field-level validation error (typical for forms).
// Example:
//
//	{ "field": "email", "message": "must be a valid email address" }
type FieldError struct {
	// Field is the field name/key the error relates to (e.g. "email").
	Field string `json:"field"`

	// Message is the human-readable error message.
	Message string `json:"message"`
}

// Kind tags an HTTPError with one of the error categories the API knows about.
//
// The set is closed: code outside this package never invents new kinds,
// it picks a constructor from types.go instead.
type Kind string

const (
	// KindClientInput covers bad or missing input: failed validation,
	// missing upload files, malformed JSON, invalid identifiers.
	KindClientInput Kind = "CLIENT_INPUT"

	// KindNotFound is a client error for resources or routes that do not exist.
	KindNotFound Kind = "NOT_FOUND"

	// KindServerIO covers filesystem and database failures.
	KindServerIO Kind = "SERVER_IO"

	// KindConfiguration is raised during startup when required configuration
	// is missing. It never reaches an HTTP client: the process exits instead.
	KindConfiguration Kind = "CONFIGURATION"

	// KindCORSRejection is returned when the request Origin is not allowed.
	KindCORSRejection Kind = "CORS_REJECTION"
)

// HTTPError is the main custom error type for API responses.
//
// It implements the `error` interface via Error().
// Fields:
//   - Kind: error category from the closed set above.
//   - Code: machine-friendly error code (e.g. "BAD_REQUEST").
//   - Message: human-friendly message, safe for clients.
//   - Status: HTTP status code.
//   - Errors: list of per-field errors (validation).
//   - Detail: the underlying error text, exposed as "error" for I/O failures.
//
// The unexported cause keeps the original error and its stack trace.
type HTTPError struct {
	Kind    Kind
	Code    string
	Message string
	Status  int

	// Errors holds field-level validation errors, typically for form inputs.
	Errors []FieldError

	// Detail is the raw error text of the cause when the kind exposes it.
	Detail string

	// publicDetail replaces Detail in production. File paths are stripped.
	publicDetail string

	cause error
}

// Error makes *HTTPError satisfy the built-in `error` interface.
//
// It returns the safe Message, so printing the error never leaks the cause.
// Use Unwrap or Stack to reach the underlying failure.
func (e *HTTPError) Error() string {
	return e.Message
}

// Unwrap exposes the cause to errors.Is / errors.As.
func (e *HTTPError) Unwrap() error {
	return e.cause
}

// Is reports whether target is also an *HTTPError of the same kind.
//
// A target with an empty Kind matches every HTTPError, so
// `errors.Is(err, &errs.HTTPError{})` asks "is this an API error at all".
func (e *HTTPError) Is(target error) bool {
	t, ok := target.(*HTTPError)
	if !ok {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

// StackTrace returns the stack recorded when the error (or its cause) was created.
// zerolog's pkgerrors marshaler picks this up for `.Stack()` log events.
func (e *HTTPError) StackTrace() errors.StackTrace {
	type stackTracer interface {
		StackTrace() errors.StackTrace
	}

	var st stackTracer
	if errors.As(e.cause, &st) {
		return st.StackTrace()
	}
	return nil
}

// Stack renders the cause together with its stack trace (`%+v`).
// Returns an empty string if the error has no cause.
func (e *HTTPError) Stack() string {
	if e.cause == nil {
		return ""
	}
	return fmt.Sprintf("%+v", e.cause)
}

// MakeUpperCaseWithUnderscores converts a string into an UPPER_CASE_WITH_UNDERSCORES format.
//
// Example:
//
//	"Bad Request" -> "BAD_REQUEST"
func MakeUpperCaseWithUnderscores(str string) string {
	return strings.ToUpper(strings.ReplaceAll(str, " ", "_"))
}
