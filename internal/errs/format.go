package errs

import (
	"net/http"

	"github.com/pkg/errors"
)

// MaskedStack replaces stack traces in responses when running in production.
const MaskedStack = "[redacted]"

// Response is the JSON envelope written for every failed request.
type Response struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Status  int          `json:"status"`
	Errors  []FieldError `json:"errors,omitempty"`
	Error   string       `json:"error,omitempty"`
	Stack   string       `json:"stack"`
}

// ResolveStatus escalates a missing or success status to 500.
//
// An error that never set an explicit status is still an error, so it must
// not go out as 200.
func ResolveStatus(status int) int {
	if status == 0 || status < http.StatusBadRequest {
		return http.StatusInternalServerError
	}
	return status
}

// From returns err as an *HTTPError, classifying anything unknown as a
// generic internal server error.
func From(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return NewInternalServerError(err)
}

// Format builds the response envelope for e.
//
// In production the stack is always MaskedStack and the error detail is
// reduced to its innermost failure. Otherwise the stack is the cause
// rendered with its trace.
func Format(e *HTTPError, production bool) Response {
	status := ResolveStatus(e.Status)

	code := e.Code
	if code == "" {
		code = statusCode(status)
	}

	stack := MaskedStack
	detail := e.publicDetail
	if !production {
		stack = e.Stack()
		detail = e.Detail
	}

	return Response{
		Code:    code,
		Message: e.Message,
		Status:  status,
		Errors:  e.Errors,
		Error:   detail,
		Stack:   stack,
	}
}
