package errs

import (
	"io/fs"
	"net/http"
	"os"

	"github.com/pkg/errors"
)

// withStack makes sure the cause carries a stack trace.
// If there is no cause, one is created from the message at the call site.
func withStack(message string, cause error) error {
	if cause == nil {
		return errors.New(message)
	}
	return errors.WithStack(cause)
}

func statusCode(status int) string {
	return MakeUpperCaseWithUnderscores(http.StatusText(status))
}

// NewBadRequestError creates a 400 Bad Request HTTPError of kind KindClientInput.
//
// This supports extra payload:
//   - code: optional custom code string (if nil, defaults to "BAD_REQUEST")
//   - fieldErrors: optional slice of field errors (validation errors)
func NewBadRequestError(message string, code *string, fieldErrors []FieldError) *HTTPError {
	formattedCode := statusCode(http.StatusBadRequest)
	if code != nil {
		formattedCode = *code
	}

	return &HTTPError{
		Kind:    KindClientInput,
		Code:    formattedCode,
		Message: message,
		Status:  http.StatusBadRequest,
		Errors:  fieldErrors,
		cause:   withStack(message, nil),
	}
}

// NewValidationError wraps an ordered list of field violations into a 400.
func NewValidationError(fieldErrors []FieldError) *HTTPError {
	code := "VALIDATION_FAILED"
	return NewBadRequestError("Validation failed", &code, fieldErrors)
}

// NewNotFoundError creates a 404 Not Found HTTPError.
//
// Supports optional custom code override similar to NewBadRequestError.
func NewNotFoundError(message string, code *string) *HTTPError {
	formattedCode := statusCode(http.StatusNotFound)
	if code != nil {
		formattedCode = *code
	}

	return &HTTPError{
		Kind:    KindNotFound,
		Code:    formattedCode,
		Message: message,
		Status:  http.StatusNotFound,
		cause:   withStack(message, nil),
	}
}

// NewServerIOError creates a 500 for a filesystem or database failure.
//
// The cause's text is exposed as Detail ("error" in the JSON body) so
// operators can tell what broke. In production only the innermost failure
// is shown, without the paths it touched; the stack trace is masked like
// every other error.
func NewServerIOError(message string, cause error) *HTTPError {
	e := &HTTPError{
		Kind:    KindServerIO,
		Code:    statusCode(http.StatusInternalServerError),
		Message: message,
		Status:  http.StatusInternalServerError,
		cause:   withStack(message, cause),
	}
	if cause != nil {
		e.Detail = cause.Error()
		e.publicDetail = baseDetail(cause)
	}
	return e
}

// baseDetail reduces cause to its innermost error.
//
//	`creating upload directory "/srv/up": mkdir /srv/up: permission denied` -> "mkdir: permission denied"
func baseDetail(cause error) string {
	var pathErr *fs.PathError
	if errors.As(cause, &pathErr) {
		return pathErr.Op + ": " + pathErr.Err.Error()
	}
	var linkErr *os.LinkError
	if errors.As(cause, &linkErr) {
		return linkErr.Op + ": " + linkErr.Err.Error()
	}

	for {
		next := errors.Unwrap(cause)
		if next == nil {
			return cause.Error()
		}
		cause = next
	}
}

// NewInternalServerError creates a generic 500 for errors nobody classified.
//
// The message is the generic status text, not the cause's message.
func NewInternalServerError(cause error) *HTTPError {
	message := http.StatusText(http.StatusInternalServerError)
	return &HTTPError{
		Kind:    KindServerIO,
		Code:    statusCode(http.StatusInternalServerError),
		Message: message,
		Status:  http.StatusInternalServerError,
		cause:   withStack(message, cause),
	}
}

// NewConfigurationError reports missing or invalid startup configuration.
//
// Status is 0: there is no HTTP response for this kind, the process exits.
func NewConfigurationError(message string, cause error) *HTTPError {
	return &HTTPError{
		Kind:    KindConfiguration,
		Code:    "CONFIGURATION_ERROR",
		Message: message,
		cause:   withStack(message, cause),
	}
}

// NewCORSRejection creates a 403 for a request whose Origin is not allow-listed.
func NewCORSRejection(origin string) *HTTPError {
	message := "Not allowed by CORS"
	return &HTTPError{
		Kind:    KindCORSRejection,
		Code:    "CORS_REJECTED",
		Message: message,
		Status:  http.StatusForbidden,
		cause:   errors.Errorf("origin %q is not in the allow-list", origin),
	}
}
