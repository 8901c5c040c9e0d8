// Package werrors provides the coded error type used across the fetch and
// normalization pipeline. Every failure carries a stable machine-readable
// code, a human message, a retryable flag, and optional details.
package werrors

import (
	"errors"
	"fmt"
)

// Error codes. HTTP status failures use the dynamic form "HTTP_<status>"
// produced by HTTPCode.
const (
	// Input errors.
	CodeInvalidProtocol = "INVALID_PROTOCOL"
	CodeInvalidURL      = "INVALID_URL"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeInvalidRedirect = "INVALID_REDIRECT"

	// Policy errors.
	CodeSSRFBlocked   = "SSRF_BLOCKED"
	CodeRobotsBlocked = "ROBOTS_BLOCKED"
	CodeRateLimited   = "RATE_LIMITED"

	// Transport errors.
	CodeFetchError          = "FETCH_ERROR"
	CodeRedirectLoop        = "REDIRECT_LOOP"
	CodeTooManyRedirects    = "TOO_MANY_REDIRECTS"
	CodeUnsupportedEncoding = "UNSUPPORTED_ENCODING"
	CodeDecompressionFailed = "DECOMPRESSION_FAILED"
	CodeContentTooLarge     = "CONTENT_TOO_LARGE"

	// Extraction errors.
	CodeExtractionFailed = "EXTRACTION_FAILED"

	// Resource errors.
	CodeResourceNotFound = "RESOURCE_NOT_FOUND"

	// Internal errors.
	CodeUnexpectedError = "UNEXPECTED_ERROR"
	CodeToolError       = "TOOL_ERROR"
)

// Error is the structured error for pipeline failures.
type Error struct {
	Code      string
	Message   string
	Retryable bool
	Details   map[string]string
	Cause     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code so errors.Is works across wrapping.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail attaches a key-value detail and returns the error for chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates an Error with the given code and message.
func New(code, message string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Retryable: isRetryableCode(code),
	}
}

// Newf creates an Error with a formatted message.
func Newf(code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap creates an Error from an existing error, preserving it as the cause.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	e := New(code, err.Error())
	e.Cause = err
	return e
}

// HTTPCode returns the dynamic code for an HTTP status failure, "HTTP_404".
func HTTPCode(status int) string {
	return fmt.Sprintf("HTTP_%d", status)
}

// HTTPError creates the error for a final >= 400 response. Retryable iff the
// status is 429 or a 5xx.
func HTTPError(status int, url string) *Error {
	e := New(HTTPCode(status), fmt.Sprintf("request to %s failed with status %d", url, status))
	e.Retryable = status == 429 || status >= 500
	return e
}

// CodeOf extracts the code from an error chain. Returns empty string when no
// coded error is present.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsRetryable reports whether the error indicates a transient condition.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// isRetryableCode derives the default retryable flag for static codes.
// Policy and input errors are never retryable; generic transport failures are.
func isRetryableCode(code string) bool {
	switch code {
	case CodeFetchError:
		return true
	default:
		return false
	}
}
