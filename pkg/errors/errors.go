package errors

import "fmt"

// ErrorType classifies failures so callers can decide how to react.
type ErrorType string

const (
	ErrorTypeInvalidArgument ErrorType = "invalid_argument"
	ErrorTypeScrape          ErrorType = "scrape"
	ErrorTypeNetwork         ErrorType = "network"
	ErrorTypeParsing         ErrorType = "parsing"
	ErrorTypeCache           ErrorType = "cache"
	ErrorTypeUnknown         ErrorType = "unknown"
)

// Error is a typed error carrying an optional wrapped cause.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error without a cause.
func New(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Wrap creates a typed error around an underlying cause.
func Wrap(t ErrorType, message string, err error) *Error {
	return &Error{Type: t, Message: message, Err: err}
}

// InvalidArgument is the failure returned before any I/O or background work
// when a caller passes unusable input, such as an empty username.
func InvalidArgument(message string) *Error {
	return New(ErrorTypeInvalidArgument, message)
}

// IsRetryable checks if an error type is worth retrying.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork:
		return true
	case ErrorTypeInvalidArgument, ErrorTypeParsing, ErrorTypeCache:
		return false
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error.
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
