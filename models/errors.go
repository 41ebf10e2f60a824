package models

import "fmt"

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInvalidURL  = "INVALID_URL"
	ErrCodeRateLimited = "RATE_LIMITED"
	ErrCodeBlocked     = "BLOCKED"
	ErrCodeTimeout     = "EXTRACTION_TIMEOUT"
	ErrCodeExhausted   = "ALL_STRATEGIES_FAILED"
	ErrCodeNetwork     = "NETWORK_ERROR"
	ErrCodeInternal    = "INTERNAL_ERROR"
)

// Coarse failure classification tags emitted at the collaborator boundary.
// They are hints for the caller's own logging, nothing more.
const (
	TagTimeout      = "timeout"
	TagBlocked      = "blocked"
	TagNetworkError = "network_error"
	TagParseError   = "parse_error"
	TagUnknown      = "unknown"
)

// ExtractError is the internal error type carrying a stable code, a
// coarse classification tag, and the wrapped cause. It implements the
// error interface and supports error wrapping via Unwrap.
type ExtractError struct {
	Code    string
	Tag     string
	Message string

	// RetryAfter is set only for ErrCodeRateLimited, in whole seconds.
	RetryAfter int

	Err error
}

func (e *ExtractError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// NewExtractError creates a new ExtractError.
func NewExtractError(code, tag, message string, err error) *ExtractError {
	return &ExtractError{Code: code, Tag: tag, Message: message, Err: err}
}
