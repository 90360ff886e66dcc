package errors

import (
	stderrors "errors"
	"fmt"
)

// LinkmapError is the structured error type for linkmap.
// It carries a stable code so surfaces (CLI, MCP) can map it without
// string matching.
type LinkmapError struct {
	// Code is the unique error code (e.g., "ERR_401_INVALID_PARAMETER").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Validation, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *LinkmapError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *LinkmapError) Unwrap() error {
	return e.Cause
}

// Is matches another LinkmapError by code, so errors.Is works against
// the sentinel values below.
func (e *LinkmapError) Is(target error) bool {
	if t, ok := target.(*LinkmapError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *LinkmapError) WithDetail(key, value string) *LinkmapError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *LinkmapError) WithSuggestion(suggestion string) *LinkmapError {
	e.Suggestion = suggestion
	return e
}

// Sentinels for errors.Is checks. Only the code is compared.
var (
	ErrInvalidParameter      = &LinkmapError{Code: ErrCodeInvalidParameter}
	ErrInvalidPattern        = &LinkmapError{Code: ErrCodeInvalidPattern}
	ErrDimensionMismatch     = &LinkmapError{Code: ErrCodeDimensionMismatch}
	ErrNoEligibleItems       = &LinkmapError{Code: ErrCodeNoEligibleItems}
	ErrConvergenceNotReached = &LinkmapError{Code: ErrCodeConvergenceNotReached}
)

// New creates a new LinkmapError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *LinkmapError {
	return &LinkmapError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a LinkmapError from an existing error.
// The error's message becomes the LinkmapError message.
func Wrap(code string, err error) *LinkmapError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *LinkmapError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// StoreError creates a persistence error.
func StoreError(message string, cause error) *LinkmapError {
	return New(ErrCodeStoreFailed, message, cause)
}

// NetworkError creates a network-related error.
// Network errors are typically retryable.
func NetworkError(message string, cause error) *LinkmapError {
	return New(ErrCodeNetworkTimeout, message, cause)
}

// InvalidParameter creates an error for a rejected operation parameter.
func InvalidParameter(field, message string) *LinkmapError {
	return New(ErrCodeInvalidParameter, message, nil).WithDetail("field", field)
}

// InvalidPattern creates an error for a malformed exclusion pattern.
func InvalidPattern(pattern string, cause error) *LinkmapError {
	return New(ErrCodeInvalidPattern, fmt.Sprintf("invalid exclude pattern %q", pattern), cause).
		WithDetail("field", "exclude_regex").
		WithSuggestion("Use RE2 syntax, e.g. ^https?://[^/]+/(tag|author)/")
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *LinkmapError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var le *LinkmapError
	if stderrors.As(err, &le) {
		return le.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var le *LinkmapError
	if stderrors.As(err, &le) {
		return le.Severity == SeverityFatal
	}
	return false
}

// IsValidation reports whether err was caused by rejected input.
func IsValidation(err error) bool {
	return GetCategory(err) == CategoryValidation
}

// GetCode extracts the error code from a LinkmapError anywhere in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var le *LinkmapError
	if stderrors.As(err, &le) {
		return le.Code
	}
	return ""
}

// GetCategory extracts the category from a LinkmapError anywhere in the chain.
func GetCategory(err error) Category {
	var le *LinkmapError
	if stderrors.As(err, &le) {
		return le.Category
	}
	return ""
}
