// Package errors provides structured error handling for linkmap.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (store, files)
//   - 3XX: Network errors
//   - 4XX: Validation and data-quality errors
//   - 5XX: Internal errors
package errors

// Category groups codes by the subsystem that failed.
type Category string

const (
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates store and file I/O errors.
	CategoryIO Category = "IO"
	// CategoryNetwork covers the embedding server.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates rejected parameters or unusable input data.
	CategoryValidation Category = "VALIDATION"
	CategoryInternal Category = "INTERNAL"
)

// Severity says whether the caller can carry on.
type Severity string

const (
	// SeverityFatal aborts the command.
	SeverityFatal Severity = "FATAL"
	// SeverityError fails one operation.
	SeverityError Severity = "ERROR"
	// SeverityWarning means the result is degraded but usable.
	SeverityWarning Severity = "WARNING"
	SeverityInfo Severity = "INFO"
)

// Error codes. The hundreds digit selects the category.
const (
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	ErrCodeFileNotFound   = "ERR_201_FILE_NOT_FOUND"
	ErrCodeStoreFailed    = "ERR_202_STORE_FAILED"
	ErrCodeStoreCorrupt   = "ERR_203_STORE_CORRUPT"
	ErrCodeLockFailed     = "ERR_204_LOCK_FAILED"
	ErrCodeInputMalformed = "ERR_205_INPUT_MALFORMED"

	ErrCodeNetworkTimeout     = "ERR_301_NETWORK_TIMEOUT"
	ErrCodeNetworkUnavailable = "ERR_302_NETWORK_UNAVAILABLE"

	ErrCodeInvalidParameter      = "ERR_401_INVALID_PARAMETER"
	ErrCodeDimensionMismatch     = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeInvalidPattern        = "ERR_403_INVALID_PATTERN"
	ErrCodeNoEligibleItems       = "ERR_404_NO_ELIGIBLE_ITEMS"
	ErrCodeConvergenceNotReached = "ERR_405_CONVERGENCE_NOT_REACHED"

	ErrCodeInternal        = "ERR_501_INTERNAL"
	ErrCodeEmbeddingFailed = "ERR_502_EMBEDDING_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// "101" from "ERR_101_CONFIG_NOT_FOUND"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeStoreCorrupt:
		return SeverityFatal
	case ErrCodeNoEligibleItems, ErrCodeConvergenceNotReached, ErrCodeDimensionMismatch:
		// Partial-data conditions degrade the result, they never abort it
		return SeverityWarning
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeNetworkTimeout, ErrCodeNetworkUnavailable, ErrCodeLockFailed:
		return true
	default:
		return false
	}
}
