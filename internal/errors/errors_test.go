package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkmapError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := stderrors.New("disk I/O error")

	// When: wrapping it
	le := New(ErrCodeStoreFailed, "failed to commit clusters", originalErr)

	// Then: the chain is preserved
	assert.Equal(t, originalErr, stderrors.Unwrap(le))
	assert.True(t, stderrors.Is(le, originalErr))
}

func TestLinkmapError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{"config", ErrCodeConfigInvalid, "bad config", "[ERR_102_CONFIG_INVALID] bad config"},
		{"parameter", ErrCodeInvalidParameter, "k must be >= 1", "[ERR_401_INVALID_PARAMETER] k must be >= 1"},
		{"pattern", ErrCodeInvalidPattern, "bad regex", "[ERR_403_INVALID_PATTERN] bad regex"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, New(tt.code, tt.message, nil).Error())
		})
	}
}

func TestLinkmapError_Is_MatchesSentinelByCode(t *testing.T) {
	// Given: an invalid-pattern error wrapped with fmt
	err := fmt.Errorf("suggest links: %w", InvalidPattern("([", nil))

	// Then: it matches its sentinel and no other
	assert.True(t, stderrors.Is(err, ErrInvalidPattern))
	assert.False(t, stderrors.Is(err, ErrInvalidParameter))
	assert.True(t, IsValidation(err))
	assert.Equal(t, ErrCodeInvalidPattern, GetCode(err))
}

func TestCategoryAndSeverity_DerivedFromCode(t *testing.T) {
	tests := []struct {
		code     string
		category Category
		severity Severity
	}{
		{ErrCodeConfigNotFound, CategoryConfig, SeverityError},
		{ErrCodeStoreCorrupt, CategoryIO, SeverityFatal},
		{ErrCodeNetworkTimeout, CategoryNetwork, SeverityWarning},
		{ErrCodeNoEligibleItems, CategoryValidation, SeverityWarning},
		{ErrCodeConvergenceNotReached, CategoryValidation, SeverityWarning},
		{ErrCodeInvalidParameter, CategoryValidation, SeverityError},
		{ErrCodeInternal, CategoryInternal, SeverityError},
		{"BAD", CategoryInternal, SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			e := New(tt.code, "msg", nil)
			assert.Equal(t, tt.category, e.Category)
			assert.Equal(t, tt.severity, e.Severity)
		})
	}
}

func TestInvalidParameter_CarriesField(t *testing.T) {
	// When: creating a parameter error
	err := InvalidParameter("per_item", "per_item must be at least 1")

	// Then: the field is recorded as a detail
	assert.Equal(t, "per_item", err.Details["field"])
	assert.False(t, IsRetryable(err))
	assert.False(t, IsFatal(err))
}

func TestFormatForCLI_IncludesDetailsHintAndCode(t *testing.T) {
	// Given: a pattern error with suggestion
	err := InvalidPattern("([", stderrors.New("missing closing )"))

	// When: formatting for CLI
	out := FormatForCLI(err)

	// Then: all parts appear
	assert.Contains(t, out, "Error: invalid exclude pattern")
	assert.Contains(t, out, "field: exclude_regex")
	assert.Contains(t, out, "Hint:")
	assert.Contains(t, out, "Code: ERR_403_INVALID_PATTERN")
}

func TestFormatForCLI_WrapsPlainErrors(t *testing.T) {
	out := FormatForCLI(stderrors.New("boom"))

	assert.Contains(t, out, "Error: boom")
	assert.Contains(t, out, ErrCodeInternal)
	assert.Empty(t, FormatForCLI(nil))
}

func TestFormatJSON_RoundTripsFields(t *testing.T) {
	// Given: a store error with a cause
	err := StoreError("commit failed", stderrors.New("locked"))

	// When: encoding
	data, jerr := FormatJSON(err)
	require.NoError(t, jerr)

	// Then: fields are present
	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, ErrCodeStoreFailed, parsed["code"])
	assert.Equal(t, "IO", parsed["category"])
	assert.Equal(t, "locked", parsed["cause"])
}

func TestFormatForLog_PlainAndStructured(t *testing.T) {
	plain := FormatForLog(stderrors.New("x"))
	assert.Equal(t, "x", plain["error"])

	structured := FormatForLog(InvalidParameter("k", "k must be >= 1"))
	assert.Equal(t, ErrCodeInvalidParameter, structured["error_code"])
	assert.Equal(t, "k", structured["detail_field"])
}

func TestRetryWithResult_RetriesRetryableErrors(t *testing.T) {
	// Given: a function failing twice with a network error
	calls := 0
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}

	// When: retrying
	got, err := RetryWithResult(context.Background(), cfg, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, NetworkError("timeout", nil)
		}
		return 42, nil
	})

	// Then: the third attempt succeeds
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsOnNonRetryableError(t *testing.T) {
	calls := 0
	cfg := RetryConfig{MaxRetries: 5, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}

	err := Retry(context.Background(), cfg, func() error {
		calls++
		return InvalidParameter("k", "bad")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, stderrors.Is(err, ErrInvalidParameter))
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	cfg := RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}

	err := Retry(context.Background(), cfg, func() error {
		calls++
		return NetworkError("down", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "failed after 2 retries")
}

func TestRetry_RespectsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, DefaultRetryConfig(), func() error { return nil })

	assert.ErrorIs(t, err, context.Canceled)
}
