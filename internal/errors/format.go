package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// FormatForCLI formats an error for terminal output.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	le := asLinkmapError(err)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", le.Message))

	if len(le.Details) > 0 {
		keys := make([]string, 0, len(le.Details))
		for k := range le.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", k, le.Details[k]))
		}
	}

	if le.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", le.Suggestion))
	}

	sb.WriteString(fmt.Sprintf("  Code: %s\n", le.Code))

	return sb.String()
}

// jsonError is the JSON representation of an error.
type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	Retryable  bool              `json:"retryable"`
}

// FormatJSON returns a JSON representation of the error.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	le := asLinkmapError(err)
	je := jsonError{
		Code:       le.Code,
		Message:    le.Message,
		Category:   string(le.Category),
		Severity:   string(le.Severity),
		Details:    le.Details,
		Suggestion: le.Suggestion,
		Retryable:  le.Retryable,
	}
	if le.Cause != nil {
		je.Cause = le.Cause.Error()
	}

	return json.Marshal(je)
}

// FormatForLog formats an error as slog-friendly key-value pairs.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	var le *LinkmapError
	if !stderrors.As(err, &le) {
		return map[string]any{"error": err.Error()}
	}

	result := map[string]any{
		"error_code": le.Code,
		"message":    le.Message,
		"category":   string(le.Category),
		"severity":   string(le.Severity),
		"retryable":  le.Retryable,
	}
	if le.Cause != nil {
		result["cause"] = le.Cause.Error()
	}
	if le.Suggestion != "" {
		result["suggestion"] = le.Suggestion
	}
	for k, v := range le.Details {
		result["detail_"+k] = v
	}

	return result
}

func asLinkmapError(err error) *LinkmapError {
	var le *LinkmapError
	if stderrors.As(err, &le) {
		return le
	}
	return Wrap(ErrCodeInternal, err)
}
