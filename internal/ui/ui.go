// Package ui renders analysis results for the terminal, either as styled
// text or as indented JSON.
package ui

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}

// ColorEnabled reports whether output to w should be styled.
func ColorEnabled(w io.Writer, noColor bool) bool {
	return !noColor && !DetectNoColor() && !DetectCI() && IsTTY(w)
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// sparkChars are the eight block heights used by Spark.
var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Spark renders values as a row of block characters scaled to the largest
// value. Non-positive values render as the lowest block.
func Spark(values []float64) string {
	maxValue := 0.0
	for _, v := range values {
		if v > maxValue {
			maxValue = v
		}
	}

	var sb strings.Builder
	sb.Grow(len(values) * 3)
	for _, v := range values {
		idx := 0
		if maxValue > 0 && v > 0 {
			idx = int(v / maxValue * float64(len(sparkChars)-1))
			idx = min(max(idx, 0), len(sparkChars)-1)
		}
		sb.WriteRune(sparkChars[idx])
	}
	return sb.String()
}
