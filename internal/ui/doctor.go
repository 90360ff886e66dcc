package ui

import "github.com/Aman-CERP/linkmap/internal/preflight"

// Doctor renders preflight results and the overall verdict.
func (r *Renderer) Doctor(results []preflight.CheckResult) {
	r.header("linkmap doctor")
	for _, res := range results {
		var mark string
		switch res.Status {
		case preflight.StatusPass:
			mark = r.styles.Success.Render("✓")
		case preflight.StatusWarn:
			mark = r.styles.Warning.Render("!")
		default:
			mark = r.styles.Error.Render("✗")
		}
		r.printf("  %s %-18s %s\n", mark, res.Name, res.Message)
		if res.Details != "" {
			r.printf("    %s\n", r.styles.Dim.Render(res.Details))
		}
	}

	r.printf("\n")
	switch preflight.SummaryStatus(results) {
	case "failed":
		r.printf("  %s\n", r.styles.Error.Render("Not ready: fix the failed checks above."))
	case "ready_with_warnings":
		r.printf("  %s\n", r.styles.Warning.Render("Ready, with warnings."))
	default:
		r.printf("  %s\n", r.styles.Success.Render("Ready."))
	}
}
