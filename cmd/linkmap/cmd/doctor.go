package cmd

import (
	"github.com/spf13/cobra"

	lmerrors "github.com/Aman-CERP/linkmap/internal/errors"
	"github.com/Aman-CERP/linkmap/internal/preflight"
	"github.com/Aman-CERP/linkmap/internal/ui"
)

type doctorReport struct {
	Status string                  `json:"status"`
	Checks []preflight.CheckResult `json:"checks"`
}

func newDoctorCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the store, lock directory and embedder are usable",
		Long: `Run preflight checks against the current configuration: free disk space
and write access where the store lives, that the store opens, that lock
files can be created, and that the embedder answers a test request.

Exits non-zero when a required check fails. An unreachable embedder is a
warning, since pages may be ingested with their own embeddings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			results := preflight.New(cfg).RunAll(cmd.Context())
			report := doctorReport{Status: preflight.SummaryStatus(results), Checks: results}
			if err := g.emit(cmd, report, func(r *ui.Renderer) { r.Doctor(results) }); err != nil {
				return err
			}
			if preflight.HasCriticalFailures(results) {
				return lmerrors.New(lmerrors.ErrCodeInternal, "preflight checks failed", nil).
					WithSuggestion("Fix the failed checks reported by 'linkmap doctor'.")
			}
			return nil
		},
	}
}
