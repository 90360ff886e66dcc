package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/linkmap/internal/service"
	"github.com/Aman-CERP/linkmap/internal/topics"
	"github.com/Aman-CERP/linkmap/internal/ui"
)

func newTopicsCmd(g *globalOptions) *cobra.Command {
	var (
		domain      string
		topN        int
		samples     int
		stopwords   []string
		noDedupe    bool
		minTermLen  int
		fromPreview bool
		previewFlags    clusterFlags
	)

	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Name each cluster by its most distinctive terms",
		Long: `Name each cluster by the terms that are frequent in it and rare in the
other clusters (TF-ICF), with a few sample page titles.

By default the committed cluster ids are labeled. With --preview a fresh
clustering is computed and labeled without saving it.`,
		Example: `  linkmap topics --domain example.com
  linkmap topics --domain example.com --preview -k 6 --stopword guide`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			req := service.TopicsRequest{Options: a.cfg.TopicOptions()}
			flags := cmd.Flags()
			if flags.Changed("top-n") {
				req.Options.TopN = topN
			}
			if flags.Changed("samples") {
				req.Options.SamplesPerCluster = samples
			}
			if len(stopwords) > 0 {
				req.Options.StopwordsExtra = append(append([]string(nil), req.Options.StopwordsExtra...), stopwords...)
			}
			if noDedupe {
				req.Options.DedupeSubstrings = false
			}
			if flags.Changed("min-term-length") {
				req.Options.MinTermLength = minTermLen
			}
			if fromPreview {
				opts := previewFlags.options(cmd, a.cfg, true)
				req.Preview = &opts
			}

			res, err := a.svc.LabelTopics(cmd.Context(), domain, req)
			if err != nil {
				return err
			}
			return g.emit(cmd, res, func(r *ui.Renderer) { r.Topics(res) })
		},
	}

	domainFlag(cmd, &domain)
	cmd.Flags().IntVar(&topN, "top-n", topics.DefaultTopN, "Terms per cluster")
	cmd.Flags().IntVar(&samples, "samples", topics.DefaultSamplesPerCluster, "Sample titles per cluster")
	cmd.Flags().StringSliceVar(&stopwords, "stopword", nil, "Additional word never used as a label (repeatable)")
	cmd.Flags().BoolVar(&noDedupe, "no-dedupe", false, "Keep terms contained in a better scoring term")
	cmd.Flags().IntVar(&minTermLen, "min-term-length", topics.DefaultMinTermLength, "Shortest term considered")
	cmd.Flags().BoolVar(&fromPreview, "preview", false, "Label a fresh preview instead of the committed clusters")
	previewFlags.register(cmd)

	return cmd
}
