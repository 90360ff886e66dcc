package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/linkmap/internal/config"
	"github.com/Aman-CERP/linkmap/internal/links"
	"github.com/Aman-CERP/linkmap/internal/ui"
)

// linkFlags holds the suggestion flags. Only flags set on the command line
// override the configuration.
type linkFlags struct {
	perItem         int
	minSim          float64
	maxItems        int
	fallback        bool
	exclude         string
	includeHomepage bool
	includeSamePath bool
	candidates      string
}

func (f *linkFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.perItem, "per-item", links.DefaultPerItem, "Suggestions per source page")
	cmd.Flags().Float64Var(&f.minSim, "min-sim", links.DefaultMinSim, "Minimum cosine similarity (0..1)")
	cmd.Flags().IntVar(&f.maxItems, "max-items", links.DefaultMaxItems, "Cap on source pages, 0 for no cap")
	cmd.Flags().BoolVar(&f.fallback, "fallback", false, "Suggest the best target of a page that has none above --min-sim")
	cmd.Flags().StringVar(&f.exclude, "exclude", "", "Regular expression of target URLs never suggested")
	cmd.Flags().BoolVar(&f.includeHomepage, "include-homepage", false, "Allow the homepage as a target")
	cmd.Flags().BoolVar(&f.includeSamePath, "include-same-path", false, "Allow targets with the source's path")
	cmd.Flags().StringVar(&f.candidates, "candidates", links.CandidatesExact, "Candidate search: exact or hnsw")
}

func (f *linkFlags) options(cmd *cobra.Command, cfg *config.Config) links.Options {
	opts := cfg.LinkOptions()
	flags := cmd.Flags()
	if flags.Changed("per-item") {
		opts.PerItem = f.perItem
	}
	if flags.Changed("min-sim") {
		opts.MinSim = f.minSim
	}
	if flags.Changed("max-items") {
		opts.MaxItems = f.maxItems
	}
	if flags.Changed("fallback") {
		opts.FallbackWhenEmpty = f.fallback
	}
	if flags.Changed("exclude") {
		opts.ExcludeRegex = f.exclude
	}
	if flags.Changed("include-homepage") {
		opts.SkipHomepage = !f.includeHomepage
	}
	if flags.Changed("include-same-path") {
		opts.SkipSamePath = !f.includeSamePath
	}
	if flags.Changed("candidates") {
		opts.Candidates = f.candidates
	}
	return opts
}

func newLinksCmd(g *globalOptions) *cobra.Command {
	var (
		domain string
		flags  linkFlags
	)

	cmd := &cobra.Command{
		Use:   "links",
		Short: "Suggest internal links between similar pages",
		Long: `Suggest internal links from each page to its most similar pages by
cosine similarity of their embeddings.

Targets are never the page itself, and by default never the homepage or a
page with the same path. --candidates hnsw searches an approximate
nearest-neighbor index instead of comparing every pair; it is faster on
large sites and may miss a few neighbors.`,
		Example: `  linkmap links --domain example.com --per-item 5 --min-sim 0.6
  linkmap links --domain example.com --exclude '/(tag|author)/' --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			res, err := a.svc.SuggestLinks(cmd.Context(), domain, flags.options(cmd, a.cfg))
			if err != nil {
				return err
			}
			return g.emit(cmd, res, func(r *ui.Renderer) { r.Links(res) })
		},
	}

	domainFlag(cmd, &domain)
	flags.register(cmd)

	return cmd
}
