package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/linkmap/internal/cluster"
	"github.com/Aman-CERP/linkmap/internal/config"
	"github.com/Aman-CERP/linkmap/internal/ui"
)

func newClustersCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clusters",
		Short: "Group a domain's pages into topic clusters",
		Long: `Group a domain's pages into topic clusters with k-means over their
embeddings.

'preview' computes clusters without saving anything; 'commit' saves each
page's cluster id and resets the ids of pages left out of the run; 'clear'
resets every id; 'status' counts what is stored.`,
	}

	cmd.AddCommand(newClustersPreviewCmd(g))
	cmd.AddCommand(newClustersCommitCmd(g))
	cmd.AddCommand(newClustersClearCmd(g))
	cmd.AddCommand(newClustersStatusCmd(g))

	return cmd
}

// clusterFlags holds the k-means flags. Only flags set on the command line
// override the configuration.
type clusterFlags struct {
	k        int
	seed     int64
	maxItems int
	maxIter  int
	metric   string
}

func (f *clusterFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.k, "k", "k", cluster.DefaultK, "Requested number of clusters")
	cmd.Flags().Int64Var(&f.seed, "seed", cluster.DefaultSeed, "Random seed")
	cmd.Flags().IntVar(&f.maxItems, "max-items", 0, "Cap on pages clustered, 0 for no cap")
	cmd.Flags().IntVar(&f.maxIter, "max-iter", cluster.DefaultMaxIter, "Maximum k-means iterations")
	cmd.Flags().StringVar(&f.metric, "metric", cluster.MetricCosine, "Distance metric: cosine or euclidean")
}

func (f *clusterFlags) options(cmd *cobra.Command, cfg *config.Config, preview bool) cluster.Options {
	opts := cfg.ClusterOptions(preview)
	flags := cmd.Flags()
	if flags.Changed("k") {
		opts.K = f.k
	}
	if flags.Changed("seed") {
		opts.Seed = f.seed
	}
	if flags.Changed("max-items") {
		opts.MaxItems = f.maxItems
	}
	if flags.Changed("max-iter") {
		opts.MaxIter = f.maxIter
	}
	if flags.Changed("metric") {
		opts.Metric = f.metric
	}
	return opts
}

func newClustersPreviewCmd(g *globalOptions) *cobra.Command {
	var (
		domain string
		top    int
		flags  clusterFlags
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Compute clusters without saving them",
		Example: `  linkmap clusters preview --domain example.com -k 12 --top 3
  linkmap clusters preview --domain example.com --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			res, err := a.svc.PreviewClusters(cmd.Context(), domain, flags.options(cmd, a.cfg, true), top)
			if err != nil {
				return err
			}
			return g.emit(cmd, res, func(r *ui.Renderer) { r.Preview(res) })
		},
	}

	domainFlag(cmd, &domain)
	flags.register(cmd)
	cmd.Flags().IntVar(&top, "top", 5, "Pages listed per cluster (at most 50)")

	return cmd
}

func newClustersCommitCmd(g *globalOptions) *cobra.Command {
	var (
		domain string
		flags  clusterFlags
	)

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Compute clusters and save each page's cluster id",
		Long: `Compute clusters and save each page's cluster id in one transaction.

Pages without a usable embedding, or beyond --max-items, have a stale id
reset. Committing again with the same parameters changes nothing. When no
page is eligible, nothing is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			res, err := a.svc.CommitClusters(cmd.Context(), domain, flags.options(cmd, a.cfg, false))
			if err != nil {
				return err
			}
			return g.emit(cmd, res, func(r *ui.Renderer) { r.Commit(res) })
		},
	}

	domainFlag(cmd, &domain)
	flags.register(cmd)

	return cmd
}

func newClustersClearCmd(g *globalOptions) *cobra.Command {
	var domain string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Reset every cluster id of a domain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			res, err := a.svc.ClearClusters(cmd.Context(), domain)
			if err != nil {
				return err
			}
			return g.emit(cmd, res, func(r *ui.Renderer) { r.Clear(res) })
		},
	}

	domainFlag(cmd, &domain)

	return cmd
}

func newClustersStatusCmd(g *globalOptions) *cobra.Command {
	var domain string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Count pages, embeddings and cluster ids of a domain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			res, err := a.svc.Status(cmd.Context(), domain)
			if err != nil {
				return err
			}
			return g.emit(cmd, res, func(r *ui.Renderer) { r.Status(res) })
		},
	}

	domainFlag(cmd, &domain)

	return cmd
}
