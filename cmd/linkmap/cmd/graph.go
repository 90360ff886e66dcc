package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	lmerrors "github.com/Aman-CERP/linkmap/internal/errors"
	"github.com/Aman-CERP/linkmap/internal/graph"
	"github.com/Aman-CERP/linkmap/internal/service"
	"github.com/Aman-CERP/linkmap/internal/ui"
)

// graphFlags holds the metric flags shared by graph and graph recompute.
type graphFlags struct {
	damping float64
	maxIter int
	tol     float64
	top     int
	out     string
}

func (f *graphFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.damping, "damping", graph.DefaultDamping, "PageRank damping factor")
	cmd.Flags().IntVar(&f.maxIter, "max-iter", graph.DefaultMaxIter, "Maximum PageRank and HITS iterations")
	cmd.Flags().Float64Var(&f.tol, "tol", graph.DefaultTol, "Convergence tolerance")
	cmd.Flags().IntVar(&f.top, "top", 10, "Pages listed by PageRank")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Write the full graph as JSON to this file")
}

func (f *graphFlags) config(cmd *cobra.Command, base graph.Config) graph.Config {
	cfg := base
	flags := cmd.Flags()
	if flags.Changed("damping") {
		cfg.Damping = f.damping
	}
	if flags.Changed("max-iter") {
		cfg.MaxIter = f.maxIter
	}
	if flags.Changed("tol") {
		cfg.Tol = f.tol
	}
	return cfg
}

// write saves g to --out when set, then prints it as JSON or a summary.
func (f *graphFlags) write(cmd *cobra.Command, g *globalOptions, gr *graph.Graph) error {
	if f.out != "" {
		if err := writeGraphFile(f.out, gr); err != nil {
			return err
		}
	}
	return g.emit(cmd, gr, func(r *ui.Renderer) {
		r.Graph(gr, f.top)
		if f.out != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "\n  Graph written to %s\n", f.out)
		}
	})
}

func newGraphCmd(g *globalOptions) *cobra.Command {
	var (
		domain          string
		fromSuggestions bool
		flags           graphFlags
		suggest         linkFlags
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Build the internal link graph with PageRank and HITS",
		Long: `Build a domain's internal link graph and score every page with in and
out degree, PageRank, and HITS hub and authority.

Edges come from the links stored at ingest, or with --from-suggestions from
fresh link suggestions (the links flags apply). Links to unknown pages,
self-links and repeated links are dropped and counted. Pages without links
stay in the graph.`,
		Example: `  linkmap graph --domain example.com --top 20
  linkmap graph --domain example.com --from-suggestions --per-item 5 -o graph.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			req := service.GraphRequest{
				Config:          flags.config(cmd, a.cfg.Graph),
				FromSuggestions: fromSuggestions,
				Links:           suggest.options(cmd, a.cfg),
			}
			gr, err := a.svc.BuildGraph(cmd.Context(), domain, req)
			if err != nil {
				return err
			}
			return flags.write(cmd, g, gr)
		},
	}

	domainFlag(cmd, &domain)
	cmd.Flags().BoolVar(&fromSuggestions, "from-suggestions", false, "Build edges from link suggestions")
	flags.register(cmd)
	suggest.register(cmd)
	cmd.AddCommand(newGraphRecomputeCmd(g))

	return cmd
}

func newGraphRecomputeCmd(g *globalOptions) *cobra.Command {
	var flags graphFlags

	cmd := &cobra.Command{
		Use:   "recompute FILE",
		Short: "Recompute the metrics of a saved graph",
		Long: `Read a graph written by 'linkmap graph --out' and recompute degree,
PageRank and HITS with the given parameters. Edges that reference unknown
nodes are dropped.`,
		Example: `  linkmap graph recompute graph.json --damping 0.9 -o graph-090.json`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readGraphFile(args[0])
			if err != nil {
				return err
			}
			a, err := g.open()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			gr, err := a.svc.RecomputeMetrics(cmd.Context(), in, flags.config(cmd, a.cfg.Graph))
			if err != nil {
				return err
			}
			return flags.write(cmd, g, gr)
		},
	}

	flags.register(cmd)

	return cmd
}

func readGraphFile(path string) (*graph.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, lmerrors.New(lmerrors.ErrCodeFileNotFound, fmt.Sprintf("cannot read %s", path), err)
	}
	var gr graph.Graph
	if err := json.Unmarshal(data, &gr); err != nil {
		return nil, lmerrors.New(lmerrors.ErrCodeInputMalformed, fmt.Sprintf("%s is not a graph file", path), err)
	}
	return &gr, nil
}

func writeGraphFile(path string, gr *graph.Graph) error {
	data, err := json.MarshalIndent(gr, "", "  ")
	if err != nil {
		return lmerrors.InternalError("failed to encode graph", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return lmerrors.StoreError(fmt.Sprintf("cannot write %s", path), err)
	}
	return nil
}
