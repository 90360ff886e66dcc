package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/Aman-CERP/linkmap/internal/cluster"
	"github.com/Aman-CERP/linkmap/internal/graph"
	"github.com/Aman-CERP/linkmap/internal/service"
)

// Renderer writes human-readable results.
type Renderer struct {
	out    io.Writer
	styles Styles
}

// NewRenderer creates a renderer. Colors are used only when enabled.
func NewRenderer(out io.Writer, noColor bool) *Renderer {
	return &Renderer{out: out, styles: GetStyles(noColor)}
}

func (r *Renderer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

func (r *Renderer) header(title string) {
	r.printf("%s\n\n", r.styles.Header.Render(title))
}

func (r *Renderer) warn(msg string) {
	r.printf("  %s\n", r.styles.Warning.Render("! "+msg))
}

// Ingest renders an ingest summary.
func (r *Renderer) Ingest(res *service.IngestResult) {
	r.header("Ingested: " + res.Domain)
	r.printf("  Items:    %d\n", res.Items)
	r.printf("  Embedded: %d\n", res.Embedded)
	r.printf("  Links:    %d (from %d pages)\n", res.Links, res.Pages)
}

// Status renders the clustering status of a domain.
func (r *Renderer) Status(res *service.StatusResult) {
	r.header("Cluster Status: " + res.Domain)
	r.printf("  Items:           %d\n", res.TotalItems)
	r.printf("  With embeddings: %d\n", res.TotalWithEmbeddings)
	r.printf("  With cluster id: %d\n", res.TotalWithClusterID)
	r.printf("  Clusters:        %d\n", res.DistinctClusters)
	if res.EmbeddingDim > 0 {
		r.printf("  Dimension:       %d\n", res.EmbeddingDim)
	}
	switch {
	case res.TotalItems == 0:
		r.printf("\n  %s\n", r.styles.Dim.Render("no items stored"))
	case res.TotalWithClusterID == 0:
		r.printf("\n  %s\n", r.styles.Label.Render("not clustered"))
	default:
		r.printf("\n  %s\n", r.styles.Success.Render("clustered"))
	}
}

// Preview renders a cluster preview with its summaries.
func (r *Renderer) Preview(p *service.ClusterPreview) {
	r.header("Cluster Preview: " + p.Domain)
	if r.clusterWarnings(p.Result) {
		return
	}
	r.clusterStats(p.Result)

	for _, c := range p.Clusters {
		r.printf("\n  %s %s\n",
			r.styles.Accent.Render(fmt.Sprintf("Cluster %d", c.Cluster)),
			r.styles.Label.Render(fmt.Sprintf("(%d pages)", c.Size)))
		for _, m := range c.Top {
			title := m.Title
			if title == "" {
				title = m.URL
			}
			r.printf("    %.3f  %s\n", m.Score, title)
		}
	}
}

// Commit renders a commit result.
func (r *Renderer) Commit(c *service.CommitResult) {
	r.header("Clusters Committed: " + c.Domain)
	if r.clusterWarnings(c.Result) {
		return
	}
	r.clusterStats(c.Result)
	r.printf("  Updated:    %d of %d with embeddings\n", c.Updated, c.TotalWithEmbeddings)
	if c.Reset > 0 {
		r.printf("  Reset:      %d\n", c.Reset)
	}
}

// Clear renders a clear result.
func (r *Renderer) Clear(c *service.ClearResult) {
	r.header("Clusters Cleared: " + c.Domain)
	r.printf("  Cleared: %d\n", c.Cleared)
}

func (r *Renderer) clusterWarnings(res *cluster.Result) bool {
	if res.NoEligibleItems {
		r.warn(fmt.Sprintf("no eligible items (%d excluded)", res.Excluded.Total()))
		return true
	}
	if !res.Converged {
		r.warn(fmt.Sprintf("k-means stopped after %d iterations without converging", res.Iterations))
	}
	return false
}

func (r *Renderer) clusterStats(res *cluster.Result) {
	sizes := make([]float64, len(res.Sizes))
	for i, s := range res.Sizes {
		sizes[i] = float64(s)
	}
	r.printf("  Clusters:   %d  %s\n", res.KEffective, r.styles.Success.Render(Spark(sizes)))
	r.printf("  Eligible:   %d (dimension %d)\n", res.Eligible, res.Dimension)
	if n := res.Excluded.Total(); n > 0 {
		r.printf("  Excluded:   %d\n", n)
	}
	r.printf("  Iterations: %d\n", res.Iterations)
}

// Topics renders topic labels.
func (r *Renderer) Topics(t *service.TopicsResult) {
	r.header(fmt.Sprintf("Topics: %s (%s)", t.Domain, t.Source))
	if len(t.Labels) == 0 {
		r.warn("no clusters to label")
		return
	}
	for _, l := range t.Labels {
		terms := make([]string, len(l.Terms))
		for i, term := range l.Terms {
			terms[i] = term.Term
		}
		r.printf("  %s %s\n",
			r.styles.Accent.Render(fmt.Sprintf("Cluster %d", l.Cluster)),
			r.styles.Label.Render(fmt.Sprintf("(%d pages)", l.Documents)))
		r.printf("    %s\n", strings.Join(terms, ", "))
		for _, s := range l.Samples {
			r.printf("    %s\n", r.styles.Dim.Render("- "+s))
		}
	}
}

// Links renders link suggestions grouped by source.
func (r *Renderer) Links(s *service.SuggestResult) {
	r.header("Link Suggestions: " + s.Domain)
	if s.Sources == 0 {
		r.warn(fmt.Sprintf("no eligible items (%d excluded)", s.Excluded.Total()))
		return
	}
	current := ""
	for _, sg := range s.Suggestions {
		if sg.SourceURL != current {
			current = sg.SourceURL
			r.printf("\n  %s\n", r.styles.Accent.Render(current))
		}
		r.printf("    %d. %.3f  %s\n", sg.Rank, sg.Score, sg.TargetURL)
	}
	r.printf("\n  Sources: %d, suggestions: %d, without suggestions: %d\n",
		s.Sources, len(s.Suggestions), len(s.EmptySources))
}

// Graph renders graph statistics and the top pages by PageRank.
func (r *Renderer) Graph(g *graph.Graph, top int) {
	r.header(fmt.Sprintf("Link Graph (%s)", g.Meta.Source))
	r.printf("  Nodes:   %d\n", g.Meta.Nodes)
	r.printf("  Edges:   %d\n", g.Meta.Edges)
	r.printf("  Orphans: %d\n", g.Meta.Orphans)
	if dropped := g.Meta.DroppedDuplicates + g.Meta.DroppedSelfLoops + g.Meta.DroppedUnresolved; dropped > 0 {
		r.printf("  Dropped: %d (duplicates %d, self-loops %d, unresolved %d)\n", dropped,
			g.Meta.DroppedDuplicates, g.Meta.DroppedSelfLoops, g.Meta.DroppedUnresolved)
	}
	if !g.Meta.PageRankConverged {
		r.warn(fmt.Sprintf("PageRank stopped after %d iterations without converging", g.Meta.PageRankIterations))
	}
	if !g.Meta.HITSConverged {
		r.warn(fmt.Sprintf("HITS stopped after %d iterations without converging", g.Meta.HITSIterations))
	}
	if len(g.Nodes) == 0 || top <= 0 {
		return
	}

	nodes := graph.TopByPageRank(g.Nodes, top)
	r.printf("\n  %s\n", r.styles.Label.Render("pagerank  authority  hub     in  out  url"))
	for _, n := range nodes {
		m := n.Metrics
		r.printf("  %.5f   %.5f    %.5f %3d %4d  %s\n", m.PageRank, m.Authority, m.Hub, m.DegreeIn, m.DegreeOut, n.URL)
	}
}
