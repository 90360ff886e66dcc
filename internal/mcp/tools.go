package mcp

import (
	"time"

	"github.com/Aman-CERP/linkmap/internal/cluster"
	"github.com/Aman-CERP/linkmap/internal/corpus"
	"github.com/Aman-CERP/linkmap/internal/graph"
	"github.com/Aman-CERP/linkmap/internal/links"
	"github.com/Aman-CERP/linkmap/internal/service"
	"github.com/Aman-CERP/linkmap/internal/topics"
)

// Omitted or null fields fall back to the server configuration.

// ClusterInput defines the input schema for commit_clusters.
type ClusterInput struct {
	Domain   string `json:"domain" jsonschema:"the site domain whose pages are clustered"`
	K        *int   `json:"k,omitempty" jsonschema:"requested number of clusters, capped by the number of eligible pages"`
	Seed     *int64 `json:"seed,omitempty" jsonschema:"random seed, the same seed gives the same clusters"`
	MaxItems *int   `json:"max_items,omitempty" jsonschema:"cap on pages clustered after sorting by id, 0 means no cap"`
	MaxIter  *int   `json:"max_iter,omitempty" jsonschema:"maximum k-means iterations"`
	Metric   string `json:"metric,omitempty" jsonschema:"distance metric: cosine or euclidean"`
}

// PreviewClustersInput defines the input schema for preview_clusters.
type PreviewClustersInput struct {
	Domain   string `json:"domain" jsonschema:"the site domain whose pages are clustered"`
	K        *int   `json:"k,omitempty" jsonschema:"requested number of clusters, capped by the number of eligible pages"`
	Seed     *int64 `json:"seed,omitempty" jsonschema:"random seed, the same seed gives the same clusters"`
	MaxItems *int   `json:"max_items,omitempty" jsonschema:"cap on pages clustered after sorting by id, 0 means no cap"`
	MaxIter  *int   `json:"max_iter,omitempty" jsonschema:"maximum k-means iterations"`
	Metric   string `json:"metric,omitempty" jsonschema:"distance metric: cosine or euclidean"`
	Top      int    `json:"top,omitempty" jsonschema:"pages listed per cluster, default 5, at most 50"`
}

func (in PreviewClustersInput) clusterInput() ClusterInput {
	return ClusterInput{
		Domain:   in.Domain,
		K:        in.K,
		Seed:     in.Seed,
		MaxItems: in.MaxItems,
		MaxIter:  in.MaxIter,
		Metric:   in.Metric,
	}
}

// DomainInput defines the input schema for tools that only need a domain.
type DomainInput struct {
	Domain string `json:"domain" jsonschema:"the site domain"`
}

// LabelTopicsInput defines the input schema for label_topics.
type LabelTopicsInput struct {
	Domain            string   `json:"domain" jsonschema:"the site domain whose clusters are labeled"`
	TopN              *int     `json:"top_n,omitempty" jsonschema:"terms per cluster"`
	SamplesPerCluster *int     `json:"samples_per_cluster,omitempty" jsonschema:"sample titles per cluster"`
	StopwordsExtra    []string `json:"stopwords_extra,omitempty" jsonschema:"additional words never used as labels"`
	DedupeSubstrings  *bool    `json:"dedupe_substrings,omitempty" jsonschema:"drop terms contained in a better scoring term"`
	FromPreview       bool     `json:"from_preview,omitempty" jsonschema:"label a fresh preview instead of the committed clusters"`
	K                 *int     `json:"k,omitempty" jsonschema:"number of clusters for the preview"`
}

// SuggestLinksInput defines the input schema for suggest_links.
type SuggestLinksInput struct {
	Domain            string   `json:"domain" jsonschema:"the site domain"`
	PerItem           *int     `json:"per_item,omitempty" jsonschema:"suggestions per source page"`
	MinSim            *float64 `json:"min_sim,omitempty" jsonschema:"minimum cosine similarity between 0 and 1"`
	MaxItems          *int     `json:"max_items,omitempty" jsonschema:"cap on source pages, 0 means no cap"`
	FallbackWhenEmpty *bool    `json:"fallback_when_empty,omitempty" jsonschema:"suggest the best target of a page that has none above min_sim"`
	ExcludeRegex      *string  `json:"exclude_regex,omitempty" jsonschema:"pattern of target URLs never suggested"`
	SkipHomepage      *bool    `json:"skip_homepage,omitempty" jsonschema:"never suggest the homepage"`
	SkipSamePath      *bool    `json:"skip_same_path,omitempty" jsonschema:"never suggest a page with the same path"`
	Candidates        string   `json:"candidates,omitempty" jsonschema:"candidate search: exact or hnsw"`
	Seed              *int64   `json:"seed,omitempty" jsonschema:"random seed for the hnsw index"`
}

// BuildGraphInput defines the input schema for build_graph.
type BuildGraphInput struct {
	Domain          string   `json:"domain" jsonschema:"the site domain"`
	FromSuggestions bool     `json:"from_suggestions,omitempty" jsonschema:"build edges from link suggestions instead of extracted links"`
	Damping         *float64 `json:"damping,omitempty" jsonschema:"PageRank damping factor between 0 and 1"`
	MaxIter         *int     `json:"max_iter,omitempty" jsonschema:"maximum PageRank and HITS iterations"`
	Tol             *float64 `json:"tol,omitempty" jsonschema:"convergence tolerance"`
	PerItem         *int     `json:"per_item,omitempty" jsonschema:"suggestions per page when from_suggestions is set"`
	MinSim          *float64 `json:"min_sim,omitempty" jsonschema:"minimum similarity when from_suggestions is set"`
	Top             int      `json:"top,omitempty" jsonschema:"return only the top pages by PageRank, 0 returns every node and edge"`
}

// ClusterRunOutput describes one k-means run.
type ClusterRunOutput struct {
	KEffective      int                  `json:"k_effective"`
	Eligible        int                  `json:"eligible"`
	Excluded        corpus.Exclusions    `json:"excluded"`
	EmbeddingDim    int                  `json:"embedding_dim"`
	Iterations      int                  `json:"iterations"`
	Converged       bool                 `json:"converged"`
	NoEligibleItems bool                 `json:"no_eligible_items"`
	Sizes           []int                `json:"sizes"`
	Assignments     []cluster.Assignment `json:"assignments"`
	Centroids       [][]float32          `json:"centroids"`
}

// PreviewClustersOutput defines the output schema for preview_clusters.
type PreviewClustersOutput struct {
	Domain   string                   `json:"domain"`
	Run      ClusterRunOutput         `json:"run"`
	Clusters []cluster.ClusterSummary `json:"clusters"`
}

// CommitClustersOutput defines the output schema for commit_clusters.
type CommitClustersOutput struct {
	Domain              string           `json:"domain"`
	Run                 ClusterRunOutput `json:"run"`
	Updated             int              `json:"updated"`
	Reset               int              `json:"reset"`
	TotalWithEmbeddings int              `json:"total_with_embeddings"`
}

// ClearClustersOutput defines the output schema for clear_clusters.
type ClearClustersOutput struct {
	Domain  string `json:"domain"`
	Cleared int    `json:"cleared"`
}

// ClusterStatusOutput defines the output schema for cluster_status.
type ClusterStatusOutput struct {
	Domain              string `json:"domain"`
	TotalItems          int    `json:"total_items"`
	TotalWithEmbeddings int    `json:"total_with_embeddings"`
	TotalWithClusterID  int    `json:"total_with_cluster_id"`
	DistinctClusters    int    `json:"distinct_clusters"`
	EmbeddingDim        int    `json:"embedding_dim"`
}

// LabelTopicsOutput defines the output schema for label_topics.
type LabelTopicsOutput struct {
	Domain string               `json:"domain"`
	Source string               `json:"source"`
	Labels []topics.ClusterLabel `json:"labels"`
}

// SuggestLinksOutput defines the output schema for suggest_links.
type SuggestLinksOutput struct {
	Domain          string             `json:"domain"`
	Suggestions     []links.Suggestion `json:"suggestions"`
	Sources         int                `json:"sources"`
	Excluded        corpus.Exclusions  `json:"excluded"`
	EmptySources    []string           `json:"empty_sources"`
	TargetsExcluded int                `json:"targets_excluded"`
}

// GraphMetaOutput is graph.Meta with the timestamp as RFC 3339 text.
type GraphMetaOutput struct {
	RunID              string  `json:"run_id"`
	GeneratedAt        string  `json:"generated_at"`
	Source             string  `json:"source"`
	Nodes              int     `json:"nodes"`
	Edges              int     `json:"edges"`
	Orphans            int     `json:"orphans"`
	DroppedDuplicates  int     `json:"dropped_duplicates"`
	DroppedSelfLoops   int     `json:"dropped_self_loops"`
	DroppedUnresolved  int     `json:"dropped_unresolved"`
	Damping            float64 `json:"damping"`
	MaxIter            int     `json:"max_iter"`
	Tol                float64 `json:"tol"`
	PageRankIterations int     `json:"pagerank_iterations"`
	PageRankConverged  bool    `json:"pagerank_converged"`
	HITSIterations     int     `json:"hits_iterations"`
	HITSConverged      bool    `json:"hits_converged"`
}

// BuildGraphOutput defines the output schema for build_graph. With top set,
// Nodes holds the best ranked pages and Edges only the edges among them.
type BuildGraphOutput struct {
	Domain string          `json:"domain"`
	Nodes  []graph.Node    `json:"nodes"`
	Edges  []graph.Edge    `json:"edges"`
	Meta   GraphMetaOutput `json:"meta"`
}

func toRunOutput(r *cluster.Result) ClusterRunOutput {
	out := ClusterRunOutput{
		KEffective:      r.KEffective,
		Eligible:        r.Eligible,
		Excluded:        r.Excluded,
		EmbeddingDim:    r.Dimension,
		Iterations:      r.Iterations,
		Converged:       r.Converged,
		NoEligibleItems: r.NoEligibleItems,
		Sizes:           r.Sizes,
		Assignments:     r.Assignments,
		Centroids:       r.Centroids,
	}
	if out.Sizes == nil {
		out.Sizes = []int{}
	}
	if out.Assignments == nil {
		out.Assignments = []cluster.Assignment{}
	}
	if out.Centroids == nil {
		out.Centroids = [][]float32{}
	}
	return out
}

func toPreviewOutput(p *service.ClusterPreview) PreviewClustersOutput {
	out := PreviewClustersOutput{
		Domain:   p.Domain,
		Run:      toRunOutput(p.Result),
		Clusters: p.Clusters,
	}
	if out.Clusters == nil {
		out.Clusters = []cluster.ClusterSummary{}
	}
	return out
}

func toCommitOutput(c *service.CommitResult) CommitClustersOutput {
	return CommitClustersOutput{
		Domain:              c.Domain,
		Run:                 toRunOutput(c.Result),
		Updated:             c.Updated,
		Reset:               c.Reset,
		TotalWithEmbeddings: c.TotalWithEmbeddings,
	}
}

func toStatusOutput(s *service.StatusResult) ClusterStatusOutput {
	return ClusterStatusOutput{
		Domain:              s.Domain,
		TotalItems:          s.TotalItems,
		TotalWithEmbeddings: s.TotalWithEmbeddings,
		TotalWithClusterID:  s.TotalWithClusterID,
		DistinctClusters:    s.DistinctClusters,
		EmbeddingDim:        s.EmbeddingDim,
	}
}

func toSuggestOutput(r *service.SuggestResult) SuggestLinksOutput {
	out := SuggestLinksOutput{
		Domain:          r.Domain,
		Suggestions:     r.Suggestions,
		Sources:         r.Sources,
		Excluded:        r.Excluded,
		EmptySources:    r.EmptySources,
		TargetsExcluded: r.TargetsExcluded,
	}
	if out.Suggestions == nil {
		out.Suggestions = []links.Suggestion{}
	}
	if out.EmptySources == nil {
		out.EmptySources = []string{}
	}
	return out
}

func toGraphOutput(domain string, g *graph.Graph, top int) BuildGraphOutput {
	m := g.Meta
	out := BuildGraphOutput{
		Domain: domain,
		Nodes:  g.Nodes,
		Edges:  g.Edges,
		Meta: GraphMetaOutput{
			RunID:              m.RunID,
			GeneratedAt:        m.GeneratedAt.UTC().Format(time.RFC3339),
			Source:             m.Source,
			Nodes:              m.Nodes,
			Edges:              m.Edges,
			Orphans:            m.Orphans,
			DroppedDuplicates:  m.DroppedDuplicates,
			DroppedSelfLoops:   m.DroppedSelfLoops,
			DroppedUnresolved:  m.DroppedUnresolved,
			Damping:            m.Damping,
			MaxIter:            m.MaxIter,
			Tol:                m.Tol,
			PageRankIterations: m.PageRankIterations,
			PageRankConverged:  m.PageRankConverged,
			HITSIterations:     m.HITSIterations,
			HITSConverged:      m.HITSConverged,
		},
	}
	if top > 0 && top < len(g.Nodes) {
		out.Nodes = graph.TopByPageRank(g.Nodes, top)
		keep := make(map[string]bool, len(out.Nodes))
		for _, n := range out.Nodes {
			keep[n.ID] = true
		}
		out.Edges = nil
		for _, e := range g.Edges {
			if keep[e.Source] && keep[e.Target] {
				out.Edges = append(out.Edges, e)
			}
		}
	}
	if out.Nodes == nil {
		out.Nodes = []graph.Node{}
	}
	if out.Edges == nil {
		out.Edges = []graph.Edge{}
	}
	return out
}
