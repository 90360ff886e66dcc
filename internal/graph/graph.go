package graph

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Aman-CERP/linkmap/internal/corpus"
	"github.com/Aman-CERP/linkmap/internal/links"
)

// Edge sources recorded in Meta.
const (
	SourceLinks       = "links"
	SourceSuggestions = "suggestions"
)

// Metrics are the per-node scores of a graph.
type Metrics struct {
	DegreeIn  int     `json:"degree_in"`
	DegreeOut int     `json:"degree_out"`
	PageRank  float64 `json:"pagerank"`
	Authority float64 `json:"authority"`
	Hub       float64 `json:"hub"`
}

// Node is one page of the domain. Pages without edges are kept.
type Node struct {
	ID        string  `json:"id"`
	URL       string  `json:"url"`
	Title     string  `json:"title,omitempty"`
	ClusterID *int    `json:"cluster_id,omitempty"`
	Metrics   Metrics `json:"metrics"`
}

// Edge is a directed link between two nodes, by node ID. Weight is 1 for
// extracted links and the similarity for suggestions; metrics ignore it.
type Edge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

// Meta describes how a graph was produced.
type Meta struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Source      string    `json:"source"`

	Nodes   int `json:"nodes"`
	Edges   int `json:"edges"`
	Orphans int `json:"orphans"`

	DroppedDuplicates int `json:"dropped_duplicates"`
	DroppedSelfLoops  int `json:"dropped_self_loops"`
	DroppedUnresolved int `json:"dropped_unresolved"`

	Damping float64 `json:"damping"`
	MaxIter int     `json:"max_iter"`
	Tol     float64 `json:"tol"`

	PageRankIterations int  `json:"pagerank_iterations"`
	PageRankConverged  bool `json:"pagerank_converged"`
	HITSIterations     int  `json:"hits_iterations"`
	HITSConverged      bool `json:"hits_converged"`
}

// Graph is a normalized link graph with metrics.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
	Meta  Meta   `json:"meta"`
}

// Build resolves url-to-url links against the items and computes metrics.
// Links whose endpoints match no item are dropped, as are self-loops and
// repeats of an ordered pair; every item becomes a node.
func Build(items []corpus.Item, linkSet []corpus.Link, cfg Config) (*Graph, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	nodes := nodesFor(items)
	idx := newURLIndex(nodes)

	candidates := make([]Edge, 0, len(linkSet))
	unresolved := 0
	for _, l := range linkSet {
		src, okSrc := idx.lookup(l.SourceURL)
		dst, okDst := idx.lookup(l.TargetURL)
		if !okSrc || !okDst {
			unresolved++
			continue
		}
		candidates = append(candidates, Edge{Source: src, Target: dst, Weight: 1})
	}

	g := assemble(nodes, candidates, cfg)
	g.Meta.Source = SourceLinks
	g.Meta.DroppedUnresolved += unresolved
	return g, nil
}

// FromSuggestions builds the graph implied by a set of link suggestions.
func FromSuggestions(items []corpus.Item, suggestions []links.Suggestion, cfg Config) (*Graph, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	candidates := make([]Edge, len(suggestions))
	for i, s := range suggestions {
		candidates[i] = Edge{Source: s.SourceID, Target: s.TargetID, Weight: s.Score}
	}

	g := assemble(nodesFor(items), candidates, cfg)
	g.Meta.Source = SourceSuggestions
	return g, nil
}

// RecomputeMetrics returns a copy of g with degrees, PageRank and HITS
// computed afresh from its nodes and edges. Calling it again on the result
// yields the same scores.
func RecomputeMetrics(g *Graph, cfg Config) (*Graph, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	nodes := make([]Node, len(g.Nodes))
	copy(nodes, g.Nodes)
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	out := assemble(nodes, g.Edges, cfg)
	out.Meta.Source = g.Meta.Source
	return out, nil
}

func nodesFor(items []corpus.Item) []Node {
	sorted := corpus.SortByID(items)
	nodes := make([]Node, len(sorted))
	for i, it := range sorted {
		nodes[i] = Node{ID: it.ID, URL: it.URL, Title: it.Title, ClusterID: it.ClusterID}
	}
	return nodes
}

// assemble normalizes candidate edges against nodes (sorted by ID) and
// fills in metrics and meta.
func assemble(nodes []Node, candidates []Edge, cfg Config) *Graph {
	pos := make(map[string]int, len(nodes))
	for i, n := range nodes {
		pos[n.ID] = i
	}

	meta := Meta{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Damping:     cfg.Damping,
		MaxIter:     cfg.MaxIter,
		Tol:         cfg.Tol,
	}

	seen := make(map[[2]int]bool, len(candidates))
	edges := make([]Edge, 0, len(candidates))
	pairs := make([][2]int, 0, len(candidates))
	for _, e := range candidates {
		src, okSrc := pos[e.Source]
		dst, okDst := pos[e.Target]
		switch {
		case !okSrc || !okDst:
			meta.DroppedUnresolved++
			continue
		case src == dst:
			meta.DroppedSelfLoops++
			continue
		case seen[[2]int{src, dst}]:
			meta.DroppedDuplicates++
			continue
		}
		seen[[2]int{src, dst}] = true
		edges = append(edges, e)
		pairs = append(pairs, [2]int{src, dst})
	}

	order := make([]int, len(edges))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := pairs[order[i]], pairs[order[j]]
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		return a[1] < b[1]
	})
	sortedEdges := make([]Edge, len(edges))
	sortedPairs := make([][2]int, len(edges))
	for i, k := range order {
		sortedEdges[i], sortedPairs[i] = edges[k], pairs[k]
	}

	adj := newAdjacency(len(nodes), sortedPairs)
	rank, prIter, prConv := pageRank(adj, cfg)
	authority, hub, hitsIter, hitsConv := hits(adj, cfg)

	out := make([]Node, len(nodes))
	for i, n := range nodes {
		n.Metrics = Metrics{
			DegreeIn:  len(adj.in[i]),
			DegreeOut: len(adj.out[i]),
			PageRank:  rank[i],
			Authority: authority[i],
			Hub:       hub[i],
		}
		if n.Metrics.DegreeIn == 0 && n.Metrics.DegreeOut == 0 {
			meta.Orphans++
		}
		out[i] = n
	}

	meta.Nodes = len(out)
	meta.Edges = len(sortedEdges)
	meta.PageRankIterations, meta.PageRankConverged = prIter, prConv
	meta.HITSIterations, meta.HITSConverged = hitsIter, hitsConv

	return &Graph{Nodes: out, Edges: sortedEdges, Meta: meta}
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (Node, bool) {
	i := sort.Search(len(g.Nodes), func(i int) bool { return g.Nodes[i].ID >= id })
	if i < len(g.Nodes) && g.Nodes[i].ID == id {
		return g.Nodes[i], true
	}
	return Node{}, false
}

// TopByPageRank returns up to n nodes by descending PageRank. Ties keep the
// node order. The input is not modified.
func TopByPageRank(nodes []Node, n int) []Node {
	sorted := make([]Node, len(nodes))
	copy(sorted, nodes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Metrics.PageRank > sorted[j].Metrics.PageRank
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
