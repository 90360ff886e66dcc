package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/linkmap/internal/corpus"
	lmerrors "github.com/Aman-CERP/linkmap/internal/errors"
	"github.com/Aman-CERP/linkmap/internal/links"
)

func pages(ids ...string) []corpus.Item {
	items := make([]corpus.Item, len(ids))
	for i, id := range ids {
		items[i] = corpus.Item{ID: id, URL: "https://example.com/" + id}
	}
	return items
}

func link(src, dst string) corpus.Link {
	return corpus.Link{SourceURL: "https://example.com/" + src, TargetURL: "https://example.com/" + dst}
}

func edgePairs(g *Graph) [][2]string {
	out := make([][2]string, len(g.Edges))
	for i, e := range g.Edges {
		out[i] = [2]string{e.Source, e.Target}
	}
	return out
}

func TestBuild_NormalizesEdgesAndKeepsOrphans(t *testing.T) {
	// Given: duplicate, reverse and self-loop edges over four pages
	items := pages("D", "C", "B", "A")
	edges := []corpus.Link{link("A", "B"), link("A", "B"), link("B", "A"), link("C", "C")}

	// When
	g, err := Build(items, edges, DefaultConfig())
	require.NoError(t, err)

	// Then: exactly (A,B) and (B,A) survive; C and D stay as orphans
	assert.Equal(t, [][2]string{{"A", "B"}, {"B", "A"}}, edgePairs(g))
	require.Len(t, g.Nodes, 4)
	assert.Equal(t, "A", g.Nodes[0].ID)
	assert.Equal(t, 1, g.Meta.DroppedDuplicates)
	assert.Equal(t, 1, g.Meta.DroppedSelfLoops)
	assert.Equal(t, 2, g.Meta.Orphans)

	d, ok := g.Node("D")
	require.True(t, ok)
	assert.Equal(t, 0, d.Metrics.DegreeIn)
	assert.Equal(t, 0, d.Metrics.DegreeOut)
	assert.Equal(t, 0.0, d.Metrics.Authority)
	assert.Equal(t, 0.0, d.Metrics.Hub)
	assert.Greater(t, d.Metrics.PageRank, 0.0)

	c, _ := g.Node("C")
	assert.Equal(t, c.Metrics, d.Metrics)
}

func TestBuild_ResolvesURLVariantsAndCountsUnresolved(t *testing.T) {
	items := []corpus.Item{
		{ID: "home", URL: "https://Example.com/"},
		{ID: "guide", URL: "https://example.com/guide"},
	}
	edges := []corpus.Link{
		{SourceURL: "https://example.com", TargetURL: "https://EXAMPLE.com/guide/?utm=1#top"},
		{SourceURL: "https://example.com/guide", TargetURL: "https://other.org/"},
	}

	g, err := Build(items, edges, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, [][2]string{{"home", "guide"}}, edgePairs(g))
	assert.Equal(t, 1, g.Meta.DroppedUnresolved)
	assert.Equal(t, SourceLinks, g.Meta.Source)
}

func TestBuild_PageRankSumsToOne(t *testing.T) {
	items := pages("a", "b", "c", "d", "e")
	edges := []corpus.Link{link("a", "b"), link("b", "c"), link("c", "a"), link("d", "a")}
	cfg := DefaultConfig()
	cfg.MaxIter = 500

	g, err := Build(items, edges, cfg)
	require.NoError(t, err)

	sum := 0.0
	for _, n := range g.Nodes {
		sum += n.Metrics.PageRank
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	a, _ := g.Node("a")
	e, _ := g.Node("e")
	assert.Greater(t, a.Metrics.PageRank, e.Metrics.PageRank)
	assert.True(t, g.Meta.PageRankConverged)
}

func TestBuild_HITSFavoursLinkedPages(t *testing.T) {
	// Given: two hubs both pointing at one authority
	items := pages("hub1", "hub2", "target")
	edges := []corpus.Link{link("hub1", "target"), link("hub2", "target")}

	g, err := Build(items, edges, DefaultConfig())
	require.NoError(t, err)

	target, _ := g.Node("target")
	hub1, _ := g.Node("hub1")
	assert.InDelta(t, 1.0, target.Metrics.Authority, 1e-9)
	assert.Equal(t, 0.0, target.Metrics.Hub)
	assert.InDelta(t, 1/1.4142135623730951, hub1.Metrics.Hub, 1e-9)
	assert.Equal(t, 2, target.Metrics.DegreeIn)
	assert.True(t, g.Meta.HITSConverged)
}

func TestBuild_EmptyGraph(t *testing.T) {
	g, err := Build(nil, nil, DefaultConfig())
	require.NoError(t, err)

	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Edges)
	assert.True(t, g.Meta.PageRankConverged)
	assert.NotEmpty(t, g.Meta.RunID)
}

func TestBuild_RejectsInvalidConfig(t *testing.T) {
	tests := []Config{
		{Damping: 0, MaxIter: 10, Tol: 1e-6},
		{Damping: 1, MaxIter: 10, Tol: 1e-6},
		{Damping: 0.85, MaxIter: 0, Tol: 1e-6},
		{Damping: 0.85, MaxIter: 10, Tol: 0},
	}

	for _, cfg := range tests {
		_, err := Build(pages("a"), nil, cfg)
		assert.ErrorIs(t, err, lmerrors.ErrInvalidParameter)
	}
}

func TestRecomputeMetrics_IsIdempotent(t *testing.T) {
	// Given: a built graph
	items := pages("a", "b", "c", "d")
	edges := []corpus.Link{link("a", "b"), link("b", "c"), link("c", "a"), link("a", "c"), link("d", "b")}
	g, err := Build(items, edges, DefaultConfig())
	require.NoError(t, err)

	// When: recomputing twice
	once, err := RecomputeMetrics(g, DefaultConfig())
	require.NoError(t, err)
	twice, err := RecomputeMetrics(once, DefaultConfig())
	require.NoError(t, err)

	// Then: scores match within 1e-9 and the edge set is unchanged
	require.Len(t, twice.Nodes, len(g.Nodes))
	for i := range g.Nodes {
		assert.InDelta(t, g.Nodes[i].Metrics.PageRank, twice.Nodes[i].Metrics.PageRank, 1e-9)
		assert.InDelta(t, g.Nodes[i].Metrics.Authority, twice.Nodes[i].Metrics.Authority, 1e-9)
		assert.InDelta(t, g.Nodes[i].Metrics.Hub, twice.Nodes[i].Metrics.Hub, 1e-9)
		assert.Equal(t, g.Nodes[i].Metrics.DegreeIn, twice.Nodes[i].Metrics.DegreeIn)
	}
	assert.Equal(t, g.Edges, twice.Edges)
	assert.NotEqual(t, g.Meta.RunID, twice.Meta.RunID)
}

func TestRecomputeMetrics_DropsEdgesToUnknownNodes(t *testing.T) {
	g := &Graph{
		Nodes: []Node{{ID: "b"}, {ID: "a"}},
		Edges: []Edge{{Source: "a", Target: "b"}, {Source: "a", Target: "zz"}},
	}

	out, err := RecomputeMetrics(g, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, [][2]string{{"a", "b"}}, edgePairs(out))
	assert.Equal(t, 1, out.Meta.DroppedUnresolved)
	assert.Equal(t, "a", out.Nodes[0].ID)
}

func TestFromSuggestions(t *testing.T) {
	items := pages("a", "b", "c")
	suggestions := []links.Suggestion{
		{SourceID: "a", TargetID: "b", Score: 0.9, Rank: 1},
		{SourceID: "b", TargetID: "a", Score: 0.9, Rank: 1},
		{SourceID: "c", TargetID: "a", Score: 0.5, Rank: 1},
	}

	g, err := FromSuggestions(items, suggestions, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, SourceSuggestions, g.Meta.Source)
	assert.Len(t, g.Edges, 3)
	assert.Equal(t, 0.5, g.Edges[2].Weight)
	a, _ := g.Node("a")
	assert.Equal(t, 2, a.Metrics.DegreeIn)
}

func TestNormalizeURL(t *testing.T) {
	tests := map[string]string{
		"https://Example.COM":            "https://example.com/",
		"https://example.com/":           "https://example.com/",
		"https://example.com/a/b/":       "https://example.com/a/b",
		"https://example.com/a?x=1#frag": "https://example.com/a",
		"HTTP://example.com/Case":        "http://example.com/Case",
		"  https://example.com/space  ":  "https://example.com/space",
		"/relative/path":                 "/relative/path",
	}

	for in, want := range tests {
		assert.Equal(t, want, NormalizeURL(in), in)
	}
}

func TestTopByPageRank_OrdersAndLeavesInputAlone(t *testing.T) {
	// Given: nodes in id order with mixed scores
	nodes := []Node{
		{ID: "a", Metrics: Metrics{PageRank: 0.2}},
		{ID: "b", Metrics: Metrics{PageRank: 0.5}},
		{ID: "c", Metrics: Metrics{PageRank: 0.2}},
		{ID: "d", Metrics: Metrics{PageRank: 0.1}},
	}

	// When: taking the top three
	top := TopByPageRank(nodes, 3)

	// Then: scores descend, ties keep id order, and the input is unchanged
	require.Len(t, top, 3)
	assert.Equal(t, []string{"b", "a", "c"}, []string{top[0].ID, top[1].ID, top[2].ID})
	assert.Equal(t, "a", nodes[0].ID)
	assert.Len(t, TopByPageRank(nodes, 10), 4)
}
