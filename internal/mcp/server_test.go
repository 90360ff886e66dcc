package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/linkmap/internal/config"
	"github.com/Aman-CERP/linkmap/internal/logging"
	"github.com/Aman-CERP/linkmap/internal/service"
	"github.com/Aman-CERP/linkmap/internal/store"
)

const domain = "example.com"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.NewConfig()
	cfg.Store.LockDir = ""
	svc, err := service.New(st, cfg, service.WithLogger(logging.Discard()))
	require.NoError(t, err)

	records := []service.Record{
		{ID: "a1", URL: "https://example.com/a1", Title: "Rocket engines", Content: "rocket fuel engines",
			Embedding: []float32{1, 0.05, 0}, HTML: `<a href="/a2">Launch</a><a href="/b1">Soil</a>`},
		{ID: "a2", URL: "https://example.com/a2", Title: "Rocket launch", Content: "rocket launch pads", Embedding: []float32{1, 0.1, 0}},
		{ID: "a3", URL: "https://example.com/a3", Title: "Rocket science", Content: "rocket orbits", Embedding: []float32{1, 0.15, 0}},
		{ID: "b1", URL: "https://example.com/b1", Title: "Garden soil", Content: "garden soil compost", Embedding: []float32{0, 1, 0.05}},
		{ID: "b2", URL: "https://example.com/b2", Title: "Garden roses", Content: "garden roses pruning", Embedding: []float32{0, 1, 0.1}},
		{ID: "b3", URL: "https://example.com/b3", Title: "Garden tools", Content: "garden tools shed", Embedding: []float32{0, 1, 0.15}},
	}
	_, err = svc.Ingest(context.Background(), domain, records, service.DefaultIngestOptions())
	require.NoError(t, err)

	srv, err := NewServer(svc, logging.Discard())
	require.NoError(t, err)
	return srv
}

func TestNewServer_RequiresService(t *testing.T) {
	_, err := NewServer(nil, nil)
	assert.Error(t, err)
}

func TestServer_InfoAndTools(t *testing.T) {
	// Given: a server
	srv := newTestServer(t)

	// When: listing the tools
	tools := srv.ListTools()

	// Then: every analysis operation is exposed with a description
	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name
		assert.NotEmpty(t, tool.Description, tool.Name)
	}
	assert.Equal(t, []string{
		"preview_clusters", "commit_clusters", "clear_clusters", "cluster_status",
		"label_topics", "suggest_links", "build_graph",
	}, names)

	name, _ := srv.Info()
	assert.Equal(t, "linkmap", name)
	assert.NotNil(t, srv.MCPServer())
}

func TestCallTool_UnknownTool(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.CallTool(context.Background(), "search", nil)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeMethodNotFound, mcpErr.Code)
}

func TestCallTool_MissingDomainIsInvalidParams(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.CallTool(context.Background(), "cluster_status", map[string]any{})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestCallTool_WrongArgumentTypeIsInvalidParams(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.CallTool(context.Background(), "preview_clusters", map[string]any{"domain": domain, "k": "two"})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestCallTool_RejectsOutOfRangeCounts(t *testing.T) {
	tests := []struct {
		name string
		tool string
		args map[string]any
	}{
		{"negative k", "preview_clusters", map[string]any{"domain": domain, "k": -3}},
		{"zero k on commit", "commit_clusters", map[string]any{"domain": domain, "k": 0}},
		{"negative max_iter", "preview_clusters", map[string]any{"domain": domain, "max_iter": -1}},
		{"negative top_n", "label_topics", map[string]any{"domain": domain, "top_n": -2}},
		{"zero k for preview labels", "label_topics", map[string]any{"domain": domain, "from_preview": true, "k": 0}},
		{"negative per_item", "suggest_links", map[string]any{"domain": domain, "per_item": -1}},
		{"zero graph max_iter", "build_graph", map[string]any{"domain": domain, "max_iter": 0}},
		{"zero per_item for graph", "build_graph", map[string]any{"domain": domain, "from_suggestions": true, "per_item": 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t)

			_, err := srv.CallTool(context.Background(), tt.tool, tt.args)

			var mcpErr *MCPError
			require.ErrorAs(t, err, &mcpErr)
			assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
		})
	}
}

func TestCallTool_PreviewDoesNotPersist(t *testing.T) {
	// Given: six pages in two topics
	srv := newTestServer(t)
	ctx := context.Background()

	// When: previewing two clusters with two members listed each
	out, err := srv.CallTool(ctx, "preview_clusters", map[string]any{"domain": domain, "k": 2, "top": 2})
	require.NoError(t, err)

	// Then: both clusters have three pages and nothing is stored
	preview := out.(PreviewClustersOutput)
	assert.Equal(t, 2, preview.Run.KEffective)
	assert.Equal(t, []int{3, 3}, preview.Run.Sizes)
	require.Len(t, preview.Clusters, 2)
	assert.Len(t, preview.Clusters[0].Top, 2)
	require.Len(t, preview.Run.Centroids, 2)
	for _, centroid := range preview.Run.Centroids {
		assert.Len(t, centroid, 3)
	}

	status, err := srv.CallTool(ctx, "cluster_status", map[string]any{"domain": domain})
	require.NoError(t, err)
	assert.Equal(t, 0, status.(ClusterStatusOutput).TotalWithClusterID)
	assert.Equal(t, 6, status.(ClusterStatusOutput).TotalItems)
}

func TestCallTool_CommitLabelClear(t *testing.T) {
	// Given: a server over two topics
	srv := newTestServer(t)
	ctx := context.Background()

	// When: committing two clusters
	out, err := srv.CallTool(ctx, "commit_clusters", map[string]any{"domain": domain, "k": 2, "seed": 7})
	require.NoError(t, err)
	commit := out.(CommitClustersOutput)
	assert.Equal(t, 6, commit.Updated)

	// Then: the status reports two clusters
	status, err := srv.CallTool(ctx, "cluster_status", map[string]any{"domain": domain})
	require.NoError(t, err)
	assert.Equal(t, 2, status.(ClusterStatusOutput).DistinctClusters)

	// And: the committed clusters are labeled by their topic words
	out, err = srv.CallTool(ctx, "label_topics", map[string]any{"domain": domain, "top_n": 1})
	require.NoError(t, err)
	labels := out.(LabelTopicsOutput)
	assert.Equal(t, service.LabelsFromCommitted, labels.Source)
	require.Len(t, labels.Labels, 2)
	var top []string
	for _, l := range labels.Labels {
		require.Len(t, l.Terms, 1)
		top = append(top, l.Terms[0].Term)
	}
	assert.ElementsMatch(t, []string{"rocket", "garden"}, top)

	// And: clearing resets all six ids
	out, err = srv.CallTool(ctx, "clear_clusters", map[string]any{"domain": domain})
	require.NoError(t, err)
	assert.Equal(t, 6, out.(ClearClustersOutput).Cleared)
}

func TestCallTool_SuggestLinksStaysWithinTopic(t *testing.T) {
	// Given: a server over two topics
	srv := newTestServer(t)

	// When: asking for two links per page above a high threshold
	out, err := srv.CallTool(context.Background(), "suggest_links", map[string]any{
		"domain": domain, "per_item": 2, "min_sim": 0.9,
	})
	require.NoError(t, err)

	// Then: every page gets its two topic siblings
	res := out.(SuggestLinksOutput)
	assert.Equal(t, 6, res.Sources)
	require.Len(t, res.Suggestions, 12)
	for _, s := range res.Suggestions {
		assert.Equal(t, s.SourceID[:1], s.TargetID[:1], "%s -> %s", s.SourceID, s.TargetID)
	}
	assert.Empty(t, res.EmptySources)
}

func TestCallTool_SuggestLinksRejectsBadPattern(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.CallTool(context.Background(), "suggest_links", map[string]any{
		"domain": domain, "exclude_regex": "([",
	})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestCallTool_BuildGraph(t *testing.T) {
	// Given: one page that links to two others
	srv := newTestServer(t)
	ctx := context.Background()

	// When: building the graph from the extracted links
	out, err := srv.CallTool(ctx, "build_graph", map[string]any{"domain": domain})
	require.NoError(t, err)

	// Then: all pages are nodes and the two links are edges
	g := out.(BuildGraphOutput)
	assert.Equal(t, 6, g.Meta.Nodes)
	assert.Equal(t, 2, g.Meta.Edges)
	assert.Equal(t, "links", g.Meta.Source)
	assert.NotEmpty(t, g.Meta.RunID)
	assert.True(t, strings.HasPrefix(g.Meta.GeneratedAt, "20"), g.Meta.GeneratedAt)

	// And: top limits nodes and keeps only edges between them
	out, err = srv.CallTool(ctx, "build_graph", map[string]any{"domain": domain, "top": 2})
	require.NoError(t, err)
	top := out.(BuildGraphOutput)
	assert.Len(t, top.Nodes, 2)
	kept := map[string]bool{top.Nodes[0].ID: true, top.Nodes[1].ID: true}
	for _, e := range top.Edges {
		assert.True(t, kept[e.Source] && kept[e.Target])
	}
	assert.Equal(t, 6, top.Meta.Nodes)
}

func TestCallTool_BuildGraphFromSuggestions(t *testing.T) {
	srv := newTestServer(t)

	out, err := srv.CallTool(context.Background(), "build_graph", map[string]any{
		"domain": domain, "from_suggestions": true, "per_item": 2, "min_sim": 0.9,
	})
	require.NoError(t, err)

	g := out.(BuildGraphOutput)
	assert.Equal(t, "suggestions", g.Meta.Source)
	assert.Equal(t, 12, g.Meta.Edges)
	assert.Equal(t, 0, g.Meta.Orphans)
}

func TestCallTool_BuildGraphRejectsDamping(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.CallTool(context.Background(), "build_graph", map[string]any{"domain": domain, "damping": 1.5})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestServe_RejectsUnknownTransport(t *testing.T) {
	srv := newTestServer(t)

	err := srv.Serve(context.Background(), "sse")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transport")
}
