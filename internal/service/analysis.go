package service

import (
	"context"
	"log/slog"

	"github.com/Aman-CERP/linkmap/internal/cluster"
	"github.com/Aman-CERP/linkmap/internal/corpus"
	"github.com/Aman-CERP/linkmap/internal/graph"
	lmerrors "github.com/Aman-CERP/linkmap/internal/errors"
	"github.com/Aman-CERP/linkmap/internal/links"
	"github.com/Aman-CERP/linkmap/internal/store"
	"github.com/Aman-CERP/linkmap/internal/topics"
)

// Label sources.
const (
	LabelsFromCommitted = "committed"
	LabelsFromPreview   = "preview"
)

// TopicsRequest selects the clusters to label.
type TopicsRequest struct {
	Options topics.Options
	// Preview, when set, labels a fresh preview run with these options
	// instead of the committed cluster ids.
	Preview *cluster.Options
}

// TopicsResult holds one label per cluster.
type TopicsResult struct {
	Domain string               `json:"domain"`
	Source string               `json:"source"`
	Labels []topics.ClusterLabel `json:"labels"`
}

// SuggestResult holds the link suggestions of a domain.
type SuggestResult struct {
	Domain string `json:"domain"`
	*links.Result
}

// GraphRequest selects the edges of a graph.
type GraphRequest struct {
	Config graph.Config
	// FromSuggestions builds the graph from fresh link suggestions made
	// with Links instead of the stored extracted links.
	FromSuggestions bool
	Links           links.Options
}

// LabelTopics names the domain's clusters.
func (s *Service) LabelTopics(ctx context.Context, domain string, req TopicsRequest) (res *TopicsResult, err error) {
	domain, finish, err := s.begin(OpLabelTopics, domain)
	if err != nil {
		return nil, err
	}
	defer func() {
		if res != nil {
			finish(err, slog.String("source", res.Source), slog.Int("clusters", len(res.Labels)))
			return
		}
		finish(err)
	}()

	if err := req.Options.Validate(); err != nil {
		return nil, err
	}
	items, err := s.store.Items(ctx, domain)
	if err != nil {
		return nil, err
	}

	res = &TopicsResult{Domain: domain, Source: LabelsFromCommitted}
	var (
		assign   map[string]int
		clusters int
	)
	if req.Preview != nil {
		res.Source = LabelsFromPreview
		preview, err := cluster.Preview(items, *req.Preview)
		if err != nil {
			return nil, err
		}
		s.checkClusterResult(OpLabelTopics, domain, preview)
		assign = preview.ByItem()
		clusters = preview.KEffective
	} else {
		assign = committed(items)
		if len(assign) == 0 {
			s.warnNoEligible(OpLabelTopics, domain, len(items))
		}
	}

	docs := topics.DocumentsByCluster(items, assign)
	// Clusters k-means left without members still get an empty label.
	for c := 0; c < clusters; c++ {
		if _, ok := docs[c]; !ok {
			docs[c] = []topics.Document{}
		}
	}
	labels, err := topics.Label(docs, req.Options)
	if err != nil {
		return nil, err
	}
	res.Labels = labels
	s.metrics.AddItems(OpLabelTopics, len(assign))
	return res, nil
}

func committed(items []corpus.Item) map[string]int {
	assign := make(map[string]int)
	for _, it := range items {
		if it.ClusterID != nil {
			assign[it.ID] = *it.ClusterID
		}
	}
	return assign
}

// SuggestLinks proposes internal links between the domain's pages. HNSW
// candidates are drawn from an index built for this call only.
func (s *Service) SuggestLinks(ctx context.Context, domain string, opts links.Options) (res *SuggestResult, err error) {
	domain, finish, err := s.begin(OpSuggestLinks, domain)
	if err != nil {
		return nil, err
	}
	defer func() {
		if res != nil {
			finish(err,
				slog.Int("sources", res.Sources),
				slog.Int("suggestions", len(res.Suggestions)),
				slog.Int("empty_sources", len(res.EmptySources)))
			return
		}
		finish(err)
	}()

	items, err := s.store.Items(ctx, domain)
	if err != nil {
		return nil, err
	}
	result, err := s.suggest(ctx, domain, items, opts)
	if err != nil {
		return nil, err
	}
	return &SuggestResult{Domain: domain, Result: result}, nil
}

func (s *Service) suggest(ctx context.Context, domain string, items []corpus.Item, opts links.Options) (*links.Result, error) {
	suggester := &links.Suggester{NewIndex: newCandidateIndex}
	result, err := suggester.Suggest(ctx, items, opts)
	if err != nil {
		return nil, err
	}
	s.metrics.AddItems(OpSuggestLinks, result.Sources)
	if result.Sources == 0 {
		s.warnNoEligible(OpSuggestLinks, domain, result.Excluded.Total())
	}
	return result, nil
}

func newCandidateIndex(dim int, seed int64) links.CandidateIndex {
	return store.NewHNSWIndex(dim, seed)
}

// BuildGraph builds the domain's link graph with PageRank and HITS, from
// the stored extracted links or from fresh suggestions.
func (s *Service) BuildGraph(ctx context.Context, domain string, req GraphRequest) (g *graph.Graph, err error) {
	domain, finish, err := s.begin(OpBuildGraph, domain)
	if err != nil {
		return nil, err
	}
	defer func() {
		if g != nil {
			finish(err,
				slog.String("source", g.Meta.Source),
				slog.Int("nodes", g.Meta.Nodes),
				slog.Int("edges", g.Meta.Edges),
				slog.Int("orphans", g.Meta.Orphans))
			return
		}
		finish(err)
	}()

	if err := req.Config.Validate(); err != nil {
		return nil, err
	}
	items, err := s.store.Items(ctx, domain)
	if err != nil {
		return nil, err
	}

	if req.FromSuggestions {
		suggested, err := s.suggest(ctx, domain, items, req.Links)
		if err != nil {
			return nil, err
		}
		g, err = graph.FromSuggestions(items, suggested.Suggestions, req.Config)
		if err != nil {
			return nil, err
		}
	} else {
		stored, err := s.store.Links(ctx, domain)
		if err != nil {
			return nil, err
		}
		g, err = graph.Build(items, stored, req.Config)
		if err != nil {
			return nil, err
		}
	}

	s.metrics.AddItems(OpBuildGraph, g.Meta.Nodes)
	s.checkGraph(OpBuildGraph, domain, g)
	return g, nil
}

// RecomputeMetrics recomputes the metrics of an existing graph.
func (s *Service) RecomputeMetrics(_ context.Context, g *graph.Graph, cfg graph.Config) (out *graph.Graph, err error) {
	finish := s.track(OpRecomputeMetrics)
	defer func() {
		if out != nil {
			finish(err, slog.String("run_id", out.Meta.RunID), slog.Int("nodes", out.Meta.Nodes))
			return
		}
		finish(err)
	}()

	if g == nil {
		return nil, lmerrors.InvalidParameter("graph", "must not be empty")
	}
	out, err = graph.RecomputeMetrics(g, cfg)
	if err != nil {
		return nil, err
	}
	s.checkGraph(OpRecomputeMetrics, "", out)
	return out, nil
}

func (s *Service) checkGraph(op, domain string, g *graph.Graph) {
	if !g.Meta.PageRankConverged {
		s.warnNotConverged(op, domain, "pagerank", g.Meta.PageRankIterations)
	}
	if !g.Meta.HITSConverged {
		s.warnNotConverged(op, domain, "hits", g.Meta.HITSIterations)
	}
}
