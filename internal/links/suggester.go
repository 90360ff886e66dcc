package links

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/linkmap/internal/corpus"
	lmerrors "github.com/Aman-CERP/linkmap/internal/errors"
	"github.com/Aman-CERP/linkmap/internal/vector"
)

// Suggestion proposes a link from one page to another.
type Suggestion struct {
	SourceID  string  `json:"source_id"`
	SourceURL string  `json:"source_url"`
	TargetID  string  `json:"target_id"`
	TargetURL string  `json:"target_url"`
	Score     float64 `json:"score"`
	// Rank is 1-based within the source.
	Rank int `json:"rank"`
}

// Result holds the suggestions of one run.
type Result struct {
	// Suggestions are ordered by source ID, then rank.
	Suggestions []Suggestion      `json:"suggestions"`
	Sources     int               `json:"sources"`
	Excluded    corpus.Exclusions `json:"excluded"`
	// EmptySources lists sources that received no suggestion.
	EmptySources []string `json:"empty_sources"`
	// TargetsExcluded counts pages removed as targets by the URL filters.
	TargetsExcluded int `json:"targets_excluded"`
}

// CandidateIndex is an approximate nearest-neighbour index over unit
// vectors, keyed by item ID.
type CandidateIndex interface {
	Add(ids []string, vectors [][]float32) error
	Search(query []float32, k int) ([]string, error)
}

// IndexFactory builds an empty CandidateIndex for dim-sized vectors.
type IndexFactory func(dim int, seed int64) CandidateIndex

// Suggester computes link suggestions. NewIndex is required only for
// CandidatesHNSW.
type Suggester struct {
	NewIndex IndexFactory
}

// Suggest runs an exact Suggester.
func Suggest(ctx context.Context, items []corpus.Item, opts Options) (*Result, error) {
	return (&Suggester{}).Suggest(ctx, items, opts)
}

type page struct {
	id   string
	url  string
	path string
	vec  []float64
}

// Suggest proposes up to PerItem targets for every eligible source. A
// target is any other eligible page not removed by the URL filters;
// candidates are ranked by cosine descending then target ID ascending and
// kept when they reach MinSim. With FallbackWhenEmpty a source left with
// nothing keeps its best candidates regardless of the threshold.
func (s *Suggester) Suggest(ctx context.Context, items []corpus.Item, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	filter, err := newTargetFilter(opts)
	if err != nil {
		return nil, err
	}
	if opts.Candidates == CandidatesHNSW && s.NewIndex == nil {
		return nil, lmerrors.InvalidParameter("candidates", "hnsw candidates need an index")
	}

	sel := corpus.SelectEligible(items, opts.MaxItems)
	pages := make([]page, len(sel.Items))
	for i, it := range sel.Items {
		pages[i] = page{id: it.ID, url: it.URL, path: urlPath(it.URL), vec: vector.Normalize(it.Embedding)}
	}

	targets := make([]int, 0, len(pages))
	for i, p := range pages {
		if !filter.excluded(p) {
			targets = append(targets, i)
		}
	}

	res := &Result{
		Suggestions:     []Suggestion{},
		Sources:         len(pages),
		Excluded:        sel.Excluded,
		EmptySources:    []string{},
		TargetsExcluded: len(pages) - len(targets),
	}
	if len(pages) == 0 {
		return res, nil
	}

	var candidatesFor func(src int) ([]int, error)
	switch opts.Candidates {
	case CandidatesHNSW:
		candidatesFor, err = s.approximate(pages, targets, sel.Dimension, opts)
		if err != nil {
			return nil, err
		}
	default:
		candidatesFor = func(int) ([]int, error) { return targets, nil }
	}

	perSource := make([][]Suggestion, len(pages))
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := (len(pages) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < len(pages); lo += chunk {
		hi := min(lo+chunk, len(pages))
		g.Go(func() error {
			for src := lo; src < hi; src++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				cands, err := candidatesFor(src)
				if err != nil {
					return err
				}
				perSource[src] = rankFor(pages, src, cands, filter, opts)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for src, suggestions := range perSource {
		if len(suggestions) == 0 {
			res.EmptySources = append(res.EmptySources, pages[src].id)
			continue
		}
		res.Suggestions = append(res.Suggestions, suggestions...)
	}
	return res, nil
}

// rankFor scores the candidates of one source and applies the threshold.
func rankFor(pages []page, src int, cands []int, filter *targetFilter, opts Options) []Suggestion {
	source := pages[src]

	type scored struct {
		idx   int
		score float64
	}
	all := make([]scored, 0, len(cands))
	for _, t := range cands {
		if !filter.allowed(source, pages[t]) {
			continue
		}
		all = append(all, scored{idx: t, score: vector.Dot64(source.vec, pages[t].vec)})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return pages[all[i].idx].id < pages[all[j].idx].id
	})

	kept := make([]scored, 0, opts.PerItem)
	for _, c := range all {
		if len(kept) == opts.PerItem {
			break
		}
		if c.score >= opts.MinSim {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 && opts.FallbackWhenEmpty {
		kept = all[:min(opts.PerItem, len(all))]
	}

	out := make([]Suggestion, len(kept))
	for i, c := range kept {
		target := pages[c.idx]
		out[i] = Suggestion{
			SourceID:  source.id,
			SourceURL: source.url,
			TargetID:  target.id,
			TargetURL: target.url,
			Score:     c.score,
			Rank:      i + 1,
		}
	}
	return out
}

// approximate builds an index over the target pages and returns a
// candidate function backed by it. Searches run before any scoring so the
// index is only read concurrently.
func (s *Suggester) approximate(pages []page, targets []int, dim int, opts Options) (func(int) ([]int, error), error) {
	idx := s.NewIndex(dim, opts.Seed)
	byID := make(map[string]int, len(targets))
	ids := make([]string, len(targets))
	vecs := make([][]float32, len(targets))
	for i, t := range targets {
		ids[i] = pages[t].id
		vecs[i] = vector.ToFloat32(pages[t].vec)
		byID[pages[t].id] = t
	}
	if err := idx.Add(ids, vecs); err != nil {
		return nil, err
	}

	k := min(opts.PerItem*hnswOversample+1, len(targets))
	cands := make([][]int, len(pages))
	for src, p := range pages {
		if k == 0 {
			break
		}
		found, err := idx.Search(vector.ToFloat32(p.vec), k)
		if err != nil {
			return nil, err
		}
		cands[src] = make([]int, 0, len(found))
		for _, id := range found {
			if t, ok := byID[id]; ok {
				cands[src] = append(cands[src], t)
			}
		}
	}

	return func(src int) ([]int, error) { return cands[src], nil }, nil
}
