package links

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/linkmap/internal/corpus"
	lmerrors "github.com/Aman-CERP/linkmap/internal/errors"
	"github.com/Aman-CERP/linkmap/internal/vector"
)

func item(id string, vec ...float32) corpus.Item {
	return corpus.Item{ID: id, URL: "https://example.com/" + id, Embedding: vec}
}

func pairs(res *Result) []string {
	out := make([]string, len(res.Suggestions))
	for i, s := range res.Suggestions {
		out[i] = fmt.Sprintf("%s>%s#%d", s.SourceID, s.TargetID, s.Rank)
	}
	return out
}

func TestSuggest_NeverSuggestsSelf(t *testing.T) {
	// Given: three pages
	items := []corpus.Item{item("a", 1, 0), item("b", 1, 0.1), item("c", 0, 1)}
	opts := DefaultOptions()
	opts.MinSim = 0

	// When
	res, err := Suggest(context.Background(), items, opts)
	require.NoError(t, err)

	// Then: every page links to the other two, never itself
	assert.Equal(t, 3, res.Sources)
	for _, s := range res.Suggestions {
		assert.NotEqual(t, s.SourceID, s.TargetID)
	}
	assert.Len(t, res.Suggestions, 6)
}

func TestSuggest_ScoresAreSymmetric(t *testing.T) {
	items := []corpus.Item{item("a", 1, 2, 3), item("b", -1, 0.5, 2)}
	opts := DefaultOptions()
	opts.MinSim = 0
	opts.FallbackWhenEmpty = true

	res, err := Suggest(context.Background(), items, opts)
	require.NoError(t, err)

	require.Len(t, res.Suggestions, 2)
	assert.InDelta(t, res.Suggestions[0].Score, res.Suggestions[1].Score, 1e-12)
	want, _ := vector.Cosine(items[0].Embedding, items[1].Embedding)
	assert.InDelta(t, want, res.Suggestions[0].Score, 1e-9)
}

func TestSuggest_ThresholdLeavesSourcesEmpty(t *testing.T) {
	// Given: c is unrelated to a and b
	items := []corpus.Item{item("a", 1, 0), item("b", 1, 0.1), item("c", 0, 1)}
	opts := DefaultOptions()
	opts.MinSim = 0.9

	// When
	res, err := Suggest(context.Background(), items, opts)
	require.NoError(t, err)

	// Then: only a and b link to each other
	assert.Equal(t, []string{"a>b#1", "b>a#1"}, pairs(res))
	assert.Equal(t, []string{"c"}, res.EmptySources)
}

func TestSuggest_FallbackKeepsBestCandidates(t *testing.T) {
	items := []corpus.Item{item("a", 1, 0), item("b", 1, 0.1), item("c", 0, 1)}
	opts := DefaultOptions()
	opts.MinSim = 0.9
	opts.FallbackWhenEmpty = true

	res, err := Suggest(context.Background(), items, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"a>b#1", "b>a#1", "c>b#1", "c>a#2"}, pairs(res))
	assert.Empty(t, res.EmptySources)
}

func TestSuggest_TiesBrokenByTargetID(t *testing.T) {
	items := []corpus.Item{item("s", 1, 0), item("t2", 1, 1), item("t1", 1, 1)}
	opts := DefaultOptions()
	opts.MinSim = 0

	res, err := Suggest(context.Background(), items, opts)
	require.NoError(t, err)

	assert.Equal(t, "s>t1#1", pairs(res)[0])
	assert.Equal(t, "s>t2#2", pairs(res)[1])
}

func TestSuggest_PerItemCapsSuggestions(t *testing.T) {
	items := []corpus.Item{item("a", 1, 0), item("b", 1, 0.1), item("c", 1, 0.2), item("d", 1, 0.3)}
	opts := DefaultOptions()
	opts.PerItem = 1
	opts.MinSim = 0

	res, err := Suggest(context.Background(), items, opts)
	require.NoError(t, err)

	assert.Len(t, res.Suggestions, 4)
}

func TestSuggest_ExcludeRegexRemovesTargets(t *testing.T) {
	items := []corpus.Item{item("a", 1, 0), item("b", 1, 0), item("tag-x", 1, 0)}
	opts := DefaultOptions()
	opts.ExcludeRegex = `/tag-`

	res, err := Suggest(context.Background(), items, opts)
	require.NoError(t, err)

	for _, s := range res.Suggestions {
		assert.NotEqual(t, "tag-x", s.TargetID)
	}
	assert.Equal(t, 1, res.TargetsExcluded)
	assert.Contains(t, pairs(res), "tag-x>a#1")
}

func TestSuggest_InvalidRegexIsAValidationError(t *testing.T) {
	// Given: a malformed pattern
	opts := DefaultOptions()
	opts.ExcludeRegex = `([a-z`

	// When
	res, err := Suggest(context.Background(), []corpus.Item{item("a", 1)}, opts)

	// Then: the run fails before computing anything
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, lmerrors.ErrInvalidPattern)
	assert.True(t, lmerrors.IsValidation(err))
}

func TestSuggest_SkipsHomepageAndSamePath(t *testing.T) {
	items := []corpus.Item{
		{ID: "home", URL: "https://example.com/", Embedding: []float32{1, 0}},
		{ID: "p1", URL: "https://example.com/guide", Embedding: []float32{1, 0}},
		{ID: "p2", URL: "https://example.com/guide/?ref=x", Embedding: []float32{1, 0}},
		{ID: "p3", URL: "https://example.com/other", Embedding: []float32{1, 0}},
	}
	opts := DefaultOptions()

	res, err := Suggest(context.Background(), items, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"home>p1#1", "home>p2#2", "home>p3#3", "p1>p3#1", "p2>p3#1", "p3>p1#1", "p3>p2#2"}, pairs(res))

	opts.SkipHomepage = false
	opts.SkipSamePath = false
	res, err = Suggest(context.Background(), items, opts)
	require.NoError(t, err)
	assert.Contains(t, pairs(res), "p1>home#1")
	assert.Contains(t, pairs(res), "p1>p2#2")
}

func TestSuggest_RejectsInvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"negative min_sim", func(o *Options) { o.MinSim = -0.1 }},
		{"min_sim above one", func(o *Options) { o.MinSim = 1.5 }},
		{"zero per_item", func(o *Options) { o.PerItem = 0 }},
		{"unknown candidates", func(o *Options) { o.Candidates = "lsh" }},
		{"hnsw without index", func(o *Options) { o.Candidates = CandidatesHNSW }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)

			_, err := Suggest(context.Background(), []corpus.Item{item("a", 1)}, opts)

			assert.ErrorIs(t, err, lmerrors.ErrInvalidParameter)
		})
	}
}

func TestSuggest_ReportsExclusionsAndEmptyInput(t *testing.T) {
	res, err := Suggest(context.Background(), []corpus.Item{{ID: "x"}, item("z", 0, 0)}, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 0, res.Sources)
	assert.Empty(t, res.Suggestions)
	assert.Equal(t, 1, res.Excluded.MissingEmbedding)
	assert.Equal(t, 1, res.Excluded.ZeroNorm)
}

func TestSuggest_IsDeterministicAcrossWorkers(t *testing.T) {
	var items []corpus.Item
	for i := 0; i < 40; i++ {
		items = append(items, item(fmt.Sprintf("p%02d", i), float32(i%7), float32(i%5), 1))
	}
	opts := DefaultOptions()
	opts.MinSim = 0.5

	opts.Workers = 1
	serial, err := Suggest(context.Background(), items, opts)
	require.NoError(t, err)
	opts.Workers = 6
	parallel, err := Suggest(context.Background(), items, opts)
	require.NoError(t, err)

	assert.Equal(t, serial, parallel)
}

func TestSuggest_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Suggest(ctx, []corpus.Item{item("a", 1), item("b", 1)}, DefaultOptions())

	assert.ErrorIs(t, err, context.Canceled)
}

// bruteIndex is an exact CandidateIndex.
type bruteIndex struct {
	ids  []string
	vecs [][]float32
}

func (b *bruteIndex) Add(ids []string, vectors [][]float32) error {
	b.ids = append(b.ids, ids...)
	b.vecs = append(b.vecs, vectors...)
	return nil
}

func (b *bruteIndex) Search(query []float32, k int) ([]string, error) {
	order := make([]int, len(b.ids))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return vector.Dot(query, b.vecs[order[i]]) > vector.Dot(query, b.vecs[order[j]])
	})
	out := make([]string, 0, k)
	for _, i := range order[:min(k, len(order))] {
		out = append(out, b.ids[i])
	}
	return out, nil
}

func TestSuggester_HNSWCandidatesMatchExactWithPerfectIndex(t *testing.T) {
	// Given: an index that always returns the true neighbours
	var items []corpus.Item
	for i := 0; i < 20; i++ {
		items = append(items, item(fmt.Sprintf("p%02d", i), float32(i), float32(20-i), float32(i%3)))
	}
	exactOpts := DefaultOptions()
	hnswOpts := exactOpts
	hnswOpts.Candidates = CandidatesHNSW
	s := &Suggester{NewIndex: func(dim int, seed int64) CandidateIndex { return &bruteIndex{} }}

	// When
	exact, err := Suggest(context.Background(), items, exactOpts)
	require.NoError(t, err)
	approx, err := s.Suggest(context.Background(), items, hnswOpts)
	require.NoError(t, err)

	// Then
	assert.Equal(t, pairs(exact), pairs(approx))
}

func TestURLPath(t *testing.T) {
	assert.Equal(t, "/", urlPath("https://example.com"))
	assert.Equal(t, "/", urlPath("https://example.com/"))
	assert.Equal(t, "/a/b", urlPath("https://example.com/a/b/"))
	assert.Equal(t, "", urlPath(""))
}
