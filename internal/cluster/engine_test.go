package cluster

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/linkmap/internal/corpus"
	lmerrors "github.com/Aman-CERP/linkmap/internal/errors"
)

// twoTopics returns n items near the x axis followed by n items near the y axis.
func twoTopics(n int) []corpus.Item {
	items := make([]corpus.Item, 0, 2*n)
	for i := 0; i < n; i++ {
		items = append(items, corpus.Item{
			ID:        fmt.Sprintf("a%02d", i),
			URL:       fmt.Sprintf("https://example.com/a/%d", i),
			Title:     fmt.Sprintf("Alpha %d", i),
			Embedding: []float32{1, 0.02 * float32(i), 0},
		})
	}
	for i := 0; i < n; i++ {
		items = append(items, corpus.Item{
			ID:        fmt.Sprintf("b%02d", i),
			URL:       fmt.Sprintf("https://example.com/b/%d", i),
			Title:     fmt.Sprintf("Beta %d", i),
			Embedding: []float32{0.02 * float32(i), 1, 0},
		})
	}
	return items
}

// distinctItems returns n items pointing in clearly different directions.
func distinctItems(n int) []corpus.Item {
	items := make([]corpus.Item, n)
	for i := 0; i < n; i++ {
		v := make([]float32, n)
		v[i] = 1
		items[i] = corpus.Item{ID: fmt.Sprintf("item-%02d", i), Embedding: v}
	}
	return items
}

func intPtr(v int) *int { return &v }

func TestPreview_IsDeterministic(t *testing.T) {
	// Given: the same items, k and seed
	items := twoTopics(10)
	opts := Options{K: 3, Seed: 7}

	// When: previewing twice
	first, err := Preview(items, opts)
	require.NoError(t, err)
	second, err := Preview(items, opts)
	require.NoError(t, err)

	// Then: assignments and centroid order are identical
	assert.Equal(t, first.Assignments, second.Assignments)
	assert.Equal(t, first.Centroids, second.Centroids)
}

func TestPreview_InputOrderDoesNotMatter(t *testing.T) {
	items := twoTopics(6)
	reversed := make([]corpus.Item, len(items))
	for i := range items {
		reversed[len(items)-1-i] = items[i]
	}

	a, err := Preview(items, Options{K: 2, Seed: 1})
	require.NoError(t, err)
	b, err := Preview(reversed, Options{K: 2, Seed: 1})
	require.NoError(t, err)

	assert.Equal(t, a.Assignments, b.Assignments)
}

func TestPreview_WorkerCountDoesNotChangeResult(t *testing.T) {
	items := twoTopics(25)

	serial, err := Preview(items, Options{K: 4, Seed: 3, Workers: 1})
	require.NoError(t, err)
	parallel, err := Preview(items, Options{K: 4, Seed: 3, Workers: 8})
	require.NoError(t, err)

	assert.Equal(t, serial.Assignments, parallel.Assignments)
	assert.Equal(t, serial.Centroids, parallel.Centroids)
}

func TestPreview_ClampsKToEligibleItems(t *testing.T) {
	// Given: 8 eligible items
	items := distinctItems(8)

	// When: asking for 100 clusters
	res, err := Preview(items, Options{K: 100, Seed: 42})
	require.NoError(t, err)

	// Then: k_effective is 8 and every cluster holds one item
	assert.Equal(t, 8, res.KEffective)
	assert.Len(t, res.Centroids, 8)
	for _, size := range res.Sizes {
		assert.Equal(t, 1, size)
	}
}

func TestPreview_SeparatesObviousGroups(t *testing.T) {
	items := twoTopics(8)

	res, err := Preview(items, Options{K: 2, Seed: 42})
	require.NoError(t, err)

	byItem := res.ByItem()
	for i := 1; i < 8; i++ {
		assert.Equal(t, byItem["a00"], byItem[fmt.Sprintf("a%02d", i)])
		assert.Equal(t, byItem["b00"], byItem[fmt.Sprintf("b%02d", i)])
	}
	assert.NotEqual(t, byItem["a00"], byItem["b00"])
	assert.True(t, res.Converged)
	assert.Equal(t, []int{8, 8}, res.Sizes)
}

func TestPreview_CentroidsAreUnitLengthUnderCosine(t *testing.T) {
	res, err := Preview(twoTopics(5), Options{K: 2, Seed: 42})
	require.NoError(t, err)

	for _, c := range res.Centroids {
		var sum float64
		for _, x := range c {
			sum += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, sum, 1e-5)
	}
}

func TestPreview_EuclideanKeepsRawScale(t *testing.T) {
	items := []corpus.Item{
		{ID: "1", Embedding: []float32{10, 0}},
		{ID: "2", Embedding: []float32{10, 0}},
	}

	res, err := Preview(items, Options{K: 1, Metric: MetricEuclidean})
	require.NoError(t, err)

	assert.Equal(t, []float32{10, 0}, res.Centroids[0])
}

func TestPreview_NoEligibleItems(t *testing.T) {
	// Given: items none of which has an embedding
	items := []corpus.Item{{ID: "1"}, {ID: "2"}}

	// When: previewing
	res, err := Preview(items, Options{K: 3})

	// Then: an empty, well-formed result flags the condition
	require.NoError(t, err)
	assert.True(t, res.NoEligibleItems)
	assert.Equal(t, 0, res.KEffective)
	assert.Empty(t, res.Assignments)
	assert.NotNil(t, res.Assignments)
	assert.Equal(t, 2, res.Excluded.MissingEmbedding)
}

func TestPreview_ReportsExclusions(t *testing.T) {
	items := append(twoTopics(3),
		corpus.Item{ID: "z-missing"},
		corpus.Item{ID: "z-short", Embedding: []float32{1}},
	)

	res, err := Preview(items, Options{K: 2})
	require.NoError(t, err)

	assert.Equal(t, 6, res.Eligible)
	assert.Equal(t, 1, res.Excluded.MissingEmbedding)
	assert.Equal(t, 1, res.Excluded.DimensionMismatch)
	assert.Len(t, res.Assignments, 6)
}

func TestPreview_MaxItemsCapsByID(t *testing.T) {
	res, err := Preview(twoTopics(5), Options{K: 2, MaxItems: 4})
	require.NoError(t, err)

	require.Len(t, res.Assignments, 4)
	assert.Equal(t, "a00", res.Assignments[0].ItemID)
	assert.Equal(t, "a03", res.Assignments[3].ItemID)
	assert.Equal(t, 6, res.Excluded.Truncated)
}

func TestPreview_IterationCapReportsNonConvergence(t *testing.T) {
	res, err := Preview(twoTopics(10), Options{K: 3, Seed: 5, MaxIter: 1})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Iterations)
	assert.False(t, res.Converged)
	assert.Len(t, res.Assignments, 20)
}

func TestPreview_RejectsInvalidParameters(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"k zero", Options{K: 0}},
		{"k negative", Options{K: -1}},
		{"negative max_items", Options{K: 2, MaxItems: -1}},
		{"unknown metric", Options{K: 2, Metric: "manhattan"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Preview(twoTopics(2), tt.opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, lmerrors.ErrInvalidParameter)
		})
	}
}

func TestCommit_PlansOnlyChangedRows(t *testing.T) {
	// Given: items where some already hold the cluster they will get
	items := twoTopics(4)
	first, err := Commit(items, Options{K: 2, Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, 8, first.Updated)
	assert.Equal(t, 8, first.TotalWithEmbeddings)

	// When: the plan is applied and commit runs again
	applied := apply(items, first.Changes)
	second, err := Commit(applied, Options{K: 2, Seed: 42})
	require.NoError(t, err)

	// Then: nothing changes the second time
	assert.Empty(t, second.Changes)
	assert.Equal(t, 0, second.Updated)
}

func TestCommit_ResetsStaleAssignments(t *testing.T) {
	// Given: an item without embedding still holding an old cluster id
	items := append(twoTopics(2), corpus.Item{ID: "old", ClusterID: intPtr(5)})

	plan, err := Commit(items, Options{K: 2})
	require.NoError(t, err)

	// Then: it is reset to null
	assert.Equal(t, 1, plan.Reset)
	var found bool
	for _, ch := range plan.Changes {
		if ch.ItemID == "old" {
			found = true
			assert.Nil(t, ch.To)
			require.NotNil(t, ch.From)
			assert.Equal(t, 5, *ch.From)
		}
	}
	assert.True(t, found)
}

func TestCommit_NoEligibleItemsPlansNothing(t *testing.T) {
	items := []corpus.Item{{ID: "x", ClusterID: intPtr(1)}}

	plan, err := Commit(items, Options{K: 2})
	require.NoError(t, err)

	assert.True(t, plan.NoEligibleItems)
	assert.Empty(t, plan.Changes)
}

func TestCommitThenClear_ReturnsEveryItemToNull(t *testing.T) {
	// Given: a committed domain
	items := twoTopics(3)
	plan, err := Commit(items, Options{K: 2})
	require.NoError(t, err)
	items = apply(items, plan.Changes)
	assert.Equal(t, 2, StatusOf(items).DistinctClusters)

	// When: clearing
	cleared := Clear(items)
	items = reset(items, cleared)

	// Then: every cluster id is null and a second clear is a no-op
	assert.Len(t, cleared, 6)
	for _, it := range items {
		assert.Nil(t, it.ClusterID)
	}
	assert.Empty(t, Clear(items))
}

func TestNearest_TieGoesToLowerIndex(t *testing.T) {
	centroids := [][]float64{{1, 0}, {-1, 0}}

	assert.Equal(t, 0, nearest([]float64{0, 1}, centroids))
}

func TestUpdateCentroids_EmptyClusterKeepsCentroid(t *testing.T) {
	points := [][]float64{{1, 0}, {3, 0}}
	centroids := [][]float64{{0, 0}, {9, 9}}

	updateCentroids(points, centroids, []int{0, 0})

	assert.Equal(t, []float64{2, 0}, centroids[0])
	assert.Equal(t, []float64{9, 9}, centroids[1])
}

func apply(items []corpus.Item, changes []Change) []corpus.Item {
	byID := make(map[string]Change, len(changes))
	for _, ch := range changes {
		byID[ch.ItemID] = ch
	}
	out := make([]corpus.Item, len(items))
	for i, it := range items {
		if ch, ok := byID[it.ID]; ok {
			it.ClusterID = ch.To
		}
		out[i] = it
	}
	return out
}

func reset(items []corpus.Item, ids []string) []corpus.Item {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	out := make([]corpus.Item, len(items))
	for i, it := range items {
		if drop[it.ID] {
			it.ClusterID = nil
		}
		out[i] = it
	}
	return out
}
