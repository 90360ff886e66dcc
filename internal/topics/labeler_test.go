package topics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/linkmap/internal/corpus"
	lmerrors "github.com/Aman-CERP/linkmap/internal/errors"
)

func TestLabel_ScoresWithTFICF(t *testing.T) {
	// Given: two clusters sharing one term
	docs := map[int][]Document{
		0: {{ItemID: "a", Text: "rocket rocket shared"}},
		1: {{ItemID: "b", Text: "garden garden shared"}},
	}

	// When
	labels, err := Label(docs, DefaultOptions())
	require.NoError(t, err)

	// Then: the distinctive term outranks the shared one
	require.Len(t, labels, 2)
	terms := labels[0].Terms
	require.Len(t, terms, 2)
	assert.Equal(t, "rocket", terms[0].Term)
	assert.InDelta(t, 2.0/3.0*(math.Log(1.5)+1), terms[0].Score, 1e-12)
	assert.Equal(t, "shared", terms[1].Term)
	assert.InDelta(t, 1.0/3.0, terms[1].Score, 1e-12)
	assert.Equal(t, "garden", labels[1].Terms[0].Term)
}

func TestLabel_TiesBrokenByTerm(t *testing.T) {
	docs := map[int][]Document{0: {{ItemID: "a", Text: "zebra apple mango"}}}

	labels, err := Label(docs, DefaultOptions())
	require.NoError(t, err)

	var got []string
	for _, term := range labels[0].Terms {
		got = append(got, term.Term)
	}
	assert.Equal(t, []string{"apple", "mango", "zebra"}, got)
}

func TestLabel_TopNLimitsTerms(t *testing.T) {
	docs := map[int][]Document{0: {{ItemID: "a", Text: "one two three four five six seven"}}}
	opts := DefaultOptions()
	opts.TopN = 2

	labels, err := Label(docs, opts)
	require.NoError(t, err)

	assert.Len(t, labels[0].Terms, 2)
}

func TestLabel_OrdersByClusterAndKeepsEmptyClusters(t *testing.T) {
	// Given: a cluster with documents and one without
	docs := map[int][]Document{
		3: {{ItemID: "x", Title: "Rockets", Text: "rocket engines"}},
		1: {},
	}

	// When
	labels, err := Label(docs, DefaultOptions())
	require.NoError(t, err)

	// Then: both appear in index order and the empty one has no terms
	require.Len(t, labels, 2)
	assert.Equal(t, 1, labels[0].Cluster)
	assert.Empty(t, labels[0].Terms)
	assert.Empty(t, labels[0].Samples)
	assert.Equal(t, 0, labels[0].Documents)
	assert.Equal(t, 3, labels[1].Cluster)
	assert.Equal(t, 1, labels[1].Documents)
}

func TestLabel_SamplesAreSeededAndCapped(t *testing.T) {
	docs := map[int][]Document{0: {
		{ItemID: "1", Title: "First"},
		{ItemID: "2", Title: ""},
		{ItemID: "3", Title: "Third"},
		{ItemID: "4", Title: "Fourth"},
		{ItemID: "5", Title: "Fifth"},
	}}
	opts := DefaultOptions()
	opts.SamplesPerCluster = 2

	a, err := Label(docs, opts)
	require.NoError(t, err)
	b, err := Label(docs, opts)
	require.NoError(t, err)

	assert.Len(t, a[0].Samples, 2)
	assert.Equal(t, a[0].Samples, b[0].Samples)
	assert.NotContains(t, a[0].Samples, "")
}

func TestLabel_ZeroSamples(t *testing.T) {
	docs := map[int][]Document{0: {{ItemID: "1", Title: "Only"}}}
	opts := DefaultOptions()
	opts.SamplesPerCluster = 0

	labels, err := Label(docs, opts)
	require.NoError(t, err)

	assert.Empty(t, labels[0].Samples)
}

func TestLabel_RejectsInvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.TopN = 0

	_, err := Label(map[int][]Document{}, opts)

	assert.ErrorIs(t, err, lmerrors.ErrInvalidParameter)
}

func TestDocumentsByCluster(t *testing.T) {
	items := []corpus.Item{
		{ID: "b", Title: "B", Content: "bee"},
		{ID: "a", Title: "A", Content: "ay"},
		{ID: "c", Title: "C"},
	}

	docs := DocumentsByCluster(items, map[string]int{"a": 0, "b": 0})

	require.Len(t, docs, 1)
	assert.Equal(t, []Document{
		{ItemID: "a", Title: "A", Text: "ay"},
		{ItemID: "b", Title: "B", Text: "bee"},
	}, docs[0])
}
