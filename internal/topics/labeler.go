package topics

import (
	"math"
	"math/rand"
	"sort"

	"github.com/Aman-CERP/linkmap/internal/corpus"
)

// Document is the text of one clustered page.
type Document struct {
	ItemID string `json:"item_id"`
	Title  string `json:"title"`
	Text   string `json:"text"`
}

// Term is a scored label term.
type Term struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

// ClusterLabel describes one cluster.
type ClusterLabel struct {
	Cluster   int      `json:"cluster"`
	Terms     []Term   `json:"terms"`
	Samples   []string `json:"samples"`
	Documents int      `json:"documents"`
}

// Label scores every cluster's terms with TF-ICF and returns one label per
// input cluster, ordered by cluster index. A term's ICF is
// ln((1+C)/(1+cf))+1 where C is the number of non-empty clusters and cf the
// number of those containing the term; its score is tf*icf with tf the
// term's share of the cluster's tokens.
func Label(docsByCluster map[int][]Document, opts Options) ([]ClusterLabel, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	tok, err := newTokenizer(opts.StopwordsExtra, opts.MinTermLength)
	if err != nil {
		return nil, err
	}

	clusters := make([]int, 0, len(docsByCluster))
	for c := range docsByCluster {
		clusters = append(clusters, c)
	}
	sort.Ints(clusters)

	counts := make(map[int]map[string]int, len(clusters))
	totals := make(map[int]int, len(clusters))
	clusterFreq := make(map[string]int)
	nonEmpty := 0

	for _, c := range clusters {
		tf := make(map[string]int)
		for _, d := range docsByCluster[c] {
			for _, term := range tok.Tokenize(d.Title) {
				tf[term]++
			}
			for _, term := range tok.Tokenize(d.Text) {
				tf[term]++
			}
		}
		counts[c] = tf
		total := 0
		for term, n := range tf {
			total += n
			clusterFreq[term]++
		}
		totals[c] = total
		if total > 0 {
			nonEmpty++
		}
	}

	labels := make([]ClusterLabel, 0, len(clusters))
	for _, c := range clusters {
		docs := docsByCluster[c]
		ranked := rank(counts[c], totals[c], clusterFreq, nonEmpty)
		labels = append(labels, ClusterLabel{
			Cluster:   c,
			Terms:     selectTerms(ranked, opts.TopN, opts.DedupeSubstrings),
			Samples:   samples(docs, opts.SamplesPerCluster, opts.Seed+int64(c)),
			Documents: len(docs),
		})
	}
	return labels, nil
}

// rank returns every term of a cluster by score descending, ties by term.
func rank(tf map[string]int, total int, clusterFreq map[string]int, nonEmpty int) []Term {
	ranked := make([]Term, 0, len(tf))
	if total == 0 {
		return ranked
	}
	for term, n := range tf {
		icf := math.Log(float64(1+nonEmpty)/float64(1+clusterFreq[term])) + 1
		ranked = append(ranked, Term{Term: term, Score: float64(n) / float64(total) * icf})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Term < ranked[j].Term
	})
	return ranked
}

// samples picks up to n non-empty titles, shuffled by a source seeded per
// cluster so that reruns return the same picks.
func samples(docs []Document, n int, seed int64) []string {
	sorted := make([]Document, len(docs))
	copy(sorted, docs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ItemID < sorted[j].ItemID })

	titles := make([]string, 0, len(sorted))
	for _, d := range sorted {
		if d.Title != "" {
			titles = append(titles, d.Title)
		}
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(titles), func(i, j int) { titles[i], titles[j] = titles[j], titles[i] })

	if len(titles) > n {
		titles = titles[:n]
	}
	return titles
}

// DocumentsByCluster groups items by the cluster given in assign. Items
// missing from assign are skipped.
func DocumentsByCluster(items []corpus.Item, assign map[string]int) map[int][]Document {
	out := make(map[int][]Document)
	for _, it := range corpus.SortByID(items) {
		c, ok := assign[it.ID]
		if !ok {
			continue
		}
		out[c] = append(out[c], Document{ItemID: it.ID, Title: it.Title, Text: it.Content})
	}
	return out
}
