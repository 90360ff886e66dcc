package cluster

import (
	"sort"

	"github.com/Aman-CERP/linkmap/internal/corpus"
	"github.com/Aman-CERP/linkmap/internal/vector"
)

// Member is an item shown in a cluster summary.
type Member struct {
	ItemID string  `json:"id"`
	URL    string  `json:"url"`
	Title  string  `json:"title"`
	Score  float64 `json:"score"`
}

// ClusterSummary describes one cluster of a preview.
type ClusterSummary struct {
	Cluster int      `json:"cluster"`
	Size    int      `json:"size"`
	Top     []Member `json:"top"`
}

// Summarize lists every cluster with its topN members closest to the
// centroid (cosine, rounded to 3 decimals). Clusters are ordered by size,
// largest first, then by index.
func Summarize(items []corpus.Item, res *Result, topN int) []ClusterSummary {
	byID := make(map[string]corpus.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	members := make([][]Member, res.KEffective)
	for _, a := range res.Assignments {
		it, ok := byID[a.ItemID]
		if !ok {
			continue
		}
		sim, _ := vector.Cosine(it.Embedding, res.Centroids[a.Cluster])
		members[a.Cluster] = append(members[a.Cluster], Member{
			ItemID: it.ID,
			URL:    it.URL,
			Title:  it.Title,
			Score:  vector.Round(sim, 3),
		})
	}

	out := make([]ClusterSummary, res.KEffective)
	for c := range out {
		ms := members[c]
		sort.SliceStable(ms, func(i, j int) bool {
			if ms[i].Score != ms[j].Score {
				return ms[i].Score > ms[j].Score
			}
			return ms[i].ItemID < ms[j].ItemID
		})
		if topN < 0 {
			topN = 0
		}
		if len(ms) > topN {
			ms = ms[:topN]
		}
		if ms == nil {
			ms = []Member{}
		}
		out[c] = ClusterSummary{Cluster: c, Size: res.Sizes[c], Top: ms}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Size != out[j].Size {
			return out[i].Size > out[j].Size
		}
		return out[i].Cluster < out[j].Cluster
	})
	return out
}
