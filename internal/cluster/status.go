package cluster

import (
	"github.com/Aman-CERP/linkmap/internal/corpus"
)

// Status summarizes the clustering state of a domain.
type Status struct {
	TotalItems          int `json:"total_items"`
	TotalWithEmbeddings int `json:"total_with_embeddings"`
	TotalWithClusterID  int `json:"total_with_cluster_id"`
	DistinctClusters    int `json:"distinct_clusters"`
	EmbeddingDim        int `json:"embedding_dim"`
}

// StatusOf derives a Status from the current items.
func StatusOf(items []corpus.Item) Status {
	st := Status{TotalItems: len(items)}
	seen := make(map[int]struct{})
	for _, it := range items {
		if it.HasEmbedding() {
			st.TotalWithEmbeddings++
		}
		if it.ClusterID != nil {
			st.TotalWithClusterID++
			seen[*it.ClusterID] = struct{}{}
		}
	}
	st.DistinctClusters = len(seen)
	st.EmbeddingDim = corpus.DominantDimension(items)
	return st
}
