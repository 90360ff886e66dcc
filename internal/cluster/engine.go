package cluster

import (
	"sort"

	"github.com/Aman-CERP/linkmap/internal/corpus"
	"github.com/Aman-CERP/linkmap/internal/vector"
)

// Assignment places one item in one cluster.
type Assignment struct {
	ItemID  string `json:"item_id"`
	Cluster int    `json:"cluster"`
}

// Result is the outcome of a clustering run.
type Result struct {
	KEffective int `json:"k_effective"`
	// Assignments are in ascending item ID order.
	Assignments []Assignment `json:"assignments"`
	// Centroids are indexed by cluster; unit length under MetricCosine.
	Centroids [][]float32 `json:"centroids"`
	Sizes     []int       `json:"sizes"`

	Eligible  int               `json:"eligible"`
	Excluded  corpus.Exclusions `json:"excluded"`
	Dimension int               `json:"embedding_dim"`

	Iterations int  `json:"iterations"`
	Converged  bool `json:"converged"`
	// NoEligibleItems is set, with an otherwise empty result, when no item
	// had a usable embedding.
	NoEligibleItems bool `json:"no_eligible_items"`
}

// ByItem returns the assignments keyed by item ID.
func (r *Result) ByItem() map[string]int {
	out := make(map[string]int, len(r.Assignments))
	for _, a := range r.Assignments {
		out[a.ItemID] = a.Cluster
	}
	return out
}

// Preview clusters items without touching any persisted state.
func Preview(items []corpus.Item, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	sel := corpus.SelectEligible(items, opts.MaxItems)
	res := &Result{
		Assignments: []Assignment{},
		Centroids:   [][]float32{},
		Sizes:       []int{},
		Eligible:    len(sel.Items),
		Excluded:    sel.Excluded,
		Dimension:   sel.Dimension,
	}
	if len(sel.Items) == 0 {
		res.NoEligibleItems = true
		res.Converged = true
		return res, nil
	}

	k := min(opts.K, len(sel.Items))
	points := make([][]float64, len(sel.Items))
	for i, it := range sel.Items {
		if opts.Metric == MetricCosine {
			points[i] = vector.Normalize(it.Embedding)
		} else {
			points[i] = vector.ToFloat64(it.Embedding)
		}
	}

	km := lloyd(points, k, opts.Seed, opts.MaxIter, opts.Workers)

	res.KEffective = k
	res.Iterations = km.iterations
	res.Converged = km.converged
	res.Sizes = make([]int, k)
	res.Assignments = make([]Assignment, len(sel.Items))
	for i, it := range sel.Items {
		c := km.assign[i]
		res.Assignments[i] = Assignment{ItemID: it.ID, Cluster: c}
		res.Sizes[c]++
	}
	res.Centroids = make([][]float32, k)
	for c, centroid := range km.centroids {
		if opts.Metric == MetricCosine {
			vector.NormalizeInPlace(centroid)
		}
		res.Centroids[c] = vector.ToFloat32(centroid)
	}

	return res, nil
}

// Change is one cluster_id write the caller must persist.
// A nil To resets the item to unassigned.
type Change struct {
	ItemID string `json:"item_id"`
	From   *int   `json:"from"`
	To     *int   `json:"to"`
}

// CommitPlan is a clustering result plus the writes that make the domain's
// persisted cluster ids reflect it. The caller applies Changes atomically.
type CommitPlan struct {
	*Result
	Changes []Change `json:"changes"`
	// Updated counts items whose cluster id changes, including resets.
	Updated int `json:"updated"`
	// Reset counts previously assigned items that end up unassigned
	// because they were not part of this run.
	Reset               int `json:"reset"`
	TotalWithEmbeddings int `json:"total_with_embeddings"`
}

// Commit clusters items and plans the cluster_id writes. Every item in the
// run gets its new cluster; every other item that still carries a cluster
// id from an earlier run is reset, so the domain holds exactly one
// assignment per item afterwards. With no eligible items nothing is
// planned.
func Commit(items []corpus.Item, opts Options) (*CommitPlan, error) {
	res, err := Preview(items, opts)
	if err != nil {
		return nil, err
	}

	plan := &CommitPlan{Result: res, Changes: []Change{}}
	for _, it := range items {
		if it.HasEmbedding() {
			plan.TotalWithEmbeddings++
		}
	}
	if res.NoEligibleItems {
		return plan, nil
	}

	assigned := res.ByItem()
	for _, it := range corpus.SortByID(items) {
		if c, ok := assigned[it.ID]; ok {
			if it.ClusterID != nil && *it.ClusterID == c {
				continue
			}
			to := c
			plan.Changes = append(plan.Changes, Change{ItemID: it.ID, From: it.ClusterID, To: &to})
			continue
		}
		if it.ClusterID != nil {
			plan.Changes = append(plan.Changes, Change{ItemID: it.ID, From: it.ClusterID})
			plan.Reset++
		}
	}
	plan.Updated = len(plan.Changes)

	return plan, nil
}

// Clear returns, in ID order, the items whose cluster id must be reset to
// null. Once those resets are persisted a second call returns nothing.
func Clear(items []corpus.Item) []string {
	ids := make([]string, 0)
	for _, it := range items {
		if it.ClusterID != nil {
			ids = append(ids, it.ID)
		}
	}
	sort.Strings(ids)
	return ids
}
