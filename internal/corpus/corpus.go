// Package corpus defines the page records every analysis operates on and
// the eligibility rules that decide which embeddings take part.
package corpus

import (
	"sort"

	"github.com/Aman-CERP/linkmap/internal/vector"
)

// Item is one crawled page of a domain.
type Item struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`
	// ClusterID is nil until a commit assigns one.
	ClusterID *int `json:"cluster_id,omitempty"`
}

// HasEmbedding reports whether the item carries a vector.
func (it Item) HasEmbedding() bool {
	return len(it.Embedding) > 0
}

// Link is a directed hyperlink between two page URLs.
type Link struct {
	SourceURL string `json:"source"`
	TargetURL string `json:"target"`
	Anchor    string `json:"anchor,omitempty"`
	Nofollow  bool   `json:"nofollow,omitempty"`
}

// Exclusions counts items left out of a computation and why.
type Exclusions struct {
	MissingEmbedding  int `json:"missing_embedding"`
	DimensionMismatch int `json:"dimension_mismatch"`
	ZeroNorm          int `json:"zero_norm"`
	// Truncated counts eligible items dropped by a max_items cap.
	Truncated int `json:"truncated"`
}

// Total returns the number of excluded items.
func (e Exclusions) Total() int {
	return e.MissingEmbedding + e.DimensionMismatch + e.ZeroNorm + e.Truncated
}

// Selection is the outcome of SelectEligible.
type Selection struct {
	// Items are the eligible items in ascending ID order.
	Items []Item
	// Dimension is the embedding length shared by Items (0 if none).
	Dimension int
	Excluded  Exclusions
}

// SortByID returns a copy of items ordered by ascending ID.
func SortByID(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SelectEligible filters items down to those whose embeddings can be
// compared with each other:
//
//   - items are ordered by ID,
//   - items without an embedding are counted and dropped,
//   - the domain dimension is the most common embedding length (ties go to
//     the length of the first item in ID order); other lengths are counted
//     as mismatches and dropped,
//   - zero-norm vectors are counted and dropped,
//   - when maxItems > 0 only the first maxItems survivors are kept.
func SelectEligible(items []Item, maxItems int) Selection {
	ordered := SortByID(items)

	var sel Selection
	withVec := make([]Item, 0, len(ordered))
	for _, it := range ordered {
		if !it.HasEmbedding() {
			sel.Excluded.MissingEmbedding++
			continue
		}
		withVec = append(withVec, it)
	}

	sel.Dimension = DominantDimension(withVec)

	eligible := make([]Item, 0, len(withVec))
	for _, it := range withVec {
		if len(it.Embedding) != sel.Dimension {
			sel.Excluded.DimensionMismatch++
			continue
		}
		if vector.Norm(it.Embedding) == 0 {
			sel.Excluded.ZeroNorm++
			continue
		}
		eligible = append(eligible, it)
	}

	if maxItems > 0 && len(eligible) > maxItems {
		sel.Excluded.Truncated = len(eligible) - maxItems
		eligible = eligible[:maxItems]
	}

	sel.Items = eligible
	if len(eligible) == 0 {
		sel.Dimension = 0
	}
	return sel
}

// DominantDimension returns the most frequent embedding length among
// items, preferring the first-seen length on ties. Items without an
// embedding are ignored. Returns 0 when there are none.
func DominantDimension(items []Item) int {
	counts := make(map[int]int)
	var order []int
	for _, it := range items {
		if !it.HasEmbedding() {
			continue
		}
		d := len(it.Embedding)
		if counts[d] == 0 {
			order = append(order, d)
		}
		counts[d]++
	}

	best, bestCount := 0, 0
	for _, d := range order {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}
