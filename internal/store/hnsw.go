package store

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/coder/hnsw"

	lmerrors "github.com/Aman-CERP/linkmap/internal/errors"
)

// HNSW defaults.
const (
	DefaultHNSWM        = 16
	DefaultHNSWEfSearch = 64
)

// HNSWIndex is an in-memory approximate nearest-neighbour index over
// cosine distance, keyed by item ID. Level generation uses a seeded
// source so equal inputs build equal graphs.
type HNSWIndex struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[uint64]
	dim   int

	// ID mapping (string <-> uint64)
	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64
}

// NewHNSWIndex creates an empty index for dim-sized vectors.
func NewHNSWIndex(dim int, seed int64) *HNSWIndex {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = DefaultHNSWM
	g.EfSearch = DefaultHNSWEfSearch
	g.Ml = 0.25
	g.Rng = rand.New(rand.NewSource(seed))

	return &HNSWIndex{
		graph:  g,
		dim:    dim,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}
}

// Add inserts vectors with their IDs. Re-adding an ID orphans its old
// node rather than deleting it from the graph.
func (x *HNSWIndex) Add(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	for _, v := range vectors {
		if len(v) != x.dim {
			return dimensionMismatch(x.dim, len(v))
		}
	}

	for i, id := range ids {
		if old, ok := x.idMap[id]; ok {
			delete(x.keyMap, old)
		}
		key := x.nextKey
		x.nextKey++

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		x.graph.Add(hnsw.MakeNode(key, vec))

		x.idMap[id] = key
		x.keyMap[key] = id
	}
	return nil
}

// Search returns the IDs of up to k nearest neighbours of query, closest
// first.
func (x *HNSWIndex) Search(query []float32, k int) ([]string, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(query) != x.dim {
		return nil, dimensionMismatch(x.dim, len(query))
	}
	if x.graph.Len() == 0 || k <= 0 {
		return []string{}, nil
	}

	nodes := x.graph.Search(query, k)
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if id, ok := x.keyMap[n.Key]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// Len returns the number of live IDs.
func (x *HNSWIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.idMap)
}

func dimensionMismatch(expected, got int) error {
	return lmerrors.New(lmerrors.ErrCodeDimensionMismatch,
		fmt.Sprintf("vector dimension mismatch: expected %d, got %d", expected, got), nil).
		WithDetail("expected", fmt.Sprint(expected)).
		WithDetail("got", fmt.Sprint(got))
}
