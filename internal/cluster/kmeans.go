package cluster

import (
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/linkmap/internal/vector"
)

// kmeansResult is the raw output of Lloyd's algorithm.
type kmeansResult struct {
	assign     []int
	centroids  [][]float64
	iterations int
	converged  bool
}

// lloyd runs k-means over points. Initial centroids are the first k
// entries of a permutation drawn from a source seeded with seed, so equal
// inputs always give equal output.
func lloyd(points [][]float64, k int, seed int64, maxIter, workers int) kmeansResult {
	n := len(points)
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)

	centroids := make([][]float64, k)
	for c := 0; c < k; c++ {
		centroids[c] = append([]float64(nil), points[perm[c]]...)
	}

	assign := make([]int, n)
	for i := range assign {
		assign[i] = -1
	}

	res := kmeansResult{assign: assign, centroids: centroids}
	for iter := 1; iter <= maxIter; iter++ {
		res.iterations = iter
		if assignStep(points, centroids, assign, workers) == 0 {
			res.converged = true
			break
		}
		updateCentroids(points, centroids, assign)
	}

	return res
}

// assignStep moves every point to its nearest centroid and returns how
// many assignments changed. Points are split into fixed contiguous chunks
// and each chunk writes only its own indices.
func assignStep(points, centroids [][]float64, assign []int, workers int) int {
	n := len(points)
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers

	changed := make([]int, workers)
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		lo, hi := w*chunk, min((w+1)*chunk, n)
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				c := nearest(points[i], centroids)
				if c != assign[i] {
					assign[i] = c
					changed[w]++
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, c := range changed {
		total += c
	}
	return total
}

// nearest returns the index of the closest centroid; ties go to the lower index.
func nearest(p []float64, centroids [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := vector.SquaredDistance(p, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// updateCentroids recomputes each centroid as the mean of its members.
// A cluster that lost all members keeps its previous centroid.
func updateCentroids(points, centroids [][]float64, assign []int) {
	dim := len(centroids[0])
	sums := make([][]float64, len(centroids))
	counts := make([]int, len(centroids))
	for c := range sums {
		sums[c] = make([]float64, dim)
	}

	for i, c := range assign {
		counts[c]++
		for j, x := range points[i] {
			sums[c][j] += x
		}
	}

	for c := range centroids {
		if counts[c] == 0 {
			continue
		}
		for j := range sums[c] {
			centroids[c][j] = sums[c][j] / float64(counts[c])
		}
	}
}
