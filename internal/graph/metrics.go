package graph

import (
	"math"
)

// adjacency is an index-based view of the edge set.
type adjacency struct {
	n   int
	out [][]int
	in  [][]int
}

func newAdjacency(n int, edges [][2]int) *adjacency {
	a := &adjacency{n: n, out: make([][]int, n), in: make([][]int, n)}
	for _, e := range edges {
		a.out[e[0]] = append(a.out[e[0]], e[1])
		a.in[e[1]] = append(a.in[e[1]], e[0])
	}
	return a
}

// pageRank runs the random-surfer power iteration. Rank held by nodes with
// no out-edges is spread uniformly. Stops when the L1 change drops below tol.
func pageRank(a *adjacency, cfg Config) (rank []float64, iterations int, converged bool) {
	n := a.n
	if n == 0 {
		return []float64{}, 0, true
	}

	rank = make([]float64, n)
	for i := range rank {
		rank[i] = 1 / float64(n)
	}
	next := make([]float64, n)
	teleport := (1 - cfg.Damping) / float64(n)

	for iterations < cfg.MaxIter {
		iterations++

		dangling := 0.0
		for i := range next {
			next[i] = teleport
		}
		for i, outs := range a.out {
			if len(outs) == 0 {
				dangling += rank[i]
				continue
			}
			share := cfg.Damping * rank[i] / float64(len(outs))
			for _, j := range outs {
				next[j] += share
			}
		}
		spread := cfg.Damping * dangling / float64(n)

		delta := 0.0
		for i := range next {
			next[i] += spread
			delta += math.Abs(next[i] - rank[i])
		}
		rank, next = next, rank

		if delta < cfg.Tol {
			converged = true
			break
		}
	}
	return rank, iterations, converged
}

// hits computes authority and hub scores. Both start at 1; each iteration
// sets authority from in-neighbour hubs, then hub from out-neighbour
// authorities, L2-normalizing each. Stops when both L1 changes drop below
// tol.
func hits(a *adjacency, cfg Config) (authority, hub []float64, iterations int, converged bool) {
	n := a.n
	authority = make([]float64, n)
	hub = make([]float64, n)
	if n == 0 {
		return authority, hub, 0, true
	}
	for i := 0; i < n; i++ {
		authority[i], hub[i] = 1, 1
	}

	nextAuth := make([]float64, n)
	nextHub := make([]float64, n)
	for iterations < cfg.MaxIter {
		iterations++

		for j := 0; j < n; j++ {
			sum := 0.0
			for _, i := range a.in[j] {
				sum += hub[i]
			}
			nextAuth[j] = sum
		}
		normalizeL2(nextAuth)

		for i := 0; i < n; i++ {
			sum := 0.0
			for _, j := range a.out[i] {
				sum += nextAuth[j]
			}
			nextHub[i] = sum
		}
		normalizeL2(nextHub)

		dAuth, dHub := l1(nextAuth, authority), l1(nextHub, hub)
		authority, nextAuth = nextAuth, authority
		hub, nextHub = nextHub, hub

		if dAuth < cfg.Tol && dHub < cfg.Tol {
			converged = true
			break
		}
	}
	return authority, hub, iterations, converged
}

// normalizeL2 scales v to unit length; an all-zero vector is left as is.
func normalizeL2(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] /= norm
	}
}

func l1(a, b []float64) float64 {
	var d float64
	for i := range a {
		d += math.Abs(a[i] - b[i])
	}
	return d
}
