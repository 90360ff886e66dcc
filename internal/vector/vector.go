// Package vector holds the small amount of linear algebra shared by the
// clustering and link-suggestion engines.
//
// Embeddings are stored as []float32; all arithmetic is done in float64.
package vector

import "math"

// Dot returns the dot product of a and b. The vectors must have equal length.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float64 {
	return math.Sqrt(Dot(v, v))
}

// Cosine returns dot(a,b) / (|a|·|b|). ok is false when either vector has
// zero norm or the lengths differ, in which case similarity is undefined.
func Cosine(a, b []float32) (sim float64, ok bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0, false
	}
	return Dot(a, b) / (na * nb), true
}

// Normalize returns an L2-normalized float64 copy of v.
// A zero vector is returned as zeros.
func Normalize(v []float32) []float64 {
	out := make([]float64, len(v))
	n := Norm(v)
	if n == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float64(x) / n
	}
	return out
}

// ToFloat64 returns a float64 copy of v.
func ToFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// ToFloat32 returns a float32 copy of v.
func ToFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// NormalizeInPlace scales v to unit length. A zero vector is left untouched.
func NormalizeInPlace(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	n := math.Sqrt(sum)
	for i := range v {
		v[i] /= n
	}
}

// SquaredDistance returns the squared Euclidean distance between a and b.
func SquaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Dot64 is Dot for float64 vectors.
func Dot64(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Round rounds x to the given number of decimal places.
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
