// Package cluster partitions a domain's page embeddings into k groups with
// a deterministic, seeded k-means.
package cluster

import (
	"github.com/Aman-CERP/linkmap/internal/validation"
)

// Distance metrics.
const (
	// MetricCosine normalizes vectors before Euclidean k-means, which ranks
	// neighbours exactly like cosine similarity.
	MetricCosine = "cosine"
	// MetricEuclidean clusters the raw vectors.
	MetricEuclidean = "euclidean"
)

// Defaults.
const (
	DefaultK               = 8
	DefaultSeed            = 42
	DefaultMaxIter         = 50
	DefaultMaxItems        = 1000
	DefaultPreviewMaxItems = 800
)

// Options configures one clustering run.
type Options struct {
	// K is the requested number of clusters; clamped to the eligible count.
	K int `json:"k" validate:"gte=1"`
	// Seed drives initial centroid selection.
	Seed int64 `json:"seed"`
	// MaxItems caps eligible items (ID order). 0 means no cap.
	MaxItems int `json:"max_items" validate:"gte=0"`
	// MaxIter bounds Lloyd iterations. 0 means DefaultMaxIter.
	MaxIter int `json:"max_iter" validate:"gte=0"`
	// Metric is MetricCosine (default) or MetricEuclidean.
	Metric string `json:"metric" validate:"omitempty,oneof=cosine euclidean"`
	// Workers parallelizes the assignment step. 0 means GOMAXPROCS.
	Workers int `json:"workers" validate:"gte=0"`
}

// DefaultOptions returns the commit defaults.
func DefaultOptions() Options {
	return Options{
		K:        DefaultK,
		Seed:     DefaultSeed,
		MaxItems: DefaultMaxItems,
		MaxIter:  DefaultMaxIter,
		Metric:   MetricCosine,
	}
}

// Validate rejects out-of-range parameters.
func (o Options) Validate() error {
	return validation.Struct(o)
}

func (o Options) withDefaults() Options {
	if o.MaxIter == 0 {
		o.MaxIter = DefaultMaxIter
	}
	if o.Metric == "" {
		o.Metric = MetricCosine
	}
	return o
}
