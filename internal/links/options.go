// Package links proposes internal links between pages of a domain by
// cosine similarity of their embeddings.
package links

import (
	"github.com/Aman-CERP/linkmap/internal/validation"
)

// Candidate generation modes.
const (
	// CandidatesExact scores every pair.
	CandidatesExact = "exact"
	// CandidatesHNSW draws candidates from an approximate index and
	// re-scores them exactly.
	CandidatesHNSW = "hnsw"
)

// Defaults.
const (
	DefaultPerItem  = 3
	DefaultMinSim   = 0.45
	DefaultMaxItems = 1000
	DefaultSeed     = 42

	// hnswOversample is how many extra neighbours are requested per source
	// to make up for filtered targets.
	hnswOversample = 4
)

// Options configures a suggestion run.
type Options struct {
	PerItem int     `json:"per_item" validate:"gte=1"`
	MinSim  float64 `json:"min_sim" validate:"gte=0,lte=1"`
	// MaxItems caps eligible items (ID order). 0 means no cap.
	MaxItems          int  `json:"max_items" validate:"gte=0"`
	FallbackWhenEmpty bool `json:"fallback_when_empty"`
	// ExcludeRegex removes matching target URLs (RE2 syntax).
	ExcludeRegex string `json:"exclude_regex"`
	// SkipHomepage drops targets whose path is "/".
	SkipHomepage bool `json:"skip_homepage"`
	// SkipSamePath drops targets with the source's path.
	SkipSamePath bool   `json:"skip_same_path"`
	Candidates   string `json:"candidates" validate:"omitempty,oneof=exact hnsw"`
	// Seed drives HNSW level generation.
	Seed    int64 `json:"seed"`
	Workers int   `json:"workers" validate:"gte=0"`
}

// DefaultOptions returns the suggestion defaults.
func DefaultOptions() Options {
	return Options{
		PerItem:      DefaultPerItem,
		MinSim:       DefaultMinSim,
		MaxItems:     DefaultMaxItems,
		SkipHomepage: true,
		SkipSamePath: true,
		Candidates:   CandidatesExact,
		Seed:         DefaultSeed,
	}
}

// Validate rejects out-of-range parameters. The exclude pattern is checked
// when it is compiled.
func (o Options) Validate() error {
	return validation.Struct(o)
}
