// Package topics names clusters with their most characteristic terms,
// scored by term frequency times inverse cluster frequency (TF-ICF).
package topics

import (
	"github.com/Aman-CERP/linkmap/internal/validation"
)

// Defaults.
const (
	DefaultTopN              = 8
	DefaultSamplesPerCluster = 3
	DefaultSeed              = 42
	DefaultMinTermLength     = 3
)

// Options configures a labeling run.
type Options struct {
	// TopN is the number of terms kept per cluster.
	TopN int `json:"top_n" validate:"gte=1"`
	// SamplesPerCluster is the number of sample titles per cluster.
	SamplesPerCluster int `json:"samples_per_cluster" validate:"gte=0"`
	// Seed drives sample selection.
	Seed int64 `json:"seed"`
	// StopwordsExtra extends the English stopword list.
	StopwordsExtra []string `json:"stopwords_extra"`
	// DedupeSubstrings drops terms that overlap an already selected one.
	DedupeSubstrings bool `json:"dedupe_substrings"`
	// MinTermLength drops shorter tokens. 0 means DefaultMinTermLength.
	MinTermLength int `json:"min_term_length" validate:"gte=0"`
}

// DefaultOptions returns the labeling defaults.
func DefaultOptions() Options {
	return Options{
		TopN:              DefaultTopN,
		SamplesPerCluster: DefaultSamplesPerCluster,
		Seed:              DefaultSeed,
		DedupeSubstrings:  true,
		MinTermLength:     DefaultMinTermLength,
	}
}

// Validate rejects out-of-range parameters.
func (o Options) Validate() error {
	return validation.Struct(o)
}

func (o Options) withDefaults() Options {
	if o.MinTermLength == 0 {
		o.MinTermLength = DefaultMinTermLength
	}
	return o
}
