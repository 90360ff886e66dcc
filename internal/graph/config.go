// Package graph builds the directed link graph of a domain and ranks its
// pages with PageRank and HITS.
package graph

import (
	"github.com/Aman-CERP/linkmap/internal/validation"
)

// Defaults.
const (
	DefaultDamping = 0.85
	DefaultMaxIter = 50
	DefaultTol     = 1e-6
)

// Config holds the power-iteration parameters shared by both metrics.
type Config struct {
	Damping float64 `json:"damping" yaml:"damping" validate:"gt=0,lt=1"`
	MaxIter int     `json:"max_iter" yaml:"max_iter" validate:"gte=1"`
	Tol     float64 `json:"tol" yaml:"tol" validate:"gt=0"`
}

// DefaultConfig returns the metric defaults.
func DefaultConfig() Config {
	return Config{Damping: DefaultDamping, MaxIter: DefaultMaxIter, Tol: DefaultTol}
}

// Validate rejects out-of-range parameters.
func (c Config) Validate() error {
	return validation.Struct(c)
}
