// Package configs holds the commented configuration templates written by
// `linkmap config init`. They are embedded at build time so every binary
// carries them.
//
// Every setting in the templates is commented out and shows its default,
// so a freshly written file changes nothing until a line is uncommented.
package configs

import _ "embed"

// UserConfigTemplate is written to ~/.config/linkmap/config.yaml. It covers
// machine-level settings: where the store lives, which embedder runs, and
// the server's logging and metrics.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is written to .linkmap.yaml. It covers the analysis
// parameters a site's configuration is likely to tune.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
