// Package version reports the linkmap build.
package version

import (
	"fmt"
	"runtime"
)

// Version is injected with -ldflags "-X github.com/Aman-CERP/linkmap/pkg/version.Version=...".
var Version = "dev"

// Build metadata, injected the same way as Version.
var (
	Commit = "unknown"
	Date   = "unknown"

	GoVersion = runtime.Version()
)

// BuildInfo is the JSON form of the build metadata.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// String returns a one-line description of the build.
func String() string {
	return fmt.Sprintf("linkmap %s (commit %s, built %s, %s %s/%s)",
		Version, Commit, Date, GoVersion, runtime.GOOS, runtime.GOARCH)
}

// Short returns the version alone.
func Short() string {
	return Version
}

// GetInfo returns the build metadata.
func GetInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}
