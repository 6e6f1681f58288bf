// Package version holds build-time identifiers, set via -ldflags at build.
package version

var (
	Version = "dev"
	Commit  = "unknown"
)
