// Package version holds build metadata stamped at link time.
package version

//nolint:revive // Overridden via -ldflags in release builds.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
