// Package version holds build metadata set with -ldflags at build time.
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String formats the build metadata for the version command and startup log.
func String() string {
	return fmt.Sprintf("devindex %s (commit %s, built %s)", Version, Commit, Date)
}
