package version

import "fmt"

var (
	// Version is the release tag, e.g. v0.3.1.
	Version = "dev"
	// Commit is the short git SHA.
	Commit = "none"
	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// Short returns only the release tag.
func Short() string {
	return Version
}

// Full returns the release tag with commit and build time.
func Full() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime)
}

// Fields returns the build metadata as logger key-value pairs.
func Fields() []any {
	return []any{"version", Version, "commit", Commit, "build_time", BuildTime}
}
