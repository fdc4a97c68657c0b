// Package version provides build-time version information.
package version

import "fmt"

// These variables are set at build time using -ldflags, e.g.
//
//	-X github.com/hytous/RigidLabeler/internal/version.Version=1.2.0
var (
	// Version is the semantic version
	Version = "0.1.0"

	// BuildTime is the UTC time when the binary was built
	BuildTime = "unknown"

	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// Info is the version information reported by the health endpoint.
type Info struct {
	Version   string `json:"version"`
	Backend   string `json:"backend"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// Get returns the version information of the running binary.
func Get() Info {
	return Info{
		Version:   Version,
		Backend:   "go",
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	}
}

// String returns a one-line description for the version command.
func String() string {
	return fmt.Sprintf("rigidlabeler %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
