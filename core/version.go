package core

// Version is the application version, overridable at build time:
//
//	go build -ldflags "-X github.com/deanable/wanvidgen/core.Version=$(git describe --tags --always)" .
var Version = "0.1.0"

// GitCommit is the git commit hash, set at build time via ldflags.
// Defaults to "unknown" for local builds.
var GitCommit = "unknown"

// VersionInfo returns a one-line version string for logs and the
// system check report.
//
// Examples:
//   - "0.1.0 (commit abc1234)"
//   - "0.1.0"
func VersionInfo() string {
	if GitCommit == "unknown" || GitCommit == "" {
		return Version
	}
	return Version + " (commit " + GitCommit + ")"
}
