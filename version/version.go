// Package version reports the build of the roam binary.
//
// The variables are set at link time:
//
//	go build -ldflags "-X github.com/roamvpn/roam/version.Version=0.2.0 \
//	    -X github.com/roamvpn/roam/version.GitCommit=$(git rev-parse --short HEAD)"
package version

import "strings"

var (
	// Version is the release version. Development builds report "dev".
	Version = "dev"

	// GitCommit is the abbreviated commit hash, if known.
	GitCommit = ""

	// BuildTime is the RFC 3339 build timestamp, if known.
	BuildTime = ""
)

// Full returns the version with commit and build time appended when set,
// e.g. "0.2.0-1a2b3c4 (2026-10-19T12:00:00Z)".
func Full() string {
	var b strings.Builder
	b.WriteString(Version)
	if GitCommit != "" {
		b.WriteString("-")
		b.WriteString(GitCommit)
	}
	if BuildTime != "" {
		b.WriteString(" (")
		b.WriteString(BuildTime)
		b.WriteString(")")
	}
	return b.String()
}
