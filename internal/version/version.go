package version

import (
	"fmt"
	"runtime"
)

// APIVersion is the version of the command API reported by health probes.
// It changes only when payloads or routes change, not on every release.
const APIVersion = "1.0.0"

var (
	// Version is the release of the binaries, set via ldflags.
	Version = "dev"
	// Commit is the short git SHA embedded at build time.
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns the release string.
func Short() string {
	return Version
}

// Full describes the build of the named binary, including the API it speaks
// and the platform it was compiled for.
func Full(binary string) string {
	return fmt.Sprintf(
		"%s %s (api %s, commit %s, built %s, %s %s/%s)",
		binary, Version, APIVersion, Commit, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH,
	)
}
