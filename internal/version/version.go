package version

import (
	"fmt"
	"runtime"
)

// These variables are set by ldflags during build.
var (
	version   = "dev"     // Release tag (e.g., v0.3.0)
	buildDate = "unknown" // Build date (RFC3339)
	gitCommit = "unknown" // Short commit SHA
)

// BuildInfo contains version and build details.
type BuildInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"buildDate"`
	GitCommit string `json:"gitCommit"`
	GoVersion string `json:"goVersion"`
}

// Get returns the build information.
func Get() BuildInfo {
	return BuildInfo{
		Version:   version,
		BuildDate: buildDate,
		GitCommit: gitCommit,
		GoVersion: runtime.Version(),
	}
}

// String renders the build information on one line, as printed by
// `lifecycled version`.
func (b BuildInfo) String() string {
	return fmt.Sprintf("lifecycled %s (commit %s, built %s, %s)", b.Version, b.GitCommit, b.BuildDate, b.GoVersion)
}

// AppID identifies this build in the user agent of AWS API calls, so
// writes to the instance table and ledger can be traced to a release.
func (b BuildInfo) AppID() string {
	return "lifecycled-" + b.Version // SDK caps app ids at 50 characters
}
