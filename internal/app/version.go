package app

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	GitTag    = ""
	BuildTime = "unknown"
)

// VersionInfo describes the running binary.
type VersionInfo struct {
	Version   string
	GitCommit string
	BuildTime string
	GoVersion string
	Platform  string
}

// GetVersionInfo returns the version information. A tag set at build time wins
// over the version; without ldflags the VCS revision from the build info is used.
func GetVersionInfo() VersionInfo {
	info := VersionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if GitTag != "" {
		info.Version = GitTag
	}

	if info.GitCommit == "unknown" {
		if build, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range build.Settings {
				if setting.Key == "vcs.revision" {
					info.GitCommit = setting.Value
				}
			}
		}
	}

	return info
}

// FullString returns a one-line version string for logs and the CLI.
func (v VersionInfo) FullString() string {
	return fmt.Sprintf("gotune-core %s (commit: %s, built: %s, %s %s)",
		v.Version, v.GitCommit, v.BuildTime, v.GoVersion, v.Platform)
}
