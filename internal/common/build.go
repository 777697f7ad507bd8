package common

import (
	"fmt"
	"runtime/debug"
)

// Version and GitCommit are overridden with -ldflags at release time.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// GetModuleBuildInfo returns the version and commit this binary was built
// from. The bool is false when neither ldflags nor build info are available.
func GetModuleBuildInfo() (string, string, bool) {
	if Version != "dev" {
		return Version, GitCommit, true
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", "", false
	}

	gitCommit := GitCommit
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			gitCommit = setting.Value
			break
		}
	}

	return info.Main.Version, gitCommit, true
}

// GetUserAgent is sent with every request to the Zabbix frontend.
func GetUserAgent() string {
	version, _, ok := GetModuleBuildInfo()
	if !ok || len(version) == 0 {
		version = "unknown"
	}
	return fmt.Sprintf("zabbix-user/%s", version)
}
