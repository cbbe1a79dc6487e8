// Build metadata, set with -ldflags "-X macrocopilot/src/version.Commit=..."
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	Commit         = "unknown"
	Version        = "dev"
	BuildTimestamp = "unknown"
)

// GetBuildInfo merges the linker-set values over the toolchain's build
// settings (vcs.revision, GOOS, ...).
func GetBuildInfo() map[string]string {
	data := make(map[string]string)

	if bi, ok := debug.ReadBuildInfo(); ok {
		data["go_version"] = bi.GoVersion
		for _, s := range bi.Settings {
			data[s.Key] = s.Value
		}
	}

	data["commit"] = Commit
	data["version"] = Version
	data["build_timestamp"] = BuildTimestamp

	return data
}

func String() string {
	return fmt.Sprintf("macrocopilot %s (commit %s, built %s)", Version, Commit, BuildTimestamp)
}
