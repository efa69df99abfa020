// SPDX-License-Identifier: MIT
// Package build carries build metadata (name, version, commit, timestamp)
// injected at compile time through -ldflags. Development builds without
// ldflags fall back to placeholder values.
package build

// Populated via -ldflags "-X binterp/pkg/build.buildName=... " and friends.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

// Info describes one build of the binary.
type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// GetInfo returns the build metadata, substituting placeholders for any
// value the linker did not set.
func GetInfo() Info {
	info := Info{
		Name:    buildName,
		Time:    buildTime,
		Commit:  buildCommit,
		Version: buildVersion,
	}
	if info.Name == "" {
		info.Name = "binterp"
	}
	if info.Time == "" {
		info.Time = "unknown"
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	return info
}

// Description is the one-line summary shown by the CLI.
const Description = "Real-time spectral bin interpolation engine"
