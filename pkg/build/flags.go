// SPDX-License-Identifier: MIT
//
// Package build provides the name, build timestamp, commit and version of
// the binary. Values come from linker flags when present:
//
//	go build -ldflags "-X spectra/pkg/build.buildVersion=0.3.0 -X spectra/pkg/build.buildCommit=$(git rev-parse HEAD)"
//
// Anything left unset falls back to the module and VCS settings the Go
// toolchain embeds, and finally to "unknown".
package build

import (
	"runtime/debug"
	"strings"
)

const unknown = "unknown"

// DefaultName is used when neither ldflags nor module information name the binary.
const DefaultName = "spectra"

// Description is the one-line summary shown by the CLI.
const Description = "Spectral analysis of PCM WAVE files"

type ldFlags struct {
	Name    string
	Time    string
	Commit  string
	Version string
	Dirty   bool // Working tree had local modifications at build time
}

// Package-level variables for build information. These are populated by -ldflags
// during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:    DefaultName,
		Time:    unknown,
		Commit:  unknown,
		Version: unknown,
	}

	readBuildInfo = debug.ReadBuildInfo
)

// Initialize resolves build information into the value returned by
// GetBuildFlags. Call it once early in program startup.
func Initialize() {
	flags := ldFlags{
		Name:    buildName,
		Time:    buildTime,
		Commit:  buildCommit,
		Version: buildVersion,
	}

	if info, ok := readBuildInfo(); ok {
		if flags.Name == "" && info.Main.Path != "" {
			flags.Name = info.Main.Path[strings.LastIndex(info.Main.Path, "/")+1:]
		}
		if flags.Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			flags.Version = info.Main.Version
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if flags.Commit == "" {
					flags.Commit = s.Value
				}
			case "vcs.time":
				if flags.Time == "" {
					flags.Time = s.Value
				}
			case "vcs.modified":
				flags.Dirty = s.Value == "true"
			}
		}
	}

	if flags.Name == "" {
		flags.Name = DefaultName
	}
	for _, v := range []*string{&flags.Time, &flags.Commit, &flags.Version} {
		if *v == "" {
			*v = unknown
		}
	}

	*buildFlags = flags
}

// GetBuildFlags returns the current build information. Before Initialize
// every field except Name reads "unknown".
func GetBuildFlags() *ldFlags {
	return buildFlags
}

// String formats the information for --version output.
func (f *ldFlags) String() string {
	commit := f.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if f.Dirty {
		commit += "-dirty"
	}
	return f.Version + " (commit " + commit + ", built " + f.Time + ")"
}
