// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"runtime/debug"
	"testing"
)

var (
	origName    string
	origTime    string
	origCommit  string
	origVersion string
	origFlags   ldFlags
	origRead    func() (*debug.BuildInfo, bool)
)

func TestMain(m *testing.M) {
	origName = buildName
	origTime = buildTime
	origCommit = buildCommit
	origVersion = buildVersion
	origFlags = *buildFlags
	origRead = readBuildInfo

	exitCode := m.Run()

	buildName = origName
	buildTime = origTime
	buildCommit = origCommit
	buildVersion = origVersion
	*buildFlags = origFlags
	readBuildInfo = origRead

	os.Exit(exitCode)
}

func vcsInfo() (*debug.BuildInfo, bool) {
	return &debug.BuildInfo{
		Main: debug.Module{Path: "example.com/tools/spectra", Version: "v1.2.3"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2025-04-13T10:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}, true
}

func develInfo() (*debug.BuildInfo, bool) {
	return &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, true
}

func noInfo() (*debug.BuildInfo, bool) { return nil, false }

func TestInitialize(t *testing.T) {
	tests := []struct {
		name    string
		ld      [4]string // name, time, commit, version
		read    func() (*debug.BuildInfo, bool)
		want    ldFlags
		wantStr string
	}{
		{
			"ldflags win",
			[4]string{"testapp", "2025-04-13", "abcdef123", "v1.0.0"},
			vcsInfo,
			ldFlags{Name: "testapp", Time: "2025-04-13", Commit: "abcdef123", Version: "v1.0.0", Dirty: true},
			"v1.0.0 (commit abcdef123-dirty, built 2025-04-13)",
		},
		{
			"vcs fallback",
			[4]string{},
			vcsInfo,
			ldFlags{Name: "spectra", Time: "2025-04-13T10:00:00Z", Commit: "0123456789abcdef0123", Version: "v1.2.3", Dirty: true},
			"v1.2.3 (commit 0123456789ab-dirty, built 2025-04-13T10:00:00Z)",
		},
		{
			"devel build",
			[4]string{"", "", "", ""},
			develInfo,
			ldFlags{Name: DefaultName, Time: unknown, Commit: unknown, Version: unknown},
			"unknown (commit unknown, built unknown)",
		},
		{
			"no build info",
			[4]string{"", "", "abc", ""},
			noInfo,
			ldFlags{Name: DefaultName, Time: unknown, Commit: "abc", Version: unknown},
			"unknown (commit abc, built unknown)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buildName, buildTime, buildCommit, buildVersion = tt.ld[0], tt.ld[1], tt.ld[2], tt.ld[3]
			readBuildInfo = tt.read

			Initialize()

			got := GetBuildFlags()
			if *got != tt.want {
				t.Errorf("GetBuildFlags() = %+v, want %+v", *got, tt.want)
			}
			if got.String() != tt.wantStr {
				t.Errorf("String() = %q, want %q", got.String(), tt.wantStr)
			}
		})
	}
}
