// Package version reports what build of heapcensus is running
package version

import "runtime/debug"

// BuildInfo is served by /api/meta/version and stamped into ClickHouse client info
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// set with -ldflags "-X heapcensus/internal/core/version.version=v0.3.0 -X ...commit=abc1234 -X ...date=2026-10-01"
var (
	version = "dev"
	commit  = ""
	date    = ""
)

var readBuildInfo = debug.ReadBuildInfo

// Info returns the linker-stamped values, falling back to the VCS stamp the
// go tool embeds when building from a checkout
func Info() BuildInfo {
	bi := BuildInfo{Service: "heapcensus", Version: version, Commit: commit, Date: date}
	if info, ok := readBuildInfo(); ok {
		for _, s := range info.Settings {
			switch {
			case s.Key == "vcs.revision" && bi.Commit == "":
				bi.Commit = s.Value[:min(7, len(s.Value))]
			case s.Key == "vcs.time" && bi.Date == "":
				bi.Date = s.Value
			}
		}
	}
	if bi.Commit == "" {
		bi.Commit = "none"
	}
	if bi.Date == "" {
		bi.Date = "unknown"
	}
	return bi
}
