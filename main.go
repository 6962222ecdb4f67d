package main

import (
	"runtime/debug"

	"github.com/marcus/roster/cmd"
)

// Version is overridable at build time with -ldflags "-X main.Version=...".
var Version = "dev"

// resolveVersion falls back to Go build info when no version was injected:
// the module version for `go install ...@vX.Y.Z` builds, or the VCS
// revision for local builds.
func resolveVersion() string {
	if Version != "" && Version != "dev" {
		return Version
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Version
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			rev := s.Value
			if len(rev) > 12 {
				rev = rev[:12]
			}
			return "devel+" + rev
		}
	}
	return Version
}

func main() {
	cmd.SetVersion(resolveVersion())
	cmd.Execute()
}
