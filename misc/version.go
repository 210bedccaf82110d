// Package misc holds small helpers shared by commands.
package misc

import (
	"runtime/debug"
	"sync"
)

const appName = "spritec"

// GetAppName returns the short program name used for logs, temp files and
// report naming.
func GetAppName() string {
	return appName
}

var buildInfo = sync.OnceValues(func() (string, string) {
	version, hash := "devel", "unknown"
	if bi, ok := debug.ReadBuildInfo(); ok {
		if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 12 {
				hash = s.Value[:12]
			}
		}
	}
	return version, hash
})

// GetVersion returns module version recorded in build information.
func GetVersion() string {
	v, _ := buildInfo()
	return v
}

// GetGitHash returns abbreviated VCS revision recorded in build information.
func GetGitHash() string {
	_, h := buildInfo()
	return h
}
