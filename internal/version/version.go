// Package version reports the daemon's build version from embedded VCS
// metadata, the way pmount's internal/version does, minus the gobot
// helper that package leaned on.
package version

import (
	"fmt"
	"runtime/debug"
)

var Version string = "dev"

// GetVersion formats progName, Version, and whatever VCS metadata the Go
// toolchain embedded at build time into one line suitable for a
// "--version" flag or a startup log line.
func GetVersion(progName string) string {
	vs := fmt.Sprintf("%s version %s", progName, Version)

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return vs
	}

	vs = fmt.Sprintf("%s %s/%s", vs, goEnv(bi, "GOOS"), goEnv(bi, "GOARCH"))

	var revision, modified, vcsTime string
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value
		case "vcs.time":
			vcsTime = s.Value
		}
	}
	if revision != "" {
		if len(revision) > 10 {
			revision = revision[:10]
		}
		if modified == "true" {
			revision += "-dirty"
		}
		vs = fmt.Sprintf("%s rev %s on %s", vs, revision, vcsTime)
	}

	return vs
}

func goEnv(bi *debug.BuildInfo, key string) string {
	for _, s := range bi.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return "unknown"
}
