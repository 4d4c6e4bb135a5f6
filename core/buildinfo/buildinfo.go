// Package buildinfo carries release metadata stamped at link time:
//
//	go build -ldflags "-X github.com/m3rciful/menubot/core/buildinfo.Version=v1.0.0 \
//	  -X github.com/m3rciful/menubot/core/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/m3rciful/menubot/core/buildinfo.Date=$(date -u +%FT%TZ)"
package buildinfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

var (
	Version = "dev"
	Commit  = "local"
	Date    = ""
)

func init() {
	if Commit != "local" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if len(s.Value) > 7 {
				Commit = s.Value[:7]
			} else if s.Value != "" {
				Commit = s.Value
			}
		case "vcs.time":
			if Date == "" {
				Date = s.Value
			}
		}
	}
}

// Text renders the build metadata one field per line.
func Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "version: %s\ncommit: %s", Version, Commit)
	if Date != "" {
		fmt.Fprintf(&b, "\nbuilt: %s", Date)
	}
	fmt.Fprintf(&b, "\ngo: %s", runtime.Version())
	return b.String()
}
