// Package version carries the build identity stamped into the plugin binary
// with -ldflags, surfaced on the debug endpoint and in the startup log.
package version

import "runtime"

// Stamped at build time, e.g.
//
//	go build -ldflags "-X .../internal/platform/version.Version=v1.2.0"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info is one build-identity snapshot.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Get pairs the stamped values with the Go runtime that built the binary.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}
