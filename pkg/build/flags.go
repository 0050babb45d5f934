// SPDX-License-Identifier: MIT
//
// Package build exposes version metadata injected at compile time via
// -ldflags. Development builds fall back to placeholder values so the
// binary stays runnable without the flags.
package build

import "sync"

// Info holds the build metadata for the binary.
type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// Populated by -ldflags at compile time, for example:
//
//	go build -ldflags "-X roomsweep/pkg/build.name=roomsweep \
//	  -X roomsweep/pkg/build.version=0.2.0 \
//	  -X roomsweep/pkg/build.commit=$(git rev-parse --short HEAD) \
//	  -X roomsweep/pkg/build.time=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	name    string
	time    string
	commit  string
	version string

	once sync.Once
	info Info
)

// Get returns the build info, resolving ldflags once on first use.
// Unset fields keep development placeholders.
func Get() Info {
	once.Do(func() {
		info = Info{
			Name:    orDefault(name, "roomsweep"),
			Time:    orDefault(time, "unknown"),
			Commit:  orDefault(commit, "unknown"),
			Version: orDefault(version, "dev"),
		}
	})
	return info
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
