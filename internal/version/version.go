// Package version reports the build identity of the origo binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// Set at build time with -ldflags "-X github.com/origolabs/origo/internal/version.Version=...".
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// Info describes the running binary.
type Info struct {
	Version   string    `json:"version" yaml:"version"`
	GitCommit string    `json:"git_commit,omitempty" yaml:"git_commit,omitempty"`
	Dirty     bool      `json:"dirty,omitempty" yaml:"dirty,omitempty"`
	BuildTime time.Time `json:"build_time,omitempty" yaml:"build_time,omitempty"`
	GoVersion string    `json:"go_version" yaml:"go_version"`
	Platform  string    `json:"platform" yaml:"platform"`
}

// vcs holds the settings the go tool embeds for module builds.
type vcs struct {
	version  string
	revision string
	modified bool
	time     string
}

func readVCS() vcs {
	var v vcs

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}
	if info.Main.Version != "(devel)" {
		v.version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			v.revision = s.Value
		case "vcs.modified":
			v.modified = s.Value == "true"
		case "vcs.time":
			v.time = s.Value
		}
	}

	return v
}

// Get assembles the build information, preferring linker-provided values
// over what the go tool recorded.
func Get() Info {
	return resolve(readVCS())
}

func resolve(v vcs) Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		Dirty:     v.modified,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if info.GitCommit == "" {
		info.GitCommit = v.revision
	}
	if info.Version == "" || info.Version == "dev" {
		switch {
		case v.version != "":
			info.Version = v.version
		case len(info.GitCommit) >= 7:
			info.Version = "dev-" + info.GitCommit[:7]
		default:
			info.Version = "dev"
		}
	}

	stamp := BuildTime
	if stamp == "" {
		stamp = v.time
	}
	info.BuildTime = parseTime(stamp)

	return info
}

// Short returns the version with an abbreviated commit, e.g. "v1.2.0 (abc1234)".
func (i Info) Short() string {
	if len(i.GitCommit) < 7 || strings.HasPrefix(i.Version, "dev-") {
		return i.Version
	}

	return fmt.Sprintf("%s (%s)", i.Version, i.GitCommit[:7])
}

// String returns a multi-line description for the version command.
func (i Info) String() string {
	lines := []string{"Version: " + i.Version}
	if i.GitCommit != "" {
		commit := i.GitCommit
		if i.Dirty {
			commit += " (dirty)"
		}
		lines = append(lines, "Commit: "+commit)
	}
	if !i.BuildTime.IsZero() {
		lines = append(lines, "Built: "+i.BuildTime.Format(time.RFC3339))
	}
	lines = append(lines, "Go: "+i.GoVersion, "Platform: "+i.Platform)

	return strings.Join(lines, "\n")
}

// IsRelease reports whether the binary carries a real release version.
func (i Info) IsRelease() bool {
	return i.Version != "dev" && !strings.HasPrefix(i.Version, "dev-")
}

// Short is shorthand for Get().Short().
func Short() string {
	return Get().Short()
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	return time.Time{}
}
