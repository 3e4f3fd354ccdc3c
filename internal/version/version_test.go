package version

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withLinkerValues(t *testing.T, version, commit, built string) {
	t.Helper()

	oldV, oldC, oldB := Version, GitCommit, BuildTime
	Version, GitCommit, BuildTime = version, commit, built
	t.Cleanup(func() { Version, GitCommit, BuildTime = oldV, oldC, oldB })
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		version     string
		commit      string
		vcs         vcs
		wantVersion string
		wantCommit  string
		wantShort   string
		wantRelease bool
	}{
		{
			name:        "linker values win",
			version:     "v1.2.0",
			commit:      "abcdef0123",
			vcs:         vcs{version: "v0.9.0", revision: "ffffffffff"},
			wantVersion: "v1.2.0",
			wantCommit:  "abcdef0123",
			wantShort:   "v1.2.0 (abcdef0)",
			wantRelease: true,
		},
		{
			name:        "module version",
			version:     "dev",
			vcs:         vcs{version: "v0.9.0"},
			wantVersion: "v0.9.0",
			wantShort:   "v0.9.0",
			wantRelease: true,
		},
		{
			name:        "dev build with revision",
			version:     "dev",
			vcs:         vcs{revision: "1234567890"},
			wantVersion: "dev-1234567",
			wantCommit:  "1234567890",
			wantShort:   "dev-1234567",
		},
		{
			name:        "nothing known",
			version:     "dev",
			wantVersion: "dev",
			wantShort:   "dev",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withLinkerValues(t, tt.version, tt.commit, "")

			info := resolve(tt.vcs)
			assert.Equal(t, tt.wantVersion, info.Version)
			assert.Equal(t, tt.wantCommit, info.GitCommit)
			assert.Equal(t, tt.wantShort, info.Short())
			assert.Equal(t, tt.wantRelease, info.IsRelease())
			assert.Equal(t, runtime.Version(), info.GoVersion)
			assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
		})
	}
}

func TestResolveBuildTime(t *testing.T) {
	withLinkerValues(t, "v1.0.0", "", "2026-01-02T03:04:05Z")
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), resolve(vcs{}).BuildTime)

	withLinkerValues(t, "v1.0.0", "", "")
	assert.Equal(t, 2026, resolve(vcs{time: "2026-05-06 07:08:09"}).BuildTime.Year())

	withLinkerValues(t, "v1.0.0", "", "yesterday")
	assert.True(t, resolve(vcs{}).BuildTime.IsZero())
}

func TestInfoString(t *testing.T) {
	info := Info{
		Version:   "v1.0.0",
		GitCommit: "abc",
		Dirty:     true,
		BuildTime: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		GoVersion: "go1.24.4",
		Platform:  "linux/amd64",
	}

	assert.Equal(t,
		"Version: v1.0.0\nCommit: abc (dirty)\nBuilt: 2026-01-02T03:04:05Z\nGo: go1.24.4\nPlatform: linux/amd64",
		info.String())
	assert.Equal(t, "Version: dev\nGo: go1\nPlatform: p", Info{Version: "dev", GoVersion: "go1", Platform: "p"}.String())
}

func TestGet(t *testing.T) {
	info := Get()
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, Short())
}
