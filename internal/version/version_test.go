package version

import (
	"runtime/debug"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withBuildInfo(t *testing.T, info *debug.BuildInfo) {
	t.Helper()
	orig := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return info, info != nil }
	t.Cleanup(func() { readBuildInfo = orig })
}

func withLinked(t *testing.T, version, commit, built string) {
	t.Helper()
	v, c, b := Version, GitCommit, BuildTime
	Version, GitCommit, BuildTime = version, commit, built
	t.Cleanup(func() { Version, GitCommit, BuildTime = v, c, b })
}

func TestLinkedValuesWin(t *testing.T) {
	withLinked(t, "v1.2.0", "abcdef1234567", "2025-06-01T10:00:00Z")
	withBuildInfo(t, &debug.BuildInfo{Settings: []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0000000999999"},
	}})

	assert.Equal(t, "v1.2.0", GetVersion())
	assert.Equal(t, "abcdef1234567", GetGitCommit())
	assert.Equal(t, "v1.2.0 (abcdef1)", GetShortVersion())
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), GetBuildTime())
	assert.True(t, IsRelease())
}

func TestVCSFallback(t *testing.T) {
	withLinked(t, "dev", "unknown", "unknown")
	withBuildInfo(t, &debug.BuildInfo{
		Main: debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "1234567abcdef"},
			{Key: "vcs.time", Value: "2025-01-02T03:04:05Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	})

	assert.Equal(t, "dev-1234567", GetVersion())
	assert.Equal(t, "1234567abcdef", GetGitCommit())
	assert.Equal(t, "dev-1234567", GetShortVersion())
	assert.Equal(t, 2025, GetBuildTime().Year())
	assert.True(t, IsDirty())
	assert.False(t, IsRelease())

	info := Get()
	assert.Equal(t, Name, info.Name)
	assert.True(t, info.Dirty)
	assert.Contains(t, GetDetailedVersion(), "Commit: 1234567abcdef")
}

func TestNoBuildInfo(t *testing.T) {
	withLinked(t, "", "", "")
	withBuildInfo(t, nil)

	assert.Equal(t, "dev", GetVersion())
	assert.Equal(t, "unknown", GetGitCommit())
	assert.Equal(t, "dev", GetShortVersion())
	assert.True(t, GetBuildTime().IsZero())
	assert.False(t, IsDirty())
	assert.NotContains(t, GetDetailedVersion(), "Commit:")
}

func TestParseTime(t *testing.T) {
	assert.False(t, parseTime("2025-06-01 10:00:00").IsZero())
	assert.False(t, parseTime("2025-06-01T10:00:00").IsZero())
	assert.True(t, parseTime("yesterday").IsZero())
}
