package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func setBuild(t *testing.T, version, commit, date string) {
	t.Helper()
	prevVersion, prevCommit, prevDate := Version, Commit, Date
	t.Cleanup(func() {
		Version, Commit, Date = prevVersion, prevCommit, prevDate
	})
	Version, Commit, Date = version, commit, date
}

func TestStringDefaultsIdentifyDevBuild(t *testing.T) {
	require.Regexp(t, `^lockbridge dev \(commit=none, date=unknown, go=`, String())
}

func TestStringIncludesLinkedMetadataAndPlatform(t *testing.T) {
	setBuild(t, "0.4.1", "9f3e2ab", "2026-10-19")

	got := String()
	require.Equal(t,
		"lockbridge 0.4.1 (commit=9f3e2ab, date=2026-10-19, go="+runtime.Version()+", "+runtime.GOOS+"/"+runtime.GOARCH+")",
		got,
	)
}
