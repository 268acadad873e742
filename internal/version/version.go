// Package version carries build metadata injected at link time with
// -ldflags "-X github.com/rbright/lockbridge/internal/version.Version=...".
package version

import (
	"fmt"
	"runtime"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the banner printed by `lockbridge version` and logged by serve.
func String() string {
	return fmt.Sprintf("lockbridge %s (commit=%s, date=%s, go=%s, %s/%s)",
		Version, Commit, Date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
