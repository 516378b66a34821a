// Package version holds build metadata set through -ldflags.
package version

// Build metadata. Overridden at link time, e.g.
//
//	go build -ldflags "-X github.com/lllypuk/healthd/internal/version.Version=1.2.0"
var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)
