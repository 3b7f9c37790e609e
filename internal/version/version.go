// Package version holds the build version, set with ldflags:
//
//	go build -ldflags "-X github.com/ramonehamilton/deck-strategist/internal/version.Version=v1.2.3" ./cmd/deck-strategist
package version

// Version defaults to "dev" for local builds.
var Version = "dev"
