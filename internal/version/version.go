// Package version holds build-time identification stamped into donor
// context files and printed by the version subcommand.
package version

// Version is overridden at build time via -ldflags
// "-X github.com/sercanarga/pcienum/internal/version.Version=...".
var Version = "dev"
