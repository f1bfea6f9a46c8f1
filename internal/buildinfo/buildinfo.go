// Package buildinfo holds version information injected at build time via ldflags.
package buildinfo

var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildDate  = "unknown"
)

// ProtocolVersion is the native messaging protocol revision the bridge
// speaks with the companion application.
const ProtocolVersion = "1"
