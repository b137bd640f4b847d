// Package version exposes build metadata stamped at link time.
package version

// Version is the application version, overridden at build time via
// -ldflags "-X .../internal/version.Version=v1.2.3".
var Version = "dev"
