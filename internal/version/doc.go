// Package version holds the build metadata of alarm-bridge binaries,
// injected with -ldflags "-X" at release time.
package version
