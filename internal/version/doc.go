// Package version exposes build metadata for the project.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags. Helpers render them for the CLI, gRPC user agents and MQTT
// client ids.
package version
