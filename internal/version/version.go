package version

import (
	"fmt"
	"strings"
)

// Product is the name reported to brokers and peers.
const Product = "geofence-monitor"

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("version: %s, commit: %s, built at: %s", Version, Commit, BuildTime)
}

// UserAgent identifies a binary in gRPC calls, e.g. "geofencectl/0.1.0".
func UserAgent(binary string) string {
	return binary + "/" + Version
}

// ClientID builds an MQTT client id from the product, version and a
// per-process suffix. MQTT ids may not contain '/', so dots are kept and
// slashes replaced.
func ClientID(suffix string) string {
	id := Product + "-" + Version
	if suffix != "" {
		id += "-" + suffix
	}

	return strings.ReplaceAll(id, "/", "-")
}
