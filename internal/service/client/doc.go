// Package client implements the geofencectl actions.
//
// Each invocation connects to the geofence-monitor daemon over gRPC, performs
// one action (status, start, stop, fences, set-fences) and prints the result.
package client
