// Package geofence contains core domain types for geofence monitoring.
//
// It defines Fence (a named circular region), the monitoring Status reported
// by the manager, and TransitionEvent (an enter/exit notification for one
// fence). Validation helpers reject malformed fence lists before they reach
// the registry or the provider.
package geofence
