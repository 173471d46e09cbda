// Package provider describes the external geofencing capability consumed by
// the monitor and the text payloads exchanged with it.
//
// The provider accepts a fence list, confirms start/stop asynchronously and
// emits transition events. Fence lists travel as a JSON array of
// {center:{latitude, longitude}, identifier, radius} objects; transition
// payloads are JSON arrays of {identifier} objects.
package provider
