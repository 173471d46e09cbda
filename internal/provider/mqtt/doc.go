// Package mqtt bridges the geofencing provider over an MQTT broker.
//
// Commands are published to <prefix>/commands/start (fence list payload) and
// <prefix>/commands/stop. The device-side module answers on
// <prefix>/events/<name> using the platform event names (enterregions,
// exitregions, error, removeregions, monitorregions, stopregions).
package mqtt
