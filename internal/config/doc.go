// Package config defines the settings used by both binaries and provides
// helpers to load, validate and save them in YAML format.
//
// Config holds the control API address, the MQTT bridge to the geofencing
// provider, the optional RabbitMQ sink and event normalization options.
package config
