// Package monitor runs the geofence-monitor daemon.
//
// It loads settings and the fence list, connects the MQTT provider bridge,
// runs the monitoring manager, optionally republishes events to RabbitMQ and
// serves the gRPC control API and the HTTP health endpoints until the context
// is canceled.
package monitor
