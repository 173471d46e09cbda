package provider

import "context"

// EventKind enumerates the asynchronous notifications of a provider.
type EventKind int

const (
	// EventEntered reports that the device entered one or more fences.
	EventEntered EventKind = iota + 1
	// EventExited reports that the device left one or more fences.
	EventExited
	// EventError reports a provider-side failure.
	EventError
	// EventRegionsRemoved reports that the provider dropped the fence set on its own.
	EventRegionsRemoved
	// EventMonitoringStarted confirms a start request.
	EventMonitoringStarted
	// EventMonitoringStopped confirms a stop request.
	EventMonitoringStopped
)

// wireNames are the event names used on the wire by the platform module.
//
//nolint:gochecknoglobals // Read-only lookup table.
var wireNames = map[EventKind]string{
	EventEntered:           "enterregions",
	EventExited:            "exitregions",
	EventError:             "error",
	EventRegionsRemoved:    "removeregions",
	EventMonitoringStarted: "monitorregions",
	EventMonitoringStopped: "stopregions",
}

// String returns the wire name of the event kind.
func (k EventKind) String() string {
	if name, ok := wireNames[k]; ok {
		return name
	}

	return "unknown"
}

// ParseEventKind maps a wire name back to its EventKind.
func ParseEventKind(name string) (EventKind, bool) {
	for kind, wire := range wireNames {
		if wire == name {
			return kind, true
		}
	}

	return 0, false
}

// Kinds returns every event kind a provider may emit.
func Kinds() []EventKind {
	return []EventKind{
		EventEntered,
		EventExited,
		EventError,
		EventRegionsRemoved,
		EventMonitoringStarted,
		EventMonitoringStopped,
	}
}

// RawEvent is a notification exactly as the provider emitted it.
type RawEvent struct {
	// Kind tells how to interpret Payload.
	Kind EventKind
	// Payload is provider-encoded text, decoded by the monitor.
	Payload string
}

// Handler receives raw provider events. Handlers must not block.
type Handler func(event RawEvent)

// Provider is the external geofencing capability.
//
// StartMonitoring and StopMonitoringAll only submit a request: a nil error
// means the request was accepted, and the outcome arrives later as
// EventMonitoringStarted, EventMonitoringStopped or EventError. The API has no
// cancellation; concurrent start/stop calls are not supported.
type Provider interface {
	// StartMonitoring asks the provider to watch the encoded fence list.
	StartMonitoring(ctx context.Context, payload string) error
	// StopMonitoringAll asks the provider to drop every fence.
	StopMonitoringAll(ctx context.Context) error
	// Subscribe registers a handler for one kind of event.
	Subscribe(kind EventKind, handler Handler)
}
