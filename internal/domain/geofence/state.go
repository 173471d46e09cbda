package geofence

// State is the lifecycle of monitoring for the whole fence registry.
type State int

// The five monitoring states. Every transition, including error paths,
// lands in one of them.
const (
	// StateIdle means nothing is monitored and nothing is in flight.
	StateIdle State = iota
	// StateStarting means a start request is in flight.
	StateStarting
	// StateActive means the provider confirmed monitoring.
	StateActive
	// StateStopping means a stop request is in flight.
	StateStopping
	// StateFailed means the last start or stop was rejected by the provider.
	StateFailed
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is a State plus the failure reason when State is StateFailed.
type Status struct {
	// State is the current monitoring state.
	State State
	// Reason explains StateFailed and is empty otherwise.
	Reason string
}

// String renders the status for logs, e.g. "failed: too many geofences".
func (s Status) String() string {
	if s.Reason == "" {
		return s.State.String()
	}

	return s.State.String() + ": " + s.Reason
}
