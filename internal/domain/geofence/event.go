package geofence

import "time"

// TransitionKind tells whether the device entered or left a fence.
type TransitionKind int

const (
	// TransitionEnter is reported when the device enters a fence.
	TransitionEnter TransitionKind = iota + 1
	// TransitionExit is reported when the device leaves a fence.
	TransitionExit
)

// String returns "enter" or "exit".
func (k TransitionKind) String() string {
	switch k {
	case TransitionEnter:
		return "enter"
	case TransitionExit:
		return "exit"
	default:
		return "unknown"
	}
}

// TransitionEvent is one normalized enter/exit notification.
type TransitionEvent struct {
	// Kind is enter or exit.
	Kind TransitionKind
	// FenceIdentifier names the fence that triggered the transition.
	FenceIdentifier string
	// Stale is set when the identifier was not part of the fence snapshot
	// sent with the last start request. Stale events are still delivered.
	Stale bool
	// SessionID identifies the monitoring session the event arrived in.
	SessionID string
	// ReceivedAt is when the manager accepted the raw event.
	ReceivedAt time.Time
}
