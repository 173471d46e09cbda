package monitor

import (
	domain "github.com/oshokin/geofence-monitor/internal/domain/geofence"
)

// Subscriber receives the normalized event stream of a Manager.
// Methods are called from the manager loop, one at a time, in arrival order,
// and must not block. Calling Start, Stop or SetFences from a callback is fine.
type Subscriber interface {
	// OnEnter is called when the device entered a fence.
	OnEnter(event domain.TransitionEvent)
	// OnExit is called when the device left a fence.
	OnExit(event domain.TransitionEvent)
	// OnError receives *provider.ProviderError and *MalformedEventError values.
	OnError(err error)
	// OnStateChange is called for every monitoring state transition.
	OnStateChange(previous, current domain.Status)
}

// SubscriberFuncs adapts plain functions to Subscriber. Nil fields are skipped.
type SubscriberFuncs struct {
	Enter       func(event domain.TransitionEvent)
	Exit        func(event domain.TransitionEvent)
	Error       func(err error)
	StateChange func(previous, current domain.Status)
}

// OnEnter implements Subscriber.
func (f SubscriberFuncs) OnEnter(event domain.TransitionEvent) {
	if f.Enter != nil {
		f.Enter(event)
	}
}

// OnExit implements Subscriber.
func (f SubscriberFuncs) OnExit(event domain.TransitionEvent) {
	if f.Exit != nil {
		f.Exit(event)
	}
}

// OnError implements Subscriber.
func (f SubscriberFuncs) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

// OnStateChange implements Subscriber.
func (f SubscriberFuncs) OnStateChange(previous, current domain.Status) {
	if f.StateChange != nil {
		f.StateChange(previous, current)
	}
}

// notification is one deferred subscriber call.
type notification func(s Subscriber)

// subscription pairs a subscriber with its registration id.
type subscription struct {
	id         uint64
	subscriber Subscriber
}
