package monitor

import (
	domain "github.com/oshokin/geofence-monitor/internal/domain/geofence"
)

// intent is a request waiting for the in-flight provider call to resolve.
type intent int

const (
	intentNone intent = iota
	intentStart
	intentStop
)

// String is used in logs.
func (i intent) String() string {
	switch i {
	case intentStart:
		return "start"
	case intentStop:
		return "stop"
	default:
		return "none"
	}
}

// command is a provider call the machine wants issued.
type command int

const (
	commandNone command = iota
	commandStart
	commandStop
)

// String is used in logs.
func (c command) String() string {
	switch c {
	case commandStart:
		return "start"
	case commandStop:
		return "stop"
	default:
		return "none"
	}
}

// change is one recorded state transition.
type change struct {
	from domain.Status
	to   domain.Status
}

// machine is the monitoring transition table. It is not safe for concurrent
// use; Manager serializes access. A command other than commandNone is only
// returned when the state machine has no request outstanding. Manager still
// holds it until the previous provider call has returned.
type machine struct {
	// status is the current state.
	status domain.Status
	// pending is the one-deep queue of deferred requests.
	pending intent
	// changes accumulates transitions until drained.
	changes []change
}

// requestStart handles a consumer start request.
func (m *machine) requestStart() command {
	switch m.status.State {
	case domain.StateIdle, domain.StateFailed:
		m.set(domain.Status{State: domain.StateStarting})

		return commandStart
	case domain.StateStarting:
		// Start already in flight; a queued stop is superseded.
		m.pending = intentNone
	case domain.StateStopping:
		m.pending = intentStart
	case domain.StateActive:
	}

	return commandNone
}

// requestStop handles a consumer stop request.
func (m *machine) requestStop() command {
	switch m.status.State {
	case domain.StateActive:
		m.set(domain.Status{State: domain.StateStopping})

		return commandStop
	case domain.StateStarting:
		m.pending = intentStop
	case domain.StateStopping:
		// Stop already in flight; a queued start is superseded.
		m.pending = intentNone
	case domain.StateIdle, domain.StateFailed:
	}

	return commandNone
}

// started handles the provider start confirmation.
// ok is false when the confirmation does not match the current state.
func (m *machine) started() (command, bool) {
	if m.status.State != domain.StateStarting {
		return commandNone, false
	}

	m.set(domain.Status{State: domain.StateActive})

	if m.pending == intentStop {
		m.pending = intentNone
		m.set(domain.Status{State: domain.StateStopping})

		return commandStop, true
	}

	return commandNone, true
}

// stopped handles the provider stop confirmation.
func (m *machine) stopped() (command, bool) {
	if m.status.State != domain.StateStopping {
		return commandNone, false
	}

	m.set(domain.Status{State: domain.StateIdle})

	if m.pending == intentStart {
		m.pending = intentNone
		m.set(domain.Status{State: domain.StateStarting})

		return commandStart, true
	}

	return commandNone, true
}

// failed handles a provider error. Only an in-flight transition fails;
// the pending intent is dropped and nothing is retried.
func (m *machine) failed(reason string) bool {
	if m.status.State != domain.StateStarting && m.status.State != domain.StateStopping {
		return false
	}

	m.pending = intentNone
	m.set(domain.Status{State: domain.StateFailed, Reason: reason})

	return true
}

// removed handles the provider dropping the fence set while active:
// monitoring goes idle and is immediately restarted.
func (m *machine) removed() (command, bool) {
	if m.status.State != domain.StateActive {
		return commandNone, false
	}

	m.set(domain.Status{State: domain.StateIdle})
	m.set(domain.Status{State: domain.StateStarting})

	return commandStart, true
}

// expects reports whether cmd still matches the current state, that is the
// transition it was issued for has not failed or resolved meanwhile.
func (m *machine) expects(cmd command) bool {
	switch cmd {
	case commandStart:
		return m.status.State == domain.StateStarting
	case commandStop:
		return m.status.State == domain.StateStopping
	case commandNone:
	}

	return false
}

// drain returns and clears the recorded transitions.
func (m *machine) drain() []change {
	changes := m.changes
	m.changes = nil

	return changes
}

// set records a transition.
func (m *machine) set(to domain.Status) {
	m.changes = append(m.changes, change{from: m.status, to: to})
	m.status = to
}
