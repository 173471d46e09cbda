package monitor

import (
	"errors"
	"fmt"

	"github.com/oshokin/geofence-monitor/internal/provider"
)

var (
	// ErrClosed is returned by requests issued after Run has returned.
	ErrClosed = errors.New("monitor is closed")
	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("monitor is already running")
	// ErrNilProvider is returned by New when no provider is given.
	ErrNilProvider = errors.New("provider must be provided")
)

// MalformedEventError reports a provider event whose payload could not be
// decoded. The event is dropped.
type MalformedEventError struct {
	// Kind is the kind of the dropped event.
	Kind provider.EventKind
	// Payload is the raw payload as received.
	Payload string
	// Err is the decoding failure.
	Err error
}

// Error implements the error interface.
func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed %s event: %v", e.Kind, e.Err)
}

// Unwrap exposes the decoding failure.
func (e *MalformedEventError) Unwrap() error {
	return e.Err
}
