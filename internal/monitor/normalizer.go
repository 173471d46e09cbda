package monitor

import (
	"errors"
	"time"

	domain "github.com/oshokin/geofence-monitor/internal/domain/geofence"
	"github.com/oshokin/geofence-monitor/internal/provider"
)

// errNotTransition is returned for event kinds other than enter and exit.
var errNotTransition = errors.New("not a transition event")

// lastTransition is the most recent accepted transition of one fence.
type lastTransition struct {
	kind domain.TransitionKind
	at   time.Time
}

// normalizer turns raw enter/exit events into TransitionEvents.
type normalizer struct {
	// window suppresses a repeat of the same transition for the same fence
	// within the session when positive. Zero passes everything through.
	window time.Duration
	// last tracks accepted transitions per fence identifier.
	last map[string]lastTransition
}

// newNormalizer creates a normalizer with the given duplicate window.
func newNormalizer(window time.Duration) *normalizer {
	return &normalizer{
		window: window,
		last:   make(map[string]lastTransition),
	}
}

// reset forgets the duplicate history; called when a session starts.
func (n *normalizer) reset() {
	clear(n.last)
}

// normalize decodes raw and returns one event per identifier, in payload
// order, minus suppressed duplicates. suppressed counts the dropped repeats.
// Decoding failures are returned as *MalformedEventError.
func (n *normalizer) normalize(
	raw provider.RawEvent,
	current *session,
	now time.Time,
) (events []domain.TransitionEvent, suppressed int, err error) {
	var kind domain.TransitionKind

	switch raw.Kind {
	case provider.EventEntered:
		kind = domain.TransitionEnter
	case provider.EventExited:
		kind = domain.TransitionExit
	default:
		return nil, 0, &MalformedEventError{Kind: raw.Kind, Payload: raw.Payload, Err: errNotTransition}
	}

	identifiers, err := provider.DecodeRegions(raw.Payload)
	if err != nil {
		return nil, 0, &MalformedEventError{Kind: raw.Kind, Payload: raw.Payload, Err: err}
	}

	events = make([]domain.TransitionEvent, 0, len(identifiers))

	for _, id := range identifiers {
		if n.duplicate(kind, id, now) {
			suppressed++

			continue
		}

		n.last[id] = lastTransition{kind: kind, at: now}

		events = append(events, domain.TransitionEvent{
			Kind:            kind,
			FenceIdentifier: id,
			Stale:           !current.knows(id),
			SessionID:       current.sessionID(),
			ReceivedAt:      now,
		})
	}

	return events, suppressed, nil
}

// duplicate reports whether the transition repeats the previous one of the
// same fence inside the window. History is kept per fence, so transitions of
// other fences in between do not reset it.
func (n *normalizer) duplicate(kind domain.TransitionKind, identifier string, now time.Time) bool {
	if n.window <= 0 {
		return false
	}

	prev, ok := n.last[identifier]

	return ok && prev.kind == kind && now.Sub(prev.at) < n.window
}
