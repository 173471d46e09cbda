package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/geofence-monitor/internal/domain/geofence"
	"github.com/oshokin/geofence-monitor/internal/provider"
)

// TestNormalizer_Normalize verifies decoding, stale flags and session stamping.
func TestNormalizer_Normalize(t *testing.T) {
	t.Parallel()

	n := newNormalizer(0)
	now := time.Unix(1715003456, 0)
	s := newSession("session-1", sampleFences(), now)

	events, suppressed, err := n.normalize(
		provider.RawEvent{Kind: provider.EventExited, Payload: `[{"identifier":"test"},{"identifier":"old"}]`},
		s,
		now,
	)
	require.NoError(t, err)
	require.Zero(t, suppressed)
	require.Equal(t, []domain.TransitionEvent{
		{Kind: domain.TransitionExit, FenceIdentifier: "test", SessionID: "session-1", ReceivedAt: now},
		{Kind: domain.TransitionExit, FenceIdentifier: "old", Stale: true, SessionID: "session-1", ReceivedAt: now},
	}, events)
}

// TestNormalizer_Malformed ensures decoding failures are typed.
func TestNormalizer_Malformed(t *testing.T) {
	t.Parallel()

	n := newNormalizer(0)

	_, _, err := n.normalize(provider.RawEvent{Kind: provider.EventEntered, Payload: "garbage"}, nil, time.Now())

	var malformed *MalformedEventError
	require.ErrorAs(t, err, &malformed)
	require.Equal(t, "garbage", malformed.Payload)
	require.Contains(t, malformed.Error(), "malformed enterregions event")

	_, _, err = n.normalize(provider.RawEvent{Kind: provider.EventError, Payload: "{}"}, nil, time.Now())
	require.ErrorIs(t, err, errNotTransition)
}

// TestNormalizer_DuplicateWindow checks suppression keyed by fence and kind.
func TestNormalizer_DuplicateWindow(t *testing.T) {
	t.Parallel()

	n := newNormalizer(10 * time.Second)
	start := time.Unix(1715003456, 0)
	enter := provider.RawEvent{Kind: provider.EventEntered, Payload: `{"identifier":"test"}`}
	exit := provider.RawEvent{Kind: provider.EventExited, Payload: `{"identifier":"test"}`}

	events, _, err := n.normalize(enter, nil, start)
	require.NoError(t, err)
	require.Len(t, events, 1)

	events, suppressed, err := n.normalize(enter, nil, start.Add(5*time.Second))
	require.NoError(t, err)
	require.Empty(t, events)
	require.Equal(t, 1, suppressed)

	// A different kind breaks the run.
	events, _, err = n.normalize(exit, nil, start.Add(6*time.Second))
	require.NoError(t, err)
	require.Len(t, events, 1)

	events, _, err = n.normalize(enter, nil, start.Add(7*time.Second))
	require.NoError(t, err)
	require.Len(t, events, 1)

	// A new session forgets history.
	n.reset()

	events, _, err = n.normalize(enter, nil, start.Add(8*time.Second))
	require.NoError(t, err)
	require.Len(t, events, 1)
}

// TestNormalizer_DuplicateIsPerFence ensures transitions of other fences in
// between do not break a repeat of the same fence.
func TestNormalizer_DuplicateIsPerFence(t *testing.T) {
	t.Parallel()

	n := newNormalizer(10 * time.Second)
	start := time.Unix(1715003456, 0)
	enterA := provider.RawEvent{Kind: provider.EventEntered, Payload: `{"identifier":"a"}`}
	enterB := provider.RawEvent{Kind: provider.EventEntered, Payload: `{"identifier":"b"}`}

	events, _, err := n.normalize(enterA, nil, start)
	require.NoError(t, err)
	require.Len(t, events, 1)

	events, _, err = n.normalize(enterB, nil, start.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, events, 1)

	events, suppressed, err := n.normalize(enterA, nil, start.Add(2*time.Second))
	require.NoError(t, err)
	require.Empty(t, events)
	require.Equal(t, 1, suppressed)

	// Outside the window the repeat passes again.
	events, _, err = n.normalize(enterA, nil, start.Add(11*time.Second))
	require.NoError(t, err)
	require.Len(t, events, 1)
}
