package monitor

import (
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/geofence-monitor/internal/domain/geofence"
)

// TestRegistry_SetFences checks replacement, previous list and lookups.
func TestRegistry_SetFences(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.Empty(t, r.CurrentFences())

	previous, err := r.SetFences(sampleFences())
	require.NoError(t, err)
	require.Nil(t, previous)
	require.True(t, r.Contains("test"))
	require.Equal(t, 1, r.Len())

	next := []domain.Fence{
		{Identifier: "b", Center: domain.Coordinate{Latitude: 1, Longitude: 1}, Radius: 5},
		{Identifier: "a", Center: domain.Coordinate{Latitude: 2, Longitude: 2}, Radius: 5},
	}

	previous, err = r.SetFences(next)
	require.NoError(t, err)
	require.Equal(t, sampleFences(), previous)
	require.False(t, r.Contains("test"))

	// Insertion order is preserved.
	require.Equal(t, next, r.CurrentFences())
}

// TestRegistry_RejectsDuplicates leaves the registry untouched on a bad list.
func TestRegistry_RejectsDuplicates(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, err := r.SetFences(sampleFences())
	require.NoError(t, err)

	before := r.CurrentFences()

	_, err = r.SetFences([]domain.Fence{
		{Identifier: "x", Radius: 1},
		{Identifier: "x", Radius: 2},
	})

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.ErrorIs(t, err, domain.ErrDuplicateIdentifier)
	require.Equal(t, before, r.CurrentFences())

	_, err = r.SetFences([]domain.Fence{{Identifier: "y", Radius: 0}})
	require.ErrorIs(t, err, domain.ErrInvalidRadius)
	require.Equal(t, before, r.CurrentFences())
}

// TestRegistry_SnapshotsAreCopies ensures callers cannot mutate the registry.
func TestRegistry_SnapshotsAreCopies(t *testing.T) {
	t.Parallel()

	input := sampleFences()
	r := NewRegistry()
	_, err := r.SetFences(input)
	require.NoError(t, err)

	input[0].Identifier = "mutated"

	snapshot := r.CurrentFences()
	snapshot[0].Radius = 1

	require.Equal(t, sampleFences(), r.CurrentFences())
}
