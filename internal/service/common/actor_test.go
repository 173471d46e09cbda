//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDetectActor ensures the label carries a user and a host.
func TestDetectActor(t *testing.T) {
	t.Parallel()

	a, err := DetectActor()
	require.NoError(t, err)

	username, hostname, found := strings.Cut(a, "@")
	require.True(t, found)
	require.NotEmpty(t, username)
	require.NotEmpty(t, hostname)
}
