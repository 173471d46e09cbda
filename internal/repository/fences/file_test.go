package fences

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/geofence-monitor/internal/domain/geofence"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for a missing file.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing.json"))
	f, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, f)
}

// TestFileRepository_Load reads the sample fence list.
func TestFileRepository_Load(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "fences.json")
	contents := `[{"center":{"latitude":55.62509823,"longitude":-111.87053167},"identifier":"test","radius":50}]`
	require.NoError(t, os.WriteFile(file, []byte(contents), 0o600))

	repo := NewFileRepository(file)
	require.Equal(t, file, repo.Path())

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, []domain.Fence{{
		Identifier: "test",
		Center:     domain.Coordinate{Latitude: 55.62509823, Longitude: -111.87053167},
		Radius:     50,
	}}, got)
}

// TestFileRepository_Invalid ensures validation errors surface with their type.
func TestFileRepository_Invalid(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "fences.json")
	contents := `[{"center":{"latitude":1,"longitude":1},"identifier":"a","radius":-5}]`
	require.NoError(t, os.WriteFile(file, []byte(contents), 0o600))

	_, err := NewFileRepository(file).Load(context.Background())
	require.ErrorIs(t, err, domain.ErrInvalidRadius)

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
}
