package fences

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	domain "github.com/oshokin/geofence-monitor/internal/domain/geofence"
	"github.com/oshokin/geofence-monitor/internal/provider"
)

// Repository defines how the monitor obtains its initial fence list.
type Repository interface {
	Load(ctx context.Context) ([]domain.Fence, error)
}

// FileRepository reads the fence list from a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the JSON fence file.
	path string
}

// ErrNotFound is returned when the fence file does not exist.
var ErrNotFound = errors.New("fence file not found")

// NewFileRepository creates a repository reading JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads and validates the fence list.
func (r *FileRepository) Load(_ context.Context) ([]domain.Fence, error) {
	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read fence file: %w", err)
	}

	fences, err := provider.DecodeFences(string(contents))
	if err != nil {
		return nil, fmt.Errorf("decode fence file: %w", err)
	}

	return fences, nil
}
