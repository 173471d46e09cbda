package monitor

import (
	"sync"

	domain "github.com/oshokin/geofence-monitor/internal/domain/geofence"
)

// Registry holds the current, validated fence list in insertion order.
// It never talks to the provider.
type Registry struct {
	// fences is the ordered list handed to the provider.
	fences []domain.Fence
	// index maps identifiers to positions in fences.
	index map[string]int
	// mu protects fences and index.
	mu sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		index: make(map[string]int),
	}
}

// SetFences atomically replaces the whole list and returns the previous one.
// On a *domain.ValidationError the registry is left unchanged.
func (r *Registry) SetFences(fences []domain.Fence) ([]domain.Fence, error) {
	if err := domain.ValidateFences(fences); err != nil {
		return nil, err
	}

	next := domain.CloneFences(fences)
	index := make(map[string]int, len(next))

	for i, f := range next {
		index[f.Identifier] = i
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.fences
	r.fences = next
	r.index = index

	return previous, nil
}

// CurrentFences returns a snapshot of the list. The caller owns the slice.
func (r *Registry) CurrentFences() []domain.Fence {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return domain.CloneFences(r.fences)
}

// Contains reports whether a fence with the identifier is registered.
func (r *Registry) Contains(identifier string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.index[identifier]

	return ok
}

// Len returns the number of registered fences.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.fences)
}
