package geofence

import (
	"errors"
	"fmt"
	"math"
)

// Coordinate limits in degrees.
const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

var (
	// ErrEmptyIdentifier is returned when a fence has no identifier.
	ErrEmptyIdentifier = errors.New("identifier must be provided")
	// ErrInvalidLatitude is returned when the latitude is outside [-90, 90].
	ErrInvalidLatitude = errors.New("latitude must be between -90 and 90")
	// ErrInvalidLongitude is returned when the longitude is outside [-180, 180].
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
	// ErrInvalidRadius is returned when the radius is not a positive finite number.
	ErrInvalidRadius = errors.New("radius must be a positive number of meters")
	// ErrDuplicateIdentifier is returned when a list holds the same identifier twice.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
)

// Coordinate is a point on the globe in decimal degrees.
type Coordinate struct {
	// Latitude in degrees, [-90, 90].
	Latitude float64
	// Longitude in degrees, [-180, 180].
	Longitude float64
}

// Fence is a named circular geographic region.
type Fence struct {
	// Identifier is unique within a fence list.
	Identifier string
	// Center is the middle of the region.
	Center Coordinate
	// Radius is measured in meters.
	Radius float64
}

// ValidationError describes the first malformed entry of a fence list.
type ValidationError struct {
	// Index is the position of the offending fence in the list.
	Index int
	// Identifier of the offending fence, possibly empty.
	Identifier string
	// Err is one of the Err* sentinels of this package.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("fence #%d (%q): %v", e.Index, e.Identifier, e.Err)
}

// Unwrap exposes the underlying sentinel for errors.Is.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate checks coordinates, radius and identifier of a single fence.
func (f Fence) Validate() error {
	switch {
	case f.Identifier == "":
		return ErrEmptyIdentifier
	case !inRange(f.Center.Latitude, MinLatitude, MaxLatitude):
		return ErrInvalidLatitude
	case !inRange(f.Center.Longitude, MinLongitude, MaxLongitude):
		return ErrInvalidLongitude
	case math.IsNaN(f.Radius) || math.IsInf(f.Radius, 0) || f.Radius <= 0:
		return ErrInvalidRadius
	}

	return nil
}

// ValidateFences validates every fence and rejects duplicate identifiers.
// The returned error, if any, is a *ValidationError.
func ValidateFences(fences []Fence) error {
	seen := make(map[string]struct{}, len(fences))

	for i, f := range fences {
		if err := f.Validate(); err != nil {
			return &ValidationError{Index: i, Identifier: f.Identifier, Err: err}
		}

		if _, ok := seen[f.Identifier]; ok {
			return &ValidationError{Index: i, Identifier: f.Identifier, Err: ErrDuplicateIdentifier}
		}

		seen[f.Identifier] = struct{}{}
	}

	return nil
}

// CloneFences returns a copy of the list; nil stays nil.
func CloneFences(fences []Fence) []Fence {
	if fences == nil {
		return nil
	}

	cloned := make([]Fence, len(fences))
	copy(cloned, fences)

	return cloned
}

// inRange reports whether v is a number within [low, high].
func inRange(v, low, high float64) bool {
	return !math.IsNaN(v) && v >= low && v <= high
}
