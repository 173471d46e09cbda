package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	domain "github.com/oshokin/geofence-monitor/internal/domain/geofence"
)

var (
	// ErrEmptyPayload is returned when a payload holds no data.
	ErrEmptyPayload = errors.New("payload is empty")
	// ErrMissingCenter is returned when a fence object has no center.
	ErrMissingCenter = errors.New("fence center is missing")
	// ErrNoRegions is returned when a transition payload names no fence.
	ErrNoRegions = errors.New("payload names no region")
)

// wireFence is the JSON shape of a fence.
type wireFence struct {
	Center     *wireCenter `json:"center"`
	Identifier string      `json:"identifier"`
	Radius     float64     `json:"radius"`
}

// wireCenter is the JSON shape of a fence center.
type wireCenter struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// wireRegion is one element of a transition payload.
type wireRegion struct {
	Identifier string `json:"identifier"`
}

// EncodeFences serializes fences in list order. A nil list encodes as "[]".
func EncodeFences(fences []domain.Fence) (string, error) {
	wire := make([]wireFence, 0, len(fences))
	for _, f := range fences {
		wire = append(wire, wireFence{
			Center: &wireCenter{
				Latitude:  f.Center.Latitude,
				Longitude: f.Center.Longitude,
			},
			Identifier: f.Identifier,
			Radius:     f.Radius,
		})
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("encode fences: %w", err)
	}

	return string(data), nil
}

// DecodeFences parses a fence list and validates it with domain.ValidateFences.
// Validation failures are returned as *domain.ValidationError.
func DecodeFences(payload string) ([]domain.Fence, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, ErrEmptyPayload
	}

	var wire []wireFence
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return nil, fmt.Errorf("decode fences: %w", err)
	}

	fences := make([]domain.Fence, 0, len(wire))

	for i, w := range wire {
		if w.Center == nil {
			return nil, &domain.ValidationError{Index: i, Identifier: w.Identifier, Err: ErrMissingCenter}
		}

		fences = append(fences, domain.Fence{
			Identifier: w.Identifier,
			Center: domain.Coordinate{
				Latitude:  w.Center.Latitude,
				Longitude: w.Center.Longitude,
			},
			Radius: w.Radius,
		})
	}

	if err := domain.ValidateFences(fences); err != nil {
		return nil, err
	}

	return fences, nil
}

// DecodeRegions extracts fence identifiers from an enter/exit payload.
// The provider sends an array of {identifier} objects; a bare object is
// accepted too. Order is preserved.
func DecodeRegions(payload string) ([]string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, ErrEmptyPayload
	}

	var regions []wireRegion

	if strings.HasPrefix(payload, "{") {
		var single wireRegion
		if err := json.Unmarshal([]byte(payload), &single); err != nil {
			return nil, fmt.Errorf("decode region: %w", err)
		}

		regions = append(regions, single)
	} else if err := json.Unmarshal([]byte(payload), &regions); err != nil {
		return nil, fmt.Errorf("decode regions: %w", err)
	}

	if len(regions) == 0 {
		return nil, ErrNoRegions
	}

	identifiers := make([]string, 0, len(regions))

	for i, r := range regions {
		if r.Identifier == "" {
			return nil, fmt.Errorf("region #%d: %w", i, domain.ErrEmptyIdentifier)
		}

		identifiers = append(identifiers, r.Identifier)
	}

	return identifiers, nil
}
