package monitor

import (
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/geofence-monitor/internal/domain/geofence"
)

// Struct field names of a status reply.
const (
	fieldState  = "state"
	fieldReason = "reason"
	fieldFences = "fences"
)

// StatusView is the decoded form of a status reply.
type StatusView struct {
	// State is the monitoring state name.
	State string
	// Reason is set when State is failed.
	Reason string
	// Fences is the number of registered fences.
	Fences int
}

// String renders the view for the command line.
func (v StatusView) String() string {
	status := v.State
	if v.Reason != "" {
		status += ": " + v.Reason
	}

	return status
}

// StatusToStruct encodes a status reply.
func StatusToStruct(status domain.Status, fences int) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		fieldState:  status.State.String(),
		fieldReason: status.Reason,
		fieldFences: fences,
	})
}

// StatusFromStruct decodes a status reply. Missing fields stay zero.
func StatusFromStruct(s *structpb.Struct) StatusView {
	fields := s.GetFields()

	return StatusView{
		State:  fields[fieldState].GetStringValue(),
		Reason: fields[fieldReason].GetStringValue(),
		Fences: int(fields[fieldFences].GetNumberValue()),
	}
}
