package monitor

import (
	"time"

	domain "github.com/oshokin/geofence-monitor/internal/domain/geofence"
)

// session is the fence snapshot sent with one start request.
type session struct {
	// id is a unique session identifier.
	id string
	// fences holds the identifiers of the snapshot.
	fences map[string]struct{}
	// startedAt is when the start request was issued.
	startedAt time.Time
}

// newSession records the identifiers of a snapshot.
func newSession(id string, fences []domain.Fence, now time.Time) *session {
	s := &session{
		id:        id,
		fences:    make(map[string]struct{}, len(fences)),
		startedAt: now,
	}

	for _, f := range fences {
		s.fences[f.Identifier] = struct{}{}
	}

	return s
}

// knows reports whether the identifier was part of the snapshot.
// A nil session knows nothing.
func (s *session) knows(identifier string) bool {
	if s == nil {
		return false
	}

	_, ok := s.fences[identifier]

	return ok
}

// sessionID returns the id or "" for a nil session.
func (s *session) sessionID() string {
	if s == nil {
		return ""
	}

	return s.id
}
