package monitor

import (
	"context"

	domain "github.com/oshokin/geofence-monitor/internal/domain/geofence"
	"github.com/oshokin/geofence-monitor/internal/logger"
	manager "github.com/oshokin/geofence-monitor/internal/monitor"
)

// newLogSubscriber writes transitions and errors to the log. State changes
// are already logged by the manager.
func newLogSubscriber(ctx context.Context) manager.Subscriber {
	ctx = logger.WithName(ctx, "events")

	transition := func(event domain.TransitionEvent) {
		logger.InfoKV(ctx, "Fence transition",
			"kind", event.Kind,
			"fence", event.FenceIdentifier,
			"stale", event.Stale,
			"session_id", event.SessionID)
	}

	return manager.SubscriberFuncs{
		Enter: transition,
		Exit:  transition,
		Error: func(err error) {
			logger.ErrorKV(ctx, "Monitoring error", "error", err)
		},
	}
}
