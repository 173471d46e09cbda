package monitor

import (
	"context"

	"google.golang.org/grpc/metadata"
)

// MetadataActor is the metadata key carrying the user@host of the caller.
const MetadataActor = "x-geofence-actor"

// ActorFromContext returns the caller label of an incoming call, or "unknown".
func ActorFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "unknown"
	}

	if values := md.Get(MetadataActor); len(values) > 0 && values[0] != "" {
		return values[0]
	}

	return "unknown"
}
