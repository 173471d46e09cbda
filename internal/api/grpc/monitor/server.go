package monitor

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/oshokin/geofence-monitor/internal/domain/geofence"
	"github.com/oshokin/geofence-monitor/internal/logger"
	manager "github.com/oshokin/geofence-monitor/internal/monitor"
	"github.com/oshokin/geofence-monitor/internal/provider"
)

// Service abstracts the manager operations the transport layer depends on.
type Service interface {
	Start() error
	Stop() error
	Status() domain.Status
	FenceCount() int
	CurrentFences() []domain.Fence
	SetFences(fences []domain.Fence) ([]domain.Fence, error)
}

// Server implements MonitorServiceServer.
type Server struct {
	// service provides the monitoring operations.
	service Service
}

var _ MonitorServiceServer = (*Server)(nil)

// NewServer wires the provided service into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// GetStatus returns the monitoring state.
func (s *Server) GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return s.statusResponse()
}

// Start requests monitoring of the current fences. The reply carries the
// state at the time of the call; confirmation arrives asynchronously.
func (s *Server) Start(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.service.Start(); err != nil {
		return nil, toStatusError(err)
	}

	logger.InfoKV(ctx, "Start requested over gRPC", "actor", ActorFromContext(ctx))

	return s.statusResponse()
}

// Stop requests that monitoring ends.
func (s *Server) Stop(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.service.Stop(); err != nil {
		return nil, toStatusError(err)
	}

	logger.InfoKV(ctx, "Stop requested over gRPC", "actor", ActorFromContext(ctx))

	return s.statusResponse()
}

// ListFences returns the registry as fence list JSON.
func (s *Server) ListFences(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return encodeFences(s.service.CurrentFences())
}

// SetFences replaces the registry and returns the previous list.
// Changes apply to the next start.
func (s *Server) SetFences(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	fences, err := provider.DecodeFences(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	previous, err := s.service.SetFences(fences)
	if err != nil {
		return nil, toStatusError(err)
	}

	logger.InfoKV(ctx, "Fences replaced over gRPC",
		"actor", ActorFromContext(ctx),
		"previous", len(previous), "current", len(fences))

	return encodeFences(previous)
}

func (s *Server) statusResponse() (*structpb.Struct, error) {
	response, err := StatusToStruct(s.service.Status(), s.service.FenceCount())
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode status")
	}

	return response, nil
}

func encodeFences(fences []domain.Fence) (*wrapperspb.StringValue, error) {
	payload, err := provider.EncodeFences(fences)
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode fences")
	}

	return wrapperspb.String(payload), nil
}

// toStatusError maps manager errors to gRPC status codes.
func toStatusError(err error) error {
	var validation *domain.ValidationError

	switch {
	case errors.As(err, &validation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, manager.ErrClosed):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
