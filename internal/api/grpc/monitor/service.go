package monitor

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "geofence.v1.MonitorService"

// Full method names.
const (
	MethodGetStatus  = "/" + ServiceName + "/GetStatus"
	MethodStart      = "/" + ServiceName + "/Start"
	MethodStop       = "/" + ServiceName + "/Stop"
	MethodListFences = "/" + ServiceName + "/ListFences"
	MethodSetFences  = "/" + ServiceName + "/SetFences"
)

// MonitorServiceServer is the server API of the monitor service.
//
//nolint:revive // Mirrors the naming of generated gRPC code.
type MonitorServiceServer interface {
	GetStatus(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	Start(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	Stop(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	ListFences(ctx context.Context, in *emptypb.Empty) (*wrapperspb.StringValue, error)
	SetFences(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
}

// ServiceDesc describes MonitorService for grpc.Server.RegisterService.
//
//nolint:gochecknoglobals // Service descriptors are package-level by convention.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MonitorServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: unaryHandler(MethodGetStatus, MonitorServiceServer.GetStatus)},
		{MethodName: "Start", Handler: unaryHandler(MethodStart, MonitorServiceServer.Start)},
		{MethodName: "Stop", Handler: unaryHandler(MethodStop, MonitorServiceServer.Stop)},
		{MethodName: "ListFences", Handler: unaryHandler(MethodListFences, MonitorServiceServer.ListFences)},
		{MethodName: "SetFences", Handler: unaryHandler(MethodSetFences, MonitorServiceServer.SetFences)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "geofence/v1/monitor.proto",
}

// RegisterMonitorServiceServer registers srv on s.
func RegisterMonitorServiceServer(s grpc.ServiceRegistrar, srv MonitorServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unaryHandler adapts a typed server method to grpc.MethodHandler.
func unaryHandler[Req, Resp any](
	fullMethod string,
	call func(MonitorServiceServer, context.Context, *Req) (Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}

		server, _ := srv.(MonitorServiceServer)

		if interceptor == nil {
			return call(server, ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			typed, _ := req.(*Req)

			return call(server, ctx, typed)
		}

		return interceptor(ctx, in, info, handler)
	}
}

// MonitorServiceClient is the client API of the monitor service.
//
//nolint:revive // Mirrors the naming of generated gRPC code.
type MonitorServiceClient interface {
	GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	Start(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	Stop(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListFences(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	SetFences(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
}

// monitorServiceClient invokes methods on a client connection.
type monitorServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewMonitorServiceClient returns a client bound to cc.
func NewMonitorServiceClient(cc grpc.ClientConnInterface) MonitorServiceClient {
	return &monitorServiceClient{cc: cc}
}

func (c *monitorServiceClient) GetStatus(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, MethodGetStatus, in, opts)
}

func (c *monitorServiceClient) Start(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, MethodStart, in, opts)
}

func (c *monitorServiceClient) Stop(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, MethodStop, in, opts)
}

func (c *monitorServiceClient) ListFences(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*wrapperspb.StringValue, error) {
	return invoke[wrapperspb.StringValue](ctx, c.cc, MethodListFences, in, opts)
}

func (c *monitorServiceClient) SetFences(
	ctx context.Context,
	in *wrapperspb.StringValue,
	opts ...grpc.CallOption,
) (*wrapperspb.StringValue, error) {
	return invoke[wrapperspb.StringValue](ctx, c.cc, MethodSetFences, in, opts)
}

func invoke[Resp any](
	ctx context.Context,
	cc grpc.ClientConnInterface,
	method string,
	in any,
	opts []grpc.CallOption,
) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
