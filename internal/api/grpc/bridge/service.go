package bridge

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "alarmbridge.v1.BridgeService"

	// SubscribeMethod is the full method name of Subscribe.
	SubscribeMethod = "/" + ServiceName + "/Subscribe"
	// SendCommandMethod is the full method name of SendCommand.
	SendCommandMethod = "/" + ServiceName + "/SendCommand"
)

// SubscribeServer is the server side of the Subscribe stream.
type SubscribeServer = grpc.ServerStreamingServer[structpb.Struct]

// SubscribeClient is the client side of the Subscribe stream.
type SubscribeClient = grpc.ServerStreamingClient[structpb.Struct]

// BridgeServiceServer is the server API for BridgeService.
type BridgeServiceServer interface {
	Subscribe(req *emptypb.Empty, stream SubscribeServer) error
	SendCommand(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error)
}

// ServiceDesc describes BridgeService for grpc.Server.RegisterService.
//
//nolint:gochecknoglobals // Service descriptors are package-level by gRPC convention.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BridgeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SendCommand",
			Handler:    sendCommandHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "alarmbridge/v1/bridge.proto",
}

// RegisterBridgeServiceServer registers srv on the gRPC server.
func RegisterBridgeServiceServer(s grpc.ServiceRegistrar, srv BridgeServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// sendCommandHandler decodes a SendCommand request and dispatches it through interceptors.
func sendCommandHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(BridgeServiceServer).SendCommand(ctx, in) //nolint:forcetypeassert // Guaranteed by HandlerType.
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: SendCommandMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		//nolint:forcetypeassert // Guaranteed by HandlerType and dec.
		return srv.(BridgeServiceServer).SendCommand(ctx, req.(*wrapperspb.StringValue))
	}

	return interceptor(ctx, in, info, handler)
}

// subscribeHandler reads the Subscribe request and hands the stream to the service.
func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	//nolint:forcetypeassert // Guaranteed by HandlerType.
	return srv.(BridgeServiceServer).Subscribe(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{
		ServerStream: stream,
	})
}

// BridgeServiceClient is the client API for BridgeService.
type BridgeServiceClient interface {
	Subscribe(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (SubscribeClient, error)
	SendCommand(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

// bridgeServiceClient implements BridgeServiceClient over a connection.
type bridgeServiceClient struct {
	// cc is the underlying connection.
	cc grpc.ClientConnInterface
}

// NewBridgeServiceClient creates a client bound to cc.
func NewBridgeServiceClient(cc grpc.ClientConnInterface) BridgeServiceClient {
	return &bridgeServiceClient{cc: cc}
}

// Subscribe opens the status stream.
func (c *bridgeServiceClient) Subscribe(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (SubscribeClient, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], SubscribeMethod, opts...)
	if err != nil {
		return nil, err
	}

	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}

	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}

	return x, nil
}

// SendCommand writes a command to the device.
func (c *bridgeServiceClient) SendCommand(
	ctx context.Context,
	in *wrapperspb.StringValue,
	opts ...grpc.CallOption,
) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, SendCommandMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
