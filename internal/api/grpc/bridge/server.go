package bridge

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/alarm-bridge/internal/hub"
	"github.com/oshokin/alarm-bridge/internal/logger"
)

// ActorMetadataKey is the gRPC metadata key carrying the operator identity.
const ActorMetadataKey = "x-alarm-actor"

// Commander relays a raw command to the device.
type Commander interface {
	SendCommand(ctx context.Context, raw string) error
}

// Server implements BridgeServiceServer on top of the hub and a commander.
type Server struct {
	// ctx bounds the server lifetime; open streams end when it is done.
	ctx context.Context
	// hub supplies subscriptions for Subscribe streams.
	hub *hub.Hub
	// commander executes SendCommand requests.
	commander Commander
}

// NewServer wires the hub and commander into a gRPC handler.
// Subscribe streams are closed when ctx is done.
func NewServer(ctx context.Context, h *hub.Hub, commander Commander) *Server {
	return &Server{
		ctx:       ctx,
		hub:       h,
		commander: commander,
	}
}

// Subscribe streams every hub message published after the call until the client goes away.
func (s *Server) Subscribe(_ *emptypb.Empty, stream SubscribeServer) error {
	ctx := stream.Context()

	sub := s.hub.Subscribe()
	defer sub.Close()

	ctx = logger.WithKV(ctx, "subscriber", sub.ID())
	logger.Info(ctx, "gRPC subscriber connected")

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "gRPC subscriber disconnected")

			return nil
		case <-s.ctx.Done():
			return status.Error(codes.Unavailable, "server is shutting down")
		case msg, ok := <-sub.C():
			if !ok {
				return nil
			}

			payload, err := ToStruct(msg)
			if err != nil {
				logger.ErrorKV(ctx, "Encode message failed", "error", err)

				continue
			}

			if err := stream.Send(payload); err != nil {
				return err
			}
		}
	}
}

// SendCommand writes a command to the device. Failures are returned to this caller only.
func (s *Server) SendCommand(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if req == nil || strings.TrimSpace(req.GetValue()) == "" {
		return nil, status.Error(codes.InvalidArgument, "command is required")
	}

	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if actors := md.Get(ActorMetadataKey); len(actors) > 0 {
			ctx = logger.WithKV(ctx, "actor", actors[0])
		}
	}

	if err := s.commander.SendCommand(ctx, req.GetValue()); err != nil {
		return nil, status.Error(codes.Unavailable, err.Error())
	}

	return new(emptypb.Empty), nil
}
