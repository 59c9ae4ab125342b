package bridge

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/alarm-bridge/internal/domain/alarm"
	"github.com/oshokin/alarm-bridge/internal/hub"
)

var errTestUnavailable = errors.New("device unavailable")

// fakeCommander implements Commander for unit testing the transport.
type fakeCommander struct {
	mu       sync.Mutex
	commands []string
	err      error
}

// SendCommand records raw and returns the configured error.
func (f *fakeCommander) SendCommand(_ context.Context, raw string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.commands = append(f.commands, raw)

	return f.err
}

// startGRPC serves s on a loopback port and returns a connected client.
func startGRPC(t *testing.T, s *Server) BridgeServiceClient {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	grpcServer := grpc.NewServer()
	RegisterBridgeServiceServer(grpcServer, s)

	go func() {
		_ = grpcServer.Serve(lis)
	}()

	t.Cleanup(grpcServer.Stop)

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return NewBridgeServiceClient(conn)
}

// TestServer_SendCommand_Validation ensures blank commands return InvalidArgument.
func TestServer_SendCommand_Validation(t *testing.T) {
	t.Parallel()

	commander := new(fakeCommander)
	s := NewServer(context.Background(), hub.New(), commander)

	_, err := s.SendCommand(context.Background(), nil)
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.SendCommand(context.Background(), wrapperspb.String("  "))
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	require.Empty(t, commander.commands)
}

// TestServer_SendCommand_Outcomes maps commander results to gRPC codes.
func TestServer_SendCommand_Outcomes(t *testing.T) {
	t.Parallel()

	commander := new(fakeCommander)
	s := NewServer(context.Background(), hub.New(), commander)

	_, err := s.SendCommand(context.Background(), wrapperspb.String("ARM"))
	require.NoError(t, err)

	commander.err = errTestUnavailable

	_, err = s.SendCommand(context.Background(), wrapperspb.String("DISARM"))
	require.Equal(t, codes.Unavailable, status.Code(err))
	require.Contains(t, status.Convert(err).Message(), "device unavailable")

	require.Equal(t, []string{"ARM", "DISARM"}, commander.commands)
}

// TestServer_Roundtrip exercises Subscribe and SendCommand over a real connection.
func TestServer_Roundtrip(t *testing.T) {
	t.Parallel()

	h := hub.New()
	commander := new(fakeCommander)
	client := startGRPC(t, NewServer(context.Background(), h, commander))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := client.Subscribe(ctx, new(emptypb.Empty))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return h.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	report := alarm.Status{Armed: true, Active: true, Temp: 31.2}
	h.PublishStatus(report)
	h.PublishAlert(alarm.Event{Kind: alarm.KindAlarm, Status: report})

	first, err := stream.Recv()
	require.NoError(t, err)

	msg, err := FromStruct(first)
	require.NoError(t, err)
	require.Equal(t, hub.StatusMessage(report), msg)

	second, err := stream.Recv()
	require.NoError(t, err)

	msg, err = FromStruct(second)
	require.NoError(t, err)
	require.Equal(t, hub.AlertMessage(alarm.Event{Kind: alarm.KindAlarm, Status: report}), msg)

	_, err = client.SendCommand(ctx, wrapperspb.String("ARM"))
	require.NoError(t, err)

	cancel()
	require.Eventually(t, func() bool { return h.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

// TestConvert_Roundtrip checks every message type survives the Struct conversion.
func TestConvert_Roundtrip(t *testing.T) {
	t.Parallel()

	report := alarm.Status{Armed: false, Active: true, Temp: -3.25}
	messages := []hub.Message{
		hub.StatusMessage(report),
		hub.AlertMessage(alarm.Event{Kind: alarm.KindHighTemperature, Status: report}),
		hub.ErrorMessage(errTestUnavailable),
	}

	for _, want := range messages {
		s, err := ToStruct(want)
		require.NoError(t, err)

		got, err := FromStruct(s)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := FromStruct(nil)
	require.ErrorIs(t, err, errMalformedMessage)
}
