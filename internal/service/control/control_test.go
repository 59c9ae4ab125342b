package control

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	api "github.com/oshokin/alarm-bridge/internal/api/grpc/bridge"
	"github.com/oshokin/alarm-bridge/internal/config"
	"github.com/oshokin/alarm-bridge/internal/device"
	"github.com/oshokin/alarm-bridge/internal/domain/alarm"
	"github.com/oshokin/alarm-bridge/internal/hub"
)

// fakeCommander records commands delivered through the gRPC API.
type fakeCommander struct {
	mu       sync.Mutex
	commands []string
}

// SendCommand records raw.
func (f *fakeCommander) SendCommand(_ context.Context, raw string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.commands = append(f.commands, raw)

	return nil
}

// recorded returns a snapshot of the received commands.
func (f *fakeCommander) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.commands...)
}

// syncBuffer is a bytes.Buffer safe for one writer and one polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write appends p.
func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

// String returns the buffered text.
func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

// startServer serves the bridge API on a loopback listener.
func startServer(t *testing.T, h *hub.Hub, commander api.Commander) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv := grpc.NewServer()
	api.RegisterBridgeServiceServer(srv, api.NewServer(ctx, h, commander))

	go func() {
		_ = srv.Serve(listener)
	}()

	t.Cleanup(func() {
		cancel()
		srv.Stop()
	})

	return listener.Addr().String()
}

// TestSend_UsesConfiguredAddress verifies the gRPC address falls back to the settings file.
func TestSend_UsesConfiguredAddress(t *testing.T) {
	t.Parallel()

	commander := new(fakeCommander)
	address := startServer(t, hub.New(), commander)

	path := filepath.Join(t.TempDir(), config.DefaultConfigFilename)
	require.NoError(t, config.Save(path, &config.Config{DevicePort: "/dev/ttyACM0", GRPCAddress: address}))

	err := Send(context.Background(), &Options{ConfigPath: path, Timeout: time.Second}, "ARM")
	require.NoError(t, err)
	require.Equal(t, []string{"ARM"}, commander.recorded())
}

// TestSend_DisabledGRPC ensures a missing gRPC address is reported clearly.
func TestSend_DisabledGRPC(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), config.DefaultConfigFilename)
	require.NoError(t, config.Save(path, &config.Config{DevicePort: "/dev/ttyACM0"}))

	err := Send(context.Background(), &Options{ConfigPath: path}, "ARM")
	require.ErrorIs(t, err, errGRPCDisabled)
}

// TestWatch_PrintsMessages verifies watched messages are written as JSON lines.
func TestWatch_PrintsMessages(t *testing.T) {
	t.Parallel()

	h := hub.New()
	address := startServer(t, h, new(fakeCommander))

	ctx, cancel := context.WithCancel(context.Background())
	out := new(syncBuffer)
	done := make(chan error, 1)

	go func() {
		done <- Watch(ctx, &Options{ServerAddress: address, Output: out})
	}()

	require.Eventually(t, func() bool {
		return h.Len() == 1
	}, 5*time.Second, 10*time.Millisecond)

	h.PublishStatus(alarm.Status{Armed: true, Temp: 22.5})

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `"type":"status"`)
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

// TestRenderPorts checks the table contains every port.
func TestRenderPorts(t *testing.T) {
	t.Parallel()

	rendered := RenderPorts([]device.PortInfo{
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "2341", PID: "0043", Product: "Arduino Uno"},
		{Name: "/dev/ttyS0"},
	})

	require.Contains(t, rendered, "/dev/ttyACM0")
	require.Contains(t, rendered, "Arduino Uno")
	require.Contains(t, rendered, "/dev/ttyS0")
}
