package integration

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-bridge/internal/config"
	"github.com/oshokin/alarm-bridge/internal/device"
	"github.com/oshokin/alarm-bridge/internal/service/bridge"
)

var (
	errNoSuchDevice = errors.New("no such file or directory")
	errUnplugged    = errors.New("input/output error")
)

// pipePort is an in-memory controller: the test writes device output into
// feed and reads back the commands the bridge wrote.
type pipePort struct {
	reader *io.PipeReader
	feed   *io.PipeWriter

	mu      sync.Mutex
	written strings.Builder
}

// newPipePort creates a connected in-memory port.
func newPipePort() *pipePort {
	reader, feed := io.Pipe()

	return &pipePort{reader: reader, feed: feed}
}

// Read returns bytes fed by the test.
func (p *pipePort) Read(b []byte) (int, error) {
	return p.reader.Read(b)
}

// Write records a command written by the bridge.
func (p *pipePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.written.Write(b)
}

// Close unblocks pending reads.
func (p *pipePort) Close() error {
	return p.reader.Close()
}

// commands returns everything the bridge wrote so far.
func (p *pipePort) commands() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.written.String()
}

// reservePort returns a free loopback address.
func reservePort(t *testing.T) string {
	t.Helper()

	lc := net.ListenConfig{}

	lis, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	return addr
}

// bridgeEnv describes a bridge running in the background.
type bridgeEnv struct {
	httpAddr string
	grpcAddr string
}

// startBridge runs bridge.Run with opener until the test ends.
func startBridge(t *testing.T, opener device.Opener) *bridgeEnv {
	t.Helper()

	env := &bridgeEnv{
		httpAddr: reservePort(t),
		grpcAddr: reservePort(t),
	}

	cfgPath := filepath.Join(t.TempDir(), config.DefaultConfigFilename)
	require.NoError(t, config.Save(cfgPath, &config.Config{
		DevicePort:    "/dev/ttyACM0",
		ListenAddress: env.httpAddr,
		GRPCAddress:   env.grpcAddr,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- bridge.Run(ctx, &bridge.Options{ConfigPath: cfgPath, Opener: opener})
	}()

	t.Cleanup(func() {
		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("bridge did not stop")
		}
	})

	require.Eventually(t, func() bool {
		return env.get(t, "/healthz") == "ok"
	}, 5*time.Second, 20*time.Millisecond)

	return env
}

// get fetches path from the HTTP listener and returns the body, or "" on failure.
func (e *bridgeEnv) get(t *testing.T, path string) string {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://"+e.httpAddr+path, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return ""
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}

	return string(body)
}

// waitSubscribers blocks until the hub reports n subscribers.
func (e *bridgeEnv) waitSubscribers(t *testing.T, n int) {
	t.Helper()

	want := "alarm_bridge_subscribers " + strconv.Itoa(n)

	require.Eventually(t, func() bool {
		return strings.Contains(e.get(t, "/metrics"), want)
	}, 5*time.Second, 20*time.Millisecond)
}

// dialWS opens a WebSocket subscriber.
func (e *bridgeEnv) dialWS(t *testing.T) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws://"+e.httpAddr+"/ws", nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.CloseNow()
	})

	return conn
}

// readFrame reads one JSON frame as a generic map.
func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var frame map[string]any
	require.NoError(t, sonic.Unmarshal(data, &frame))

	return frame
}

// writeFrame sends one text frame.
func writeFrame(t *testing.T, conn *websocket.Conn, data string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(data)))
}
