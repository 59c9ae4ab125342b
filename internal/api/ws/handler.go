package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/oshokin/alarm-bridge/internal/hub"
	"github.com/oshokin/alarm-bridge/internal/logger"
)

// writeTimeout bounds a single frame write to a subscriber.
const writeTimeout = 10 * time.Second

var (
	// errUnsupportedType is acknowledged for requests that are not commands.
	errUnsupportedType = errors.New("unsupported message type")
	// errMalformedRequest is acknowledged for frames that are not valid requests.
	errMalformedRequest = errors.New("malformed request")
)

// Commander relays a raw command to the device.
type Commander interface {
	SendCommand(ctx context.Context, raw string) error
}

// Handler upgrades HTTP requests to WebSocket subscriber sessions.
type Handler struct {
	// ctx carries the base logger.
	ctx context.Context
	// hub supplies the subscriptions.
	hub *hub.Hub
	// commander executes client commands.
	commander Commander
	// originPatterns lists extra allowed origins for cross-origin dashboards.
	originPatterns []string
}

// NewHandler creates a Handler.
func NewHandler(ctx context.Context, h *hub.Hub, commander Commander, originPatterns []string) *Handler {
	return &Handler{
		ctx:            logger.WithName(ctx, "ws"),
		hub:            h,
		commander:      commander,
		originPatterns: originPatterns,
	}
}

// ServeHTTP runs one subscriber session until either side disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		logger.WarnKV(h.ctx, "WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)

		return
	}

	sub := h.hub.Subscribe()

	ctx, cancel := context.WithCancel(r.Context())
	ctx = logger.ToContext(ctx, logger.FromContext(h.ctx).With("subscriber", sub.ID(), "remote", r.RemoteAddr))

	logger.Info(ctx, "Client connected")

	var wg sync.WaitGroup

	wg.Go(func() {
		defer cancel()

		h.writeLoop(ctx, conn, sub)
	})

	h.readLoop(ctx, conn)

	sub.Close()
	cancel()
	wg.Wait()

	_ = conn.Close(websocket.StatusNormalClosure, "")

	logger.Info(ctx, "Client disconnected")
}

// writeLoop pushes hub messages to the client until the subscription closes or ctx ends.
func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, sub *hub.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.C():
			if !ok {
				return
			}

			data, err := msg.Marshal()
			if err != nil {
				logger.ErrorKV(ctx, "Encode message failed", "error", err)

				continue
			}

			if err := write(ctx, conn, data); err != nil {
				logger.DebugKV(ctx, "Write to client failed", "error", err)

				return
			}
		}
	}
}

// readLoop executes client commands until the connection fails.
func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				logger.DebugKV(ctx, "Read from client failed", "error", err)
			}

			return
		}

		ack := h.execute(ctx, data)

		payload, err := sonic.Marshal(ack)
		if err != nil {
			logger.ErrorKV(ctx, "Encode ack failed", "error", err)

			continue
		}

		if err := write(ctx, conn, payload); err != nil {
			return
		}
	}
}

// execute runs a single client frame and returns its acknowledgement.
func (h *Handler) execute(ctx context.Context, data []byte) Ack {
	req, err := decodeRequest(data)
	if err != nil {
		logger.DebugKV(ctx, "Rejecting client frame", "error", err)

		return newAck("", errMalformedRequest)
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	if req.Type != "" && req.Type != typeCommand {
		return newAck(req.ID, fmt.Errorf("%w: %q", errUnsupportedType, req.Type))
	}

	return newAck(req.ID, h.commander.SendCommand(logger.WithKV(ctx, "command_id", req.ID), req.Command))
}

// write sends one text frame with a bounded deadline.
func write(ctx context.Context, conn *websocket.Conn, data []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	return conn.Write(writeCtx, websocket.MessageText, data)
}
