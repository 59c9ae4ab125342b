//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	api "github.com/oshokin/alarm-bridge/internal/api/grpc/bridge"
	"github.com/oshokin/alarm-bridge/internal/hub"
)

// DefaultTimeout is the default timeout for unary calls.
const DefaultTimeout = 5 * time.Second

// Client wraps the BridgeService gRPC client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the bridge.
	conn *grpc.ClientConn
	// api is the BridgeService client.
	api api.BridgeServiceClient

	// callTimeout is the default timeout for unary calls.
	callTimeout time.Duration
	// actor identifies the operator in command metadata; empty omits it.
	actor string
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for unary calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor attaches the operator identity to every command.
func WithActor(actor string) Option {
	return func(c *Client) {
		c.actor = actor
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errCommandRequired is returned for blank commands.
	errCommandRequired = errors.New("command must be provided")
)

// Dial establishes a gRPC connection to the bridge.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial bridge: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         api.NewBridgeServiceClient(conn),
		callTimeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// SendCommand asks the bridge to write a command to the controller.
func (c *Client) SendCommand(ctx context.Context, command string) error {
	if command == "" {
		return errCommandRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if c.actor != "" {
		callCtx = metadata.AppendToOutgoingContext(callCtx, api.ActorMetadataKey, c.actor)
	}

	if _, err := c.api.SendCommand(callCtx, wrapperspb.String(command)); err != nil {
		return fmt.Errorf("send command: %w", err)
	}

	return nil
}

// Watch streams hub messages to fn until ctx ends, the stream fails or fn returns an error.
func (c *Client) Watch(ctx context.Context, fn func(hub.Message) error) error {
	stream, err := c.api.Subscribe(ctx, new(emptypb.Empty))
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	for {
		payload, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			return fmt.Errorf("receive: %w", err)
		}

		msg, err := api.FromStruct(payload)
		if err != nil {
			return fmt.Errorf("decode message: %w", err)
		}

		if err := fn(msg); err != nil {
			return err
		}
	}
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
