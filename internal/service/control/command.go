package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/oshokin/alarm-bridge/internal/config"
	"github.com/oshokin/alarm-bridge/internal/hub"
	"github.com/oshokin/alarm-bridge/internal/logger"
	"github.com/oshokin/alarm-bridge/internal/service/common"
)

// errGRPCDisabled is returned when no server address is given and the config disables gRPC.
var errGRPCDisabled = errors.New("gRPC API is disabled in settings, pass --server explicitly")

// Options configures how the control client reaches the bridge.
type Options struct {
	// ConfigPath to YAML settings file, used when ServerAddress is empty.
	ConfigPath string
	// ServerAddress overrides the gRPC address from config when specified.
	ServerAddress string
	// Timeout bounds unary calls; zero uses the client default.
	Timeout time.Duration
	// Output receives watched messages; nil means stdout.
	Output io.Writer
}

// Send writes one command to the controller through the bridge.
func Send(ctx context.Context, opts *Options, command string) error {
	ctx = logger.WithName(ctx, "alarm-bridge-ctl")

	address, err := resolveAddress(opts)
	if err != nil {
		return err
	}

	// Identify current user and hostname for the bridge log.
	actor, err := common.DetectActor()
	if err != nil {
		return err
	}

	client, err := common.Dial(ctx, address, common.WithCallTimeout(opts.Timeout), common.WithActor(actor))
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	if err = client.SendCommand(ctx, command); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Command delivered to the controller", "server_address", address, "command", command)

	return nil
}

// Watch prints every bridge message as a JSON line until ctx is canceled.
func Watch(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "alarm-bridge-ctl")

	address, err := resolveAddress(opts)
	if err != nil {
		return err
	}

	client, err := common.Dial(ctx, address, common.WithCallTimeout(opts.Timeout))
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	logger.InfoKV(ctx, "Watching bridge messages", "server_address", address)

	err = client.Watch(ctx, func(msg hub.Message) error {
		payload, marshalErr := msg.Marshal()
		if marshalErr != nil {
			return marshalErr
		}

		_, writeErr := fmt.Fprintln(out, string(payload))

		return writeErr
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

// resolveAddress picks the explicit address or falls back to the configured gRPC address.
func resolveAddress(opts *Options) (string, error) {
	if opts.ServerAddress != "" {
		return opts.ServerAddress, nil
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return "", fmt.Errorf("load settings: %w", err)
	}

	if cfg.GRPCAddress == "" {
		return "", errGRPCDisabled
	}

	return cfg.GRPCAddress, nil
}
