package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oshokin/alarm-bridge/internal/device"
	"github.com/oshokin/alarm-bridge/internal/domain/alarm"
	"github.com/oshokin/alarm-bridge/internal/hub"
	"github.com/oshokin/alarm-bridge/internal/logger"
	"github.com/oshokin/alarm-bridge/internal/metrics"
)

// ErrEmptyCommand is returned for blank operator commands.
var ErrEmptyCommand = errors.New("command must not be empty")

// Writer sends framed bytes to the controller as one unbroken sequence.
type Writer interface {
	Write(p []byte) error
}

// Commander relays operator commands to the device. It is safe for
// concurrent use; the device serializes the actual writes.
type Commander struct {
	// device is the shared write side of the controller link.
	device Writer
	// hub is told about device-level write failures.
	hub *hub.Hub
	// metrics records command outcomes; may be nil.
	metrics *metrics.Metrics
}

// NewCommander creates a Commander writing to dev.
func NewCommander(dev Writer, h *hub.Hub, m *metrics.Metrics) *Commander {
	return &Commander{
		device:  dev,
		hub:     h,
		metrics: m,
	}
}

// SendCommand frames raw and writes it once. The error is meant for the
// originating subscriber only; an I/O failure of an open port is also
// broadcast as a system error.
func (c *Commander) SendCommand(ctx context.Context, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return ErrEmptyCommand
	}

	err := c.device.Write(alarm.EncodeCommand(raw))
	c.metrics.Command(err)

	if err != nil {
		logger.WarnKV(ctx, "Command write failed", "command", raw, "error", err)

		if !errors.Is(err, device.ErrUnavailable) && c.hub != nil {
			c.hub.PublishError(fmt.Errorf("device write failed: %w", err))
		}

		return fmt.Errorf("send command: %w", err)
	}

	logger.InfoKV(ctx, "Command sent", "command", raw)

	return nil
}
