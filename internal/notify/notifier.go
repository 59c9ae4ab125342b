package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/alarm-bridge/internal/domain/alarm"
	"github.com/oshokin/alarm-bridge/internal/hub"
	"github.com/oshokin/alarm-bridge/internal/logger"
)

// Sender delivers notifications to operators.
type Sender interface {
	SendAlert(ctx context.Context, event alarm.Event) error
	SendSystemError(ctx context.Context, message string) error
}

// LogSender writes notifications to the log.
type LogSender struct{}

// SendAlert logs the alert at warning level.
func (LogSender) SendAlert(ctx context.Context, event alarm.Event) error {
	logger.WarnKV(
		ctx,
		"ALERT",
		"kind", event.Kind,
		"armed", event.Status.Armed,
		"active", event.Status.Active,
		"temp", event.Status.Temp,
	)

	return nil
}

// SendSystemError logs the system error at error level.
func (LogSender) SendSystemError(ctx context.Context, message string) error {
	logger.ErrorKV(ctx, "SYSTEM ERROR", "error", message)

	return nil
}

// Notifier filters hub messages down to notifications.
// It is driven by a single goroutine.
type Notifier struct {
	// sender delivers the notifications.
	sender Sender
	// interval is the minimum gap between two notifications of one kind; zero disables it.
	interval time.Duration
	// last holds the time of the last notification per kind.
	last map[alarm.Kind]time.Time
}

// New creates a Notifier. A nil sender logs notifications.
func New(sender Sender, interval time.Duration) *Notifier {
	if sender == nil {
		sender = LogSender{}
	}

	return &Notifier{
		sender:   sender,
		interval: interval,
		last:     make(map[alarm.Kind]time.Time),
	}
}

// Subscribe registers the notifier on h for alerts and system errors only.
func (n *Notifier) Subscribe(h *hub.Hub) *hub.Subscription {
	return h.Subscribe(hub.WithTypes(hub.MessageAlert, hub.MessageError))
}

// Run consumes sub until ctx is done or the subscription is closed.
func (n *Notifier) Run(ctx context.Context, sub *hub.Subscription) {
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.C():
			if !ok {
				return
			}

			if _, err := n.Handle(ctx, msg); err != nil {
				logger.ErrorKV(ctx, "Notification failed", "type", msg.Type, "error", err)
			}
		}
	}
}

// Handle processes one message and reports whether a notification was sent.
func (n *Notifier) Handle(ctx context.Context, msg hub.Message) (bool, error) {
	switch msg.Type {
	case hub.MessageAlert:
		if msg.Alert == nil {
			return false, nil
		}

		return n.handleAlert(ctx, *msg.Alert)
	case hub.MessageError:
		if err := n.sender.SendSystemError(ctx, msg.Error); err != nil {
			return false, fmt.Errorf("send system error: %w", err)
		}

		return true, nil
	default:
		return false, nil
	}
}

// handleAlert applies the re-notification interval and sends the alert.
func (n *Notifier) handleAlert(ctx context.Context, event alarm.Event) (bool, error) {
	now := time.Now()

	if last, seen := n.last[event.Kind]; seen && n.interval > 0 && now.Sub(last) < n.interval {
		logger.DebugKV(ctx, "Alert notification suppressed", "kind", event.Kind, "since_last", now.Sub(last).String())

		return false, nil
	}

	if err := n.sender.SendAlert(ctx, event); err != nil {
		return false, fmt.Errorf("send %s alert: %w", event.Kind, err)
	}

	n.last[event.Kind] = now

	return true, nil
}
