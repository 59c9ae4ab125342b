package hub

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/oshokin/alarm-bridge/internal/domain/alarm"
	"github.com/oshokin/alarm-bridge/internal/logger"
	"github.com/oshokin/alarm-bridge/internal/metrics"
)

// DefaultBufferSize is the per-subscriber buffer used when none is configured.
const DefaultBufferSize = 64

// Hub tracks subscriptions and broadcasts messages to all of them.
type Hub struct {
	// ctx carries the logger used for drop warnings.
	ctx context.Context
	// bufferSize is the capacity of each subscription channel.
	bufferSize int
	// metrics records fan-out statistics; may be nil.
	metrics *metrics.Metrics

	// mu guards subs. Publishers hold it for reading while sending,
	// so a subscription channel is never closed mid-send.
	mu sync.RWMutex
	// subs holds the current subscriptions by ID.
	subs map[string]*Subscription
}

// Option configures a Hub.
type Option func(*Hub)

// WithBufferSize sets the per-subscriber buffer size.
func WithBufferSize(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.bufferSize = size
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Hub) {
		h.metrics = m
	}
}

// WithContext sets the context whose logger reports dropped messages.
func WithContext(ctx context.Context) Option {
	return func(h *Hub) {
		if ctx != nil {
			h.ctx = ctx
		}
	}
}

// New creates an empty Hub.
func New(opts ...Option) *Hub {
	h := &Hub{
		ctx:        context.Background(),
		bufferSize: DefaultBufferSize,
		subs:       make(map[string]*Subscription),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Subscription is one consumer's view of the hub.
type Subscription struct {
	// id identifies the subscription in logs.
	id string
	// ch receives published messages; closed by Close.
	ch chan Message
	// hub is the owner the subscription detaches from.
	hub *Hub
	// once makes Close idempotent.
	once sync.Once
	// types limits delivery to these message types; nil delivers everything.
	types map[MessageType]struct{}
}

// SubscribeOption configures a single subscription.
type SubscribeOption func(*Subscription)

// WithTypes limits a subscription to the given message types.
// Status ticks then never compete with alerts for buffer space.
func WithTypes(types ...MessageType) SubscribeOption {
	return func(s *Subscription) {
		s.types = make(map[MessageType]struct{}, len(types))
		for _, t := range types {
			s.types[t] = struct{}{}
		}
	}
}

// accepts reports whether the subscription wants messages of type t.
func (s *Subscription) accepts(t MessageType) bool {
	if s.types == nil {
		return true
	}

	_, ok := s.types[t]

	return ok
}

// ID returns the subscription identifier.
func (s *Subscription) ID() string {
	return s.id
}

// C returns the delivery channel. It is closed after Close.
func (s *Subscription) C() <-chan Message {
	return s.ch
}

// Close detaches the subscription. Messages published afterwards are not delivered.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Subscribe registers a new consumer. It receives only messages published from now on.
func (h *Hub) Subscribe(opts ...SubscribeOption) *Subscription {
	sub := &Subscription{
		id:  uuid.NewString(),
		ch:  make(chan Message, h.bufferSize),
		hub: h,
	}

	for _, opt := range opts {
		opt(sub)
	}

	h.mu.Lock()
	h.subs[sub.id] = sub
	count := len(h.subs)
	h.mu.Unlock()

	h.metrics.SetSubscribers(count)
	logger.DebugKV(h.ctx, "Subscriber joined", "subscriber", sub.id, "subscribers", count)

	return sub
}

// remove deletes the subscription and closes its channel.
func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	delete(h.subs, sub.id)
	close(sub.ch)
	count := len(h.subs)
	h.mu.Unlock()

	h.metrics.SetSubscribers(count)
	logger.DebugKV(h.ctx, "Subscriber left", "subscriber", sub.id, "subscribers", count)
}

// Len returns the number of current subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subs)
}

// PublishStatus broadcasts a status record.
func (h *Hub) PublishStatus(status alarm.Status) {
	h.metrics.StatusPublished()
	h.publish(StatusMessage(status))
}

// PublishAlert broadcasts an alert event.
func (h *Hub) PublishAlert(event alarm.Event) {
	h.metrics.AlertRaised(event.Kind)
	h.publish(AlertMessage(event))
}

// PublishError broadcasts a system-level error notification.
func (h *Hub) PublishError(err error) {
	if err == nil {
		return
	}

	h.metrics.SystemError()
	h.publish(ErrorMessage(err))
}

// publish offers msg to every subscriber without blocking.
func (h *Hub) publish(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, sub := range h.subs {
		if !sub.accepts(msg.Type) {
			continue
		}

		select {
		case sub.ch <- msg:
		default:
			h.metrics.MessageDropped()
			logger.WarnKV(h.ctx, "Subscriber buffer full, message dropped", "subscriber", id, "type", msg.Type)
		}
	}
}
