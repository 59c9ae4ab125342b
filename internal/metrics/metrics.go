package metrics

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/oshokin/alarm-bridge/internal/domain/alarm"
)

const (
	namespace = "alarm_bridge"

	// CommandResultOK labels a command that reached the device.
	CommandResultOK = "ok"
	// CommandResultFailed labels a command whose write failed.
	CommandResultFailed = "failed"
)

// Metrics tracks pipeline and fan-out statistics.
type Metrics struct {
	// mu guards registration.
	mu sync.Mutex

	bytesRead      prometheus.Counter
	linesFramed    prometheus.Counter
	decodeFailures prometheus.Counter
	statuses       prometheus.Counter
	alerts         *prometheus.CounterVec
	commands       *prometheus.CounterVec
	subscribers    prometheus.Gauge
	dropped        prometheus.Counter
	systemErrors   prometheus.Counter

	registerer prometheus.Registerer
	registered bool
}

// New creates the collectors. They are not exported until Register is called.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		registerer:     registerer,
		bytesRead:      newCounter("device_bytes_read_total", "Total number of bytes read from the device."),
		linesFramed:    newCounter("lines_framed_total", "Total number of complete lines produced by the framer."),
		decodeFailures: newCounter("decode_failures_total", "Total number of lines rejected by the status decoder."),
		statuses:       newCounter("statuses_published_total", "Total number of status records published to subscribers."),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_raised_total",
			Help:      "Total number of alert events raised, by kind.",
		}, []string{"kind"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total number of operator commands written to the device, by result.",
		}, []string{"result"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribers",
			Help:      "Number of currently subscribed consumers.",
		}),
		dropped:      newCounter("messages_dropped_total", "Total number of messages dropped for slow subscribers."),
		systemErrors: newCounter("system_errors_total", "Total number of device-level errors broadcast to subscribers."),
	}
}

// newCounter creates a counter in the bridge namespace.
func newCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	})
}

// Register registers the collectors. Safe to call multiple times.
func (m *Metrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	collectors := []prometheus.Collector{
		m.bytesRead,
		m.linesFramed,
		m.decodeFailures,
		m.statuses,
		m.alerts,
		m.commands,
		m.subscribers,
		m.dropped,
		m.systemErrors,
	}

	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}

			return fmt.Errorf("register collector: %w", err)
		}
	}

	m.registered = true

	return nil
}

// BytesRead records a raw chunk received from the device.
func (m *Metrics) BytesRead(n int) {
	if m == nil || n <= 0 {
		return
	}

	m.bytesRead.Add(float64(n))
}

// LinesFramed records complete lines emitted by the framer.
func (m *Metrics) LinesFramed(n int) {
	if m == nil || n <= 0 {
		return
	}

	m.linesFramed.Add(float64(n))
}

// DecodeFailure records one rejected line.
func (m *Metrics) DecodeFailure() {
	if m == nil {
		return
	}

	m.decodeFailures.Inc()
}

// StatusPublished records one status record fanned out.
func (m *Metrics) StatusPublished() {
	if m == nil {
		return
	}

	m.statuses.Inc()
}

// AlertRaised records one alert event.
func (m *Metrics) AlertRaised(kind alarm.Kind) {
	if m == nil {
		return
	}

	m.alerts.WithLabelValues(kind.String()).Inc()
}

// Command records the outcome of one command write.
func (m *Metrics) Command(err error) {
	if m == nil {
		return
	}

	result := CommandResultOK
	if err != nil {
		result = CommandResultFailed
	}

	m.commands.WithLabelValues(result).Inc()
}

// SetSubscribers updates the current subscriber count.
func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}

	m.subscribers.Set(float64(n))
}

// MessageDropped records a message not delivered to a slow subscriber.
func (m *Metrics) MessageDropped() {
	if m == nil {
		return
	}

	m.dropped.Inc()
}

// SystemError records a device-level error broadcast.
func (m *Metrics) SystemError() {
	if m == nil {
		return
	}

	m.systemErrors.Inc()
}
