package alert

import "github.com/oshokin/alarm-bridge/internal/domain/alarm"

// DefaultThreshold is the high-temperature threshold used when none is configured.
const DefaultThreshold = 30.0

// latch remembers whether its condition is currently raised.
type latch struct {
	// raised is true between a rising edge and the next false observation.
	raised bool
}

// update records the latest observation and reports a rising edge.
func (l *latch) update(condition bool) bool {
	if !condition {
		l.raised = false

		return false
	}

	if l.raised {
		return false
	}

	l.raised = true

	return true
}

// Detector derives alert events from status reports.
// It is not safe for concurrent use; the status path owns it exclusively.
type Detector struct {
	// threshold is the strict upper bound for the temperature condition.
	threshold float64
	// alarm latches the active condition.
	alarm latch
	// highTemp latches the temperature condition.
	highTemp latch
}

// New creates a detector with both latches quiescent.
func New(threshold float64) *Detector {
	return &Detector{
		threshold: threshold,
	}
}

// Threshold returns the configured high-temperature threshold.
func (d *Detector) Threshold() float64 {
	return d.threshold
}

// Observe feeds one status through both latches, alarm first and then
// high temperature, and returns the events raised by it (zero, one or two).
func (d *Detector) Observe(status alarm.Status) []alarm.Event {
	var events []alarm.Event

	// Armed does not gate the alarm condition.
	if d.alarm.update(status.Active) {
		events = append(events, alarm.Event{Kind: alarm.KindAlarm, Status: status})
	}

	if d.highTemp.update(status.Temp > d.threshold) {
		events = append(events, alarm.Event{Kind: alarm.KindHighTemperature, Status: status})
	}

	return events
}

// Raised reports whether the latch of the given kind is currently raised.
func (d *Detector) Raised(kind alarm.Kind) bool {
	switch kind {
	case alarm.KindAlarm:
		return d.alarm.raised
	case alarm.KindHighTemperature:
		return d.highTemp.raised
	default:
		return false
	}
}
