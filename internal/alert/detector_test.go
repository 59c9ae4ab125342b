package alert

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-bridge/internal/domain/alarm"
)

// kindsOf extracts alert kinds for compact assertions.
func kindsOf(events []alarm.Event) []alarm.Kind {
	kinds := make([]alarm.Kind, 0, len(events))
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}

	return kinds
}

// TestObserve_AlarmEdges verifies that a persistent alarm is reported once per contiguous run.
func TestObserve_AlarmEdges(t *testing.T) {
	t.Parallel()

	d := New(DefaultThreshold)

	var raisedAt []int

	for i, active := range []bool{false, true, true, false, true} {
		// Armed alternates to show it plays no part in the predicate.
		events := d.Observe(alarm.Status{Armed: i%2 == 0, Active: active, Temp: 20})
		for _, e := range events {
			require.Equal(t, alarm.KindAlarm, e.Kind)

			raisedAt = append(raisedAt, i)
		}
	}

	require.Equal(t, []int{1, 4}, raisedAt)
}

// TestObserve_ThresholdIsStrict checks the boundary of the high-temperature condition.
func TestObserve_ThresholdIsStrict(t *testing.T) {
	t.Parallel()

	d := New(30.0)

	require.Empty(t, d.Observe(alarm.Status{Temp: 30.0}))
	require.False(t, d.Raised(alarm.KindHighTemperature))

	events := d.Observe(alarm.Status{Temp: 30.01})
	require.Equal(t, []alarm.Kind{alarm.KindHighTemperature}, kindsOf(events))
	require.InDelta(t, 30.01, events[0].Status.Temp, 0)
	require.True(t, d.Raised(alarm.KindHighTemperature))

	// Still hot: suppressed.
	require.Empty(t, d.Observe(alarm.Status{Temp: 45}))

	// Back at the threshold: silent reset, then a fresh edge.
	require.Empty(t, d.Observe(alarm.Status{Temp: 30.0}))
	require.False(t, d.Raised(alarm.KindHighTemperature))
	require.Len(t, d.Observe(alarm.Status{Temp: 31}), 1)
}

// TestObserve_BothKindsInOrder asserts that one status can raise both alerts, alarm first.
func TestObserve_BothKindsInOrder(t *testing.T) {
	t.Parallel()

	d := New(DefaultThreshold)

	status := alarm.Status{Armed: true, Active: true, Temp: 31.2}
	events := d.Observe(status)

	require.Equal(t, []alarm.Kind{alarm.KindAlarm, alarm.KindHighTemperature}, kindsOf(events))

	for _, e := range events {
		require.Equal(t, status, e.Status)
	}

	require.Empty(t, d.Observe(status))
}

// TestObserve_IndependentLatches verifies that clearing one condition does not re-arm the other.
func TestObserve_IndependentLatches(t *testing.T) {
	t.Parallel()

	d := New(25)

	require.Len(t, d.Observe(alarm.Status{Active: true, Temp: 26}), 2)

	// Alarm clears, temperature stays high.
	require.Empty(t, d.Observe(alarm.Status{Active: false, Temp: 27}))

	// Alarm re-raises alone.
	events := d.Observe(alarm.Status{Active: true, Temp: 28})
	require.Equal(t, []alarm.Kind{alarm.KindAlarm}, kindsOf(events))

	require.False(t, d.Raised(alarm.Kind("unknown")))
	require.InDelta(t, 25.0, d.Threshold(), 0)
}
