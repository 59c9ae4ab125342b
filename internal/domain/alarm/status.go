package alarm

// Terminator closes every record on the controller link in both directions.
const Terminator = '\n'

// Status is a single report from the controller.
type Status struct {
	// Armed reports whether the controller is armed. Informational only.
	Armed bool `json:"armed"`
	// Active reports whether the alarm condition is currently present.
	Active bool `json:"active"`
	// Temp is the measured temperature.
	Temp float64 `json:"temp"`
}

// Kind names an alert condition.
type Kind string

const (
	// KindAlarm is raised when the controller reports an active alarm.
	KindAlarm Kind = "alarm"
	// KindHighTemperature is raised when the temperature exceeds the threshold.
	KindHighTemperature Kind = "high-temperature"
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	return string(k)
}

// Event is emitted once per transition of an alert condition into the raised state.
type Event struct {
	// Kind is the alert condition that was raised.
	Kind Kind `json:"kind"`
	// Status is the report that raised the condition.
	Status Status `json:"status"`
}
