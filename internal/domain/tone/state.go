package tone

import "time"

// State tells which source owns the output device.
type State int

const (
	// StateIdle means nobody drives the device and it is silent.
	StateIdle State = iota
	// StateAmbientActive means the sensor path drives the device.
	StateAmbientActive
	// StateCommandActive means a command task drives the device.
	StateCommandActive
)

// String returns the snake_case name of the state.
func (s State) String() string {
	switch s {
	case StateAmbientActive:
		return "ambient_active"
	case StateCommandActive:
		return "command_active"
	default:
		return "idle"
	}
}

// Snapshot is a point-in-time view of the arbiter.
type Snapshot struct {
	// State is the current owner of the device.
	State State
	// Step is the last scale step written, 0 when silent.
	Step int
	// FrequencyHz is the last frequency written, 0 when silent.
	FrequencyHz float64
	// Duty is the last duty cycle written, 0 when silent.
	Duty float64
	// CommandID identifies the running command task, 0 when none.
	CommandID uint64
	// CommandKind is the variant of the running command.
	CommandKind Kind
	// SuppressUntil is the ambient suppression deadline.
	SuppressUntil time.Time
	// Suppressed reports whether the deadline is still in the future.
	Suppressed bool
	// Tick is the ambient scheduling period.
	Tick time.Duration
}

// SensorSample is one sensor reading with its normalized projection.
type SensorSample struct {
	// Raw is the reading as reported by the source.
	Raw int
	// Normalized is Raw clamped into the calibrated range and mapped onto [0, 1].
	Normalized float64
}

// Health describes the instrument for status probes.
type Health struct {
	// Status is "ok" while the instrument serves requests.
	Status string
	// DeviceID identifies the host.
	DeviceID string
	// API is the version of the command API.
	API string
	// Build is the server release.
	Build string
}
