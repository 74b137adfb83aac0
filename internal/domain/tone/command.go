package tone

import (
	"math"
	"time"
)

// Kind identifies the variant of a Command.
type Kind int

const (
	// KindNone is the zero Kind, used when no command is active.
	KindNone Kind = iota
	// KindNote is a single note.
	KindNote
	// KindSequence is an ordered list of notes.
	KindSequence
	// KindStop silences everything.
	KindStop
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNote:
		return "note"
	case KindSequence:
		return "sequence"
	case KindStop:
		return "stop"
	default:
		return "none"
	}
}

// Command is a validated request for the output device.
// It is produced by ingestion and consumed exactly once by the arbiter.
type Command interface {
	// Kind reports the command variant.
	Kind() Kind
	// TotalDuration is how long the command keeps the device busy.
	TotalDuration() time.Duration
}

// Pitch is one note of a sequence.
type Pitch struct {
	// FrequencyHz is the requested frequency; non-positive values are rests.
	FrequencyHz float64
	// Duration is how long the pitch sounds.
	Duration time.Duration
}

// Note plays a single pitch with an explicit duty cycle.
type Note struct {
	// FrequencyHz is the requested frequency.
	FrequencyHz float64
	// Duration is how long the note sounds.
	Duration time.Duration
	// Duty is the square-wave duty cycle in [0, 1].
	Duty float64
}

// Kind implements Command.
func (Note) Kind() Kind { return KindNote }

// TotalDuration implements Command.
func (n Note) TotalDuration() time.Duration { return max(n.Duration, 0) }

// Sequence plays its notes in order with a silent gap between them.
// The duty cycle is fixed by the arbiter configuration.
type Sequence struct {
	// Notes are played strictly in order.
	Notes []Pitch
	// Gap is the silence between consecutive notes.
	Gap time.Duration
}

// Kind implements Command.
func (Sequence) Kind() Kind { return KindSequence }

// TotalDuration implements Command. The gap is not counted after the last
// note. The sum saturates at the largest Duration instead of wrapping.
func (s Sequence) TotalDuration() time.Duration {
	var total time.Duration

	for i, note := range s.Notes {
		if i > 0 {
			total = saturatingAdd(total, max(s.Gap, 0))
		}

		total = saturatingAdd(total, max(note.Duration, 0))
	}

	return total
}

// saturatingAdd adds two non-negative durations, capping at math.MaxInt64.
func saturatingAdd(a, b time.Duration) time.Duration {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}

	return a + b
}

// Stop cancels any running command and silences the device.
type Stop struct{}

// Kind implements Command.
func (Stop) Kind() Kind { return KindStop }

// TotalDuration implements Command.
func (Stop) TotalDuration() time.Duration { return 0 }
