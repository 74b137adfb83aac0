package scale

import (
	"fmt"
	"math"
)

// Step is an index into the scale, 0 being the base note.
type Step int

// Scale describes the immutable two-octave (by default) scale used for output.
type Scale struct {
	// BaseHz is the frequency of step 0.
	BaseHz float64
	// SemitonesPerOctave is the number of steps per frequency doubling.
	SemitonesPerOctave int
	// TotalSteps is the highest valid step.
	TotalSteps int
}

const (
	// DefaultBaseHz is C4.
	DefaultBaseHz = 261.626
	// DefaultSemitonesPerOctave is the western chromatic scale.
	DefaultSemitonesPerOctave = 12
	// DefaultOctaves is the span of the default scale.
	DefaultOctaves = 2

	// referenceHz and referenceKey anchor MIDI key numbering at A4.
	referenceHz  = 440.0
	referenceKey = 69
	// maxMIDIKey is the highest MIDI key number.
	maxMIDIKey = 127
)

// noteNames lists pitch classes starting from C.
//
//nolint:gochecknoglobals // Read-only lookup table.
var noteNames = [...]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// New builds a scale spanning the given number of octaves above baseHz.
func New(baseHz float64, semitonesPerOctave, octaves int) Scale {
	return Scale{
		BaseHz:             baseHz,
		SemitonesPerOctave: semitonesPerOctave,
		TotalSteps:         max(semitonesPerOctave*octaves, 0),
	}
}

// Default returns the C4-anchored 24-step scale.
func Default() Scale {
	return New(DefaultBaseHz, DefaultSemitonesPerOctave, DefaultOctaves)
}

// Clamp forces step into [0, TotalSteps].
func (s Scale) Clamp(step Step) Step {
	switch {
	case step < 0:
		return 0
	case int(step) > s.TotalSteps:
		return Step(max(s.TotalSteps, 0))
	default:
		return step
	}
}

// FrequencyToStep snaps freq to the nearest step. Non-positive frequencies map to step 0.
func (s Scale) FrequencyToStep(freq float64) Step {
	if freq <= 0 || s.BaseHz <= 0 || s.SemitonesPerOctave <= 0 || math.IsNaN(freq) {
		return 0
	}

	semitone := math.Round(float64(s.SemitonesPerOctave) * math.Log2(freq/s.BaseHz))

	return s.clampFloat(semitone)
}

// StepToFrequency returns the exact frequency of the clamped step.
func (s Scale) StepToFrequency(step Step) float64 {
	step = s.Clamp(step)
	if s.SemitonesPerOctave <= 0 {
		return s.BaseHz
	}

	return s.BaseHz * math.Pow(2, float64(step)/float64(s.SemitonesPerOctave))
}

// Quantize snaps an arbitrary frequency to the frequency of its nearest step.
func (s Scale) Quantize(freq float64) float64 {
	return s.StepToFrequency(s.FrequencyToStep(freq))
}

// SensorToStep maps a raw reading linearly onto the scale.
// A zero-width range yields step 0.
func (s Scale) SensorToStep(raw, minRaw, maxRaw int) Step {
	if minRaw == maxRaw {
		return 0
	}

	normalized := Normalize(raw, minRaw, maxRaw)

	return s.clampFloat(math.Round(normalized * float64(s.TotalSteps)))
}

// Normalize clamps raw into the range and projects it onto [0, 1].
func Normalize(raw, minRaw, maxRaw int) float64 {
	if minRaw > maxRaw {
		minRaw, maxRaw = maxRaw, minRaw
	}

	if minRaw == maxRaw {
		return 0
	}

	clamped := min(max(raw, minRaw), maxRaw)

	return float64(clamped-minRaw) / float64(maxRaw-minRaw)
}

// MIDIKey returns the nearest MIDI key number for freq, clamped to [0, 127].
// Non-positive frequencies map to key 0.
func MIDIKey(freq float64) int {
	if freq <= 0 || math.IsNaN(freq) {
		return 0
	}

	key := math.Round(float64(DefaultSemitonesPerOctave)*math.Log2(freq/referenceHz)) + referenceKey

	return int(min(max(key, 0), maxMIDIKey))
}

// NoteName labels the nearest equal-tempered note of freq, e.g. "A4".
// It returns "-" for non-positive frequencies.
func NoteName(freq float64) string {
	if freq <= 0 || math.IsNaN(freq) {
		return "-"
	}

	key := MIDIKey(freq)

	return fmt.Sprintf("%s%d", noteNames[key%len(noteNames)], key/len(noteNames)-1)
}

// clampFloat clamps before converting so huge inputs cannot overflow int.
func (s Scale) clampFloat(value float64) Step {
	if math.IsNaN(value) || value < 0 {
		return 0
	}

	if value > float64(s.TotalSteps) {
		return Step(max(s.TotalSteps, 0))
	}

	return Step(value)
}
