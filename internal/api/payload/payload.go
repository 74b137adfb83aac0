package payload

import (
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/light-orchestra/internal/domain/scale"
	"github.com/oshokin/light-orchestra/internal/domain/tone"
)

// Response messages of the command endpoints.
const (
	MessageNoteStarted   = "Note playing started."
	MessageSoundsStopped = "All sounds stopped."
	StatusOK             = "ok"
)

// luxPerUnit converts a normalized reading into a rough lux estimate.
const luxPerUnit = 200

// NoteAccepted answers PlayNote.
func NoteAccepted(commandID uint64) *structpb.Struct {
	return build(map[string]*structpb.Value{
		"status":     structpb.NewStringValue(StatusOK),
		"message":    structpb.NewStringValue(MessageNoteStarted),
		"command_id": number(float64(commandID)),
	})
}

// ToneAccepted answers Tone.
func ToneAccepted(commandID uint64, note tone.Note) *structpb.Struct {
	return build(map[string]*structpb.Value{
		"playing":           structpb.NewBoolValue(true),
		"until_ms_from_now": number(float64(note.Duration.Milliseconds())),
		"command_id":        number(float64(commandID)),
	})
}

// MelodyAccepted answers Melody.
func MelodyAccepted(commandID uint64, seq tone.Sequence) *structpb.Struct {
	return build(map[string]*structpb.Value{
		"queued":     number(float64(len(seq.Notes))),
		"command_id": number(float64(commandID)),
	})
}

// Stopped answers Stop.
func Stopped() *structpb.Struct {
	return build(map[string]*structpb.Value{
		"status":  structpb.NewStringValue(StatusOK),
		"message": structpb.NewStringValue(MessageSoundsStopped),
	})
}

// Health renders a health probe.
func Health(h tone.Health) *structpb.Struct {
	return build(map[string]*structpb.Value{
		"status":    structpb.NewStringValue(h.Status),
		"device_id": structpb.NewStringValue(h.DeviceID),
		"api":       structpb.NewStringValue(h.API),
		"build":     structpb.NewStringValue(h.Build),
	})
}

// Sensor renders a sensor sample: norm rounded to 2 decimals, lux_est to 1.
func Sensor(s tone.SensorSample) *structpb.Struct {
	return build(map[string]*structpb.Value{
		"raw":     number(float64(s.Raw)),
		"norm":    number(round(s.Normalized, 2)),
		"lux_est": number(round(s.Normalized*luxPerUnit, 1)),
	})
}

// Status renders an arbiter snapshot.
func Status(s tone.Snapshot) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"state":        structpb.NewStringValue(s.State.String()),
		"step":         number(float64(s.Step)),
		"frequency_hz": number(round(s.FrequencyHz, 3)),
		"note":         structpb.NewStringValue(scale.NoteName(s.FrequencyHz)),
		"duty":         number(round(s.Duty, 3)),
		"command_id":   number(float64(s.CommandID)),
		"command_kind": structpb.NewStringValue(s.CommandKind.String()),
		"suppressed":   structpb.NewBoolValue(s.Suppressed),
		"tick_ms":      number(float64(s.Tick.Milliseconds())),
	}

	if !s.SuppressUntil.IsZero() {
		fields["suppress_until"] = structpb.NewStringValue(s.SuppressUntil.UTC().Format(time.RFC3339Nano))
	}

	return build(fields)
}

// Error renders {"error": message}.
func Error(message string) *structpb.Struct {
	return build(map[string]*structpb.Value{
		"error": structpb.NewStringValue(message),
	})
}

func build(fields map[string]*structpb.Value) *structpb.Struct {
	return &structpb.Struct{Fields: fields}
}

func number(v float64) *structpb.Value {
	return structpb.NewNumberValue(v)
}

// round rounds half away from zero to the given number of decimals.
func round(v float64, decimals int) float64 {
	p := math.Pow10(decimals)

	return math.Round(v*p) / p
}
