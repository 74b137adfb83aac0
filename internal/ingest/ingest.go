package ingest

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/light-orchestra/internal/domain/tone"
)

const (
	// DefaultDuty is used when a payload does not carry one.
	DefaultDuty = 0.5
	// DefaultMaxDuration caps the total duration of a single command.
	DefaultMaxDuration = 2 * time.Minute
	// DefaultMaxNotes caps the length of a melody.
	DefaultMaxNotes = 256
)

// Payload field names, shared with the response encoders.
const (
	FieldFrequency = "frequency"
	FieldDuration  = "duration"
	FieldFreq      = "freq"
	FieldMs        = "ms"
	FieldDuty      = "duty"
	FieldNotes     = "notes"
	FieldGapMs     = "gap_ms"
)

// ErrInvalidRequest is wrapped by every ValidationError.
var ErrInvalidRequest = errors.New("invalid request")

// ValidationError describes why a payload was rejected.
type ValidationError struct {
	// Field is the offending field path, e.g. "notes[2].freq".
	Field string
	// Reason is a short human readable explanation.
	Reason string
}

// Error implements error.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}

	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap lets callers match ErrInvalidRequest with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

// invalid builds a ValidationError.
func invalid(field, reason string) error {
	return &ValidationError{
		Field:  field,
		Reason: reason,
	}
}

// Options tunes validation.
type Options struct {
	// DefaultDuty is applied to PlayNote and to Tone payloads without a duty.
	// Nil selects DefaultDuty; zero is a valid, silent default.
	DefaultDuty *float64
	// MaxDuration rejects commands lasting longer; zero disables the cap.
	MaxDuration time.Duration
	// MaxNotes rejects longer melodies; zero disables the cap.
	MaxNotes int
}

// Decoder validates payloads into commands.
type Decoder struct {
	// opts are fixed after NewDecoder.
	opts Options
	// duty is the resolved default duty cycle.
	duty float64
	// limit is the longest accepted command, MaxDuration or the Duration range.
	limit time.Duration
}

// NewDecoder returns a decoder using opts. A nil or NaN default duty selects
// DefaultDuty; other values are clamped into [0, 1].
func NewDecoder(opts Options) *Decoder {
	duty := DefaultDuty
	if opts.DefaultDuty != nil && !math.IsNaN(*opts.DefaultDuty) {
		duty = min(max(*opts.DefaultDuty, 0), 1)
	}

	limit := time.Duration(math.MaxInt64)
	if opts.MaxDuration > 0 {
		limit = opts.MaxDuration
	}

	return &Decoder{
		opts:  opts,
		duty:  duty,
		limit: limit,
	}
}

// PlayNote decodes {"frequency": hz, "duration": seconds} into a Note with the default duty.
func (d *Decoder) PlayNote(payload *structpb.Struct) (tone.Note, error) {
	fields := payload.GetFields()

	freq, err := frequency(fields, FieldFrequency)
	if err != nil {
		return tone.Note{}, err
	}

	duration, err := d.duration(fields, FieldDuration, time.Second)
	if err != nil {
		return tone.Note{}, err
	}

	return tone.Note{
		FrequencyHz: freq,
		Duration:    duration,
		Duty:        d.duty,
	}, nil
}

// Tone decodes {"freq": hz, "ms": int, "duty": 0..1} into a Note. The duty is
// optional and clamped into [0, 1].
func (d *Decoder) Tone(payload *structpb.Struct) (tone.Note, error) {
	fields := payload.GetFields()

	freq, err := frequency(fields, FieldFreq)
	if err != nil {
		return tone.Note{}, err
	}

	duration, err := d.duration(fields, FieldMs, time.Millisecond)
	if err != nil {
		return tone.Note{}, err
	}

	duty := d.duty

	if _, ok := fields[FieldDuty]; ok {
		duty, err = number(fields, FieldDuty)
		if err != nil {
			return tone.Note{}, err
		}

		duty = min(max(duty, 0), 1)
	}

	return tone.Note{
		FrequencyHz: freq,
		Duration:    duration,
		Duty:        duty,
	}, nil
}

// Melody decodes {"notes": [{"freq": hz, "ms": int}, ...], "gap_ms": int} into a Sequence.
func (d *Decoder) Melody(payload *structpb.Struct) (tone.Sequence, error) {
	fields := payload.GetFields()

	value, ok := fields[FieldNotes]
	if !ok {
		return tone.Sequence{}, invalid(FieldNotes, "is required")
	}

	list := value.GetListValue()
	if list == nil {
		return tone.Sequence{}, invalid(FieldNotes, "must be a list")
	}

	items := list.GetValues()
	if len(items) == 0 {
		return tone.Sequence{}, invalid(FieldNotes, "must not be empty")
	}

	if d.opts.MaxNotes > 0 && len(items) > d.opts.MaxNotes {
		return tone.Sequence{}, invalid(FieldNotes, fmt.Sprintf("at most %d notes are allowed", d.opts.MaxNotes))
	}

	var gap time.Duration

	if _, ok = fields[FieldGapMs]; ok {
		var err error

		gap, err = d.duration(fields, FieldGapMs, time.Millisecond)
		if err != nil {
			return tone.Sequence{}, err
		}
	}

	seq := tone.Sequence{
		Notes: make([]tone.Pitch, 0, len(items)),
		Gap:   gap,
	}

	// The running total is checked after every note so it cannot overflow.
	var total time.Duration

	for i, item := range items {
		pitch, err := d.decodePitch(i, item)
		if err != nil {
			return tone.Sequence{}, err
		}

		step := pitch.Duration
		if i > 0 {
			step += gap
		}

		// Both terms are within the limit, so only the sum can overflow.
		if step < 0 || total > d.limit-step {
			return tone.Sequence{}, invalid(FieldNotes, fmt.Sprintf("total duration exceeds %s", d.limit))
		}

		total += step

		seq.Notes = append(seq.Notes, pitch)
	}

	return seq, nil
}

// decodePitch validates one melody entry.
func (d *Decoder) decodePitch(index int, item *structpb.Value) (tone.Pitch, error) {
	prefix := fmt.Sprintf("%s[%d]", FieldNotes, index)

	object := item.GetStructValue()
	if object == nil {
		return tone.Pitch{}, invalid(prefix, "must be an object")
	}

	fields := object.GetFields()

	freq, err := frequency(fields, FieldFreq)
	if err != nil {
		return tone.Pitch{}, prefixed(prefix, err)
	}

	duration, err := d.duration(fields, FieldMs, time.Millisecond)
	if err != nil {
		return tone.Pitch{}, prefixed(prefix, err)
	}

	return tone.Pitch{
		FrequencyHz: freq,
		Duration:    duration,
	}, nil
}

// duration reads a non-negative count of unit and converts it, rejecting
// values beyond the decoder limit before the conversion can overflow.
func (d *Decoder) duration(fields map[string]*structpb.Value, name string, unit time.Duration) (time.Duration, error) {
	value, err := nonNegative(fields, name)
	if err != nil {
		return 0, err
	}

	nanos := math.Round(value * float64(unit))
	if nanos >= float64(math.MaxInt64) || nanos > float64(d.limit) {
		return 0, invalid(name, fmt.Sprintf("duration exceeds %s", d.limit))
	}

	return time.Duration(nanos), nil
}

// frequency reads a required, strictly positive number.
func frequency(fields map[string]*structpb.Value, name string) (float64, error) {
	value, err := number(fields, name)
	if err != nil {
		return 0, err
	}

	if value <= 0 {
		return 0, invalid(name, "must be greater than zero")
	}

	return value, nil
}

// nonNegative reads a required number that must be >= 0.
func nonNegative(fields map[string]*structpb.Value, name string) (float64, error) {
	value, err := number(fields, name)
	if err != nil {
		return 0, err
	}

	if value < 0 {
		return 0, invalid(name, "must not be negative")
	}

	return value, nil
}

// number reads a required finite number. Numeric strings are accepted.
func number(fields map[string]*structpb.Value, name string) (float64, error) {
	value, ok := fields[name]
	if !ok || value == nil {
		return 0, invalid(name, "is required")
	}

	var result float64

	switch kind := value.GetKind().(type) {
	case *structpb.Value_NumberValue:
		result = kind.NumberValue
	case *structpb.Value_StringValue:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(kind.StringValue), 64)
		if err != nil {
			return 0, invalid(name, "must be a number")
		}

		result = parsed
	default:
		return 0, invalid(name, "must be a number")
	}

	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, invalid(name, "must be finite")
	}

	return result, nil
}

// prefixed qualifies the field of a nested validation error.
func prefixed(prefix string, err error) error {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return invalid(prefix+"."+validationErr.Field, validationErr.Reason)
	}

	return err
}
