package ingest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/light-orchestra/internal/domain/tone"
)

// mustStruct builds a payload or fails the test.
func mustStruct(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()

	payload, err := structpb.NewStruct(fields)
	require.NoError(t, err)

	return payload
}

// ptr returns a pointer to v.
func ptr[T any](v T) *T {
	return &v
}

// requireField asserts err is a ValidationError for field.
func requireField(t *testing.T, err error, field string) {
	t.Helper()

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, field, validationErr.Field)
	require.ErrorIs(t, err, ErrInvalidRequest)
}

// TestPlayNote covers the legacy seconds based payload.
func TestPlayNote(t *testing.T) {
	t.Parallel()

	d := NewDecoder(Options{})

	note, err := d.PlayNote(mustStruct(t, map[string]any{"frequency": 440, "duration": 1.5}))
	require.NoError(t, err)
	require.Equal(t, tone.Note{FrequencyHz: 440, Duration: 1500 * time.Millisecond, Duty: DefaultDuty}, note)

	note, err = d.PlayNote(mustStruct(t, map[string]any{"frequency": "261.6", "duration": "0"}))
	require.NoError(t, err)
	require.InDelta(t, 261.6, note.FrequencyHz, 1e-9)
	require.Zero(t, note.Duration)
}

// TestPlayNote_Invalid checks every rejection path reports the field and wraps ErrInvalidRequest.
func TestPlayNote_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		fields map[string]any
		field  string
	}{
		{name: "missing frequency", fields: map[string]any{"duration": 1}, field: FieldFrequency},
		{name: "zero frequency", fields: map[string]any{"frequency": 0, "duration": 1}, field: FieldFrequency},
		{name: "negative frequency", fields: map[string]any{"frequency": -10, "duration": 1}, field: FieldFrequency},
		{name: "text frequency", fields: map[string]any{"frequency": "loud", "duration": 1}, field: FieldFrequency},
		{name: "bool frequency", fields: map[string]any{"frequency": true, "duration": 1}, field: FieldFrequency},
		{name: "missing duration", fields: map[string]any{"frequency": 440}, field: FieldDuration},
		{name: "negative duration", fields: map[string]any{"frequency": 440, "duration": -1}, field: FieldDuration},
	}

	d := NewDecoder(Options{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := d.PlayNote(mustStruct(t, tt.fields))
			require.ErrorIs(t, err, ErrInvalidRequest)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			require.Equal(t, tt.field, validationErr.Field)
		})
	}
}

// TestNumber_NotFinite verifies NaN and infinities are refused.
func TestNumber_NotFinite(t *testing.T) {
	t.Parallel()

	for _, value := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		fields := map[string]*structpb.Value{FieldFreq: structpb.NewNumberValue(value)}

		_, err := number(fields, FieldFreq)
		require.ErrorIs(t, err, ErrInvalidRequest)
	}

	_, err := number(map[string]*structpb.Value{FieldFreq: structpb.NewStringValue("NaN")}, FieldFreq)
	require.ErrorIs(t, err, ErrInvalidRequest)
}

// TestTone covers duty defaults and clamping.
func TestTone(t *testing.T) {
	t.Parallel()

	d := NewDecoder(Options{DefaultDuty: ptr(0.3)})

	note, err := d.Tone(mustStruct(t, map[string]any{"freq": 523.25, "ms": 250}))
	require.NoError(t, err)
	require.Equal(t, tone.Note{FrequencyHz: 523.25, Duration: 250 * time.Millisecond, Duty: 0.3}, note)

	note, err = d.Tone(mustStruct(t, map[string]any{"freq": 440, "ms": 100, "duty": 1.7}))
	require.NoError(t, err)
	require.InDelta(t, 1.0, note.Duty, 1e-9)

	note, err = d.Tone(mustStruct(t, map[string]any{"freq": 440, "ms": 100, "duty": -0.2}))
	require.NoError(t, err)
	require.Zero(t, note.Duty)

	_, err = d.Tone(mustStruct(t, map[string]any{"freq": 440, "ms": 100, "duty": "half"}))
	require.ErrorIs(t, err, ErrInvalidRequest)
}

// TestTone_MaxDuration verifies the duration cap.
func TestTone_MaxDuration(t *testing.T) {
	t.Parallel()

	d := NewDecoder(Options{MaxDuration: time.Second})

	_, err := d.Tone(mustStruct(t, map[string]any{"freq": 440, "ms": 1000}))
	require.NoError(t, err)

	_, err = d.Tone(mustStruct(t, map[string]any{"freq": 440, "ms": 1001}))
	require.ErrorIs(t, err, ErrInvalidRequest)
}

// TestDurations_Overflow verifies durations too large for time.Duration are
// rejected instead of wrapping past the cap.
func TestDurations_Overflow(t *testing.T) {
	t.Parallel()

	huge := make([]any, 20)
	for i := range huge {
		huge[i] = map[string]any{"freq": 440, "ms": 9e11}
	}

	for _, d := range []*Decoder{NewDecoder(Options{MaxDuration: DefaultMaxDuration}), NewDecoder(Options{})} {
		_, err := d.PlayNote(mustStruct(t, map[string]any{"frequency": 440, "duration": 1e300}))
		requireField(t, err, FieldDuration)

		_, err = d.Tone(mustStruct(t, map[string]any{"freq": 440, "ms": 1e13}))
		requireField(t, err, FieldMs)

		_, err = d.Tone(mustStruct(t, map[string]any{"freq": 440, "ms": 1e300}))
		requireField(t, err, FieldMs)

		_, err = d.Melody(mustStruct(t, map[string]any{"notes": huge}))
		require.ErrorIs(t, err, ErrInvalidRequest)

		short := map[string]any{"freq": 440, "ms": 1}

		_, err = d.Melody(mustStruct(t, map[string]any{
			"notes":  []any{short, short, short},
			"gap_ms": 5e12,
		}))
		require.ErrorIs(t, err, ErrInvalidRequest)
	}

	// Each note fits a Duration; only their sum overflows.
	_, err := NewDecoder(Options{}).Melody(mustStruct(t, map[string]any{"notes": huge}))
	requireField(t, err, FieldNotes)

	_, err = NewDecoder(Options{MaxDuration: DefaultMaxDuration}).Melody(mustStruct(t, map[string]any{"notes": huge}))
	requireField(t, err, "notes[0].ms")
}

// TestMelody_CapAcrossNotes verifies the cap applies to the sum, not to each note.
func TestMelody_CapAcrossNotes(t *testing.T) {
	t.Parallel()

	d := NewDecoder(Options{MaxDuration: time.Second})

	notes := []any{
		map[string]any{"freq": 440, "ms": 600},
		map[string]any{"freq": 440, "ms": 400},
	}

	_, err := d.Melody(mustStruct(t, map[string]any{"notes": notes}))
	require.NoError(t, err)

	_, err = d.Melody(mustStruct(t, map[string]any{"notes": notes, "gap_ms": 1}))
	requireField(t, err, FieldNotes)
}

// TestNewDecoder_DefaultDuty verifies a zero default is kept and nil selects DefaultDuty.
func TestNewDecoder_DefaultDuty(t *testing.T) {
	t.Parallel()

	payload := mustStruct(t, map[string]any{"freq": 440, "ms": 10})

	note, err := NewDecoder(Options{DefaultDuty: ptr(0.0)}).Tone(payload)
	require.NoError(t, err)
	require.Zero(t, note.Duty)

	note, err = NewDecoder(Options{}).Tone(payload)
	require.NoError(t, err)
	require.InDelta(t, DefaultDuty, note.Duty, 1e-9)

	note, err = NewDecoder(Options{DefaultDuty: ptr(math.NaN())}).Tone(payload)
	require.NoError(t, err)
	require.InDelta(t, DefaultDuty, note.Duty, 1e-9)

	note, err = NewDecoder(Options{DefaultDuty: ptr(3.0)}).Tone(payload)
	require.NoError(t, err)
	require.InDelta(t, 1.0, note.Duty, 1e-9)
}

// TestMelody decodes a melody with a gap.
func TestMelody(t *testing.T) {
	t.Parallel()

	d := NewDecoder(Options{})

	seq, err := d.Melody(mustStruct(t, map[string]any{
		"notes": []any{
			map[string]any{"freq": 262, "ms": 200},
			map[string]any{"freq": 330, "ms": 200},
			map[string]any{"freq": 392, "ms": 400},
		},
		"gap_ms": 20,
	}))
	require.NoError(t, err)
	require.Len(t, seq.Notes, 3)
	require.Equal(t, tone.Pitch{FrequencyHz: 392, Duration: 400 * time.Millisecond}, seq.Notes[2])
	require.Equal(t, 20*time.Millisecond, seq.Gap)
	require.Equal(t, 840*time.Millisecond, seq.TotalDuration())

	seq, err = d.Melody(mustStruct(t, map[string]any{
		"notes": []any{map[string]any{"freq": 440, "ms": 10}},
	}))
	require.NoError(t, err)
	require.Zero(t, seq.Gap)
}

// TestMelody_Invalid checks melody rejections and nested field paths.
func TestMelody_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		fields map[string]any
		field  string
	}{
		{name: "missing notes", fields: map[string]any{}, field: FieldNotes},
		{name: "notes not a list", fields: map[string]any{"notes": "do re mi"}, field: FieldNotes},
		{name: "empty notes", fields: map[string]any{"notes": []any{}}, field: FieldNotes},
		{
			name:   "note not an object",
			fields: map[string]any{"notes": []any{440}},
			field:  "notes[0]",
		},
		{
			name: "zero frequency",
			fields: map[string]any{"notes": []any{
				map[string]any{"freq": 440, "ms": 10},
				map[string]any{"freq": 0, "ms": 10},
			}},
			field: "notes[1].freq",
		},
		{
			name:   "negative ms",
			fields: map[string]any{"notes": []any{map[string]any{"freq": 440, "ms": -5}}},
			field:  "notes[0].ms",
		},
		{
			name: "negative gap",
			fields: map[string]any{
				"notes":  []any{map[string]any{"freq": 440, "ms": 5}},
				"gap_ms": -1,
			},
			field: FieldGapMs,
		},
	}

	d := NewDecoder(Options{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := d.Melody(mustStruct(t, tt.fields))

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			require.Equal(t, tt.field, validationErr.Field)
			require.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

// TestMelody_MaxNotes verifies the melody length cap.
func TestMelody_MaxNotes(t *testing.T) {
	t.Parallel()

	d := NewDecoder(Options{MaxNotes: 2})

	notes := []any{
		map[string]any{"freq": 440, "ms": 5},
		map[string]any{"freq": 440, "ms": 5},
		map[string]any{"freq": 440, "ms": 5},
	}

	_, err := d.Melody(mustStruct(t, map[string]any{"notes": notes}))
	require.ErrorIs(t, err, ErrInvalidRequest)
}

// TestValidationError_Message checks the rendered error text.
func TestValidationError_Message(t *testing.T) {
	t.Parallel()

	require.Equal(t, "freq: must be finite", (&ValidationError{Field: "freq", Reason: "must be finite"}).Error())
	require.Equal(t, "body is empty", (&ValidationError{Reason: "body is empty"}).Error())
}
