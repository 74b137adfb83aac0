package device

import (
	"context"
	"io"
	"sync"

	"github.com/oshokin/light-orchestra/internal/logger"
)

// Driver is a single-voice square-wave tone generator.
//
// Implementations are not required to be safe for concurrent use: the arbiter
// serializes every call.
type Driver interface {
	// SetFrequency retunes the generator.
	SetFrequency(hz float64) error
	// SetDutyCycle sets the high fraction of the wave in [0, 1] and starts output.
	SetDutyCycle(fraction float64) error
	// Silence stops output. It must be idempotent.
	Silence() error
}

// Device is a Driver owning resources that must be released.
type Device interface {
	Driver
	io.Closer
}

// LogDriver writes every device call to the logger. Used on hosts without a buzzer.
type LogDriver struct {
	// ctx carries the scoped logger.
	ctx context.Context //nolint:containedctx // Only used for logging.
	// hz is the last frequency set.
	hz float64
}

// NewLogDriver returns a driver logging through the logger stored in ctx.
func NewLogDriver(ctx context.Context) *LogDriver {
	return &LogDriver{
		ctx: logger.WithName(ctx, "device"),
	}
}

// SetFrequency implements Driver.
func (d *LogDriver) SetFrequency(hz float64) error {
	d.hz = hz

	logger.DebugKV(d.ctx, "Frequency set", "hz", hz)

	return nil
}

// SetDutyCycle implements Driver.
func (d *LogDriver) SetDutyCycle(fraction float64) error {
	logger.DebugKV(d.ctx, "Duty cycle set", "hz", d.hz, "duty", fraction)

	return nil
}

// Silence implements Driver.
func (d *LogDriver) Silence() error {
	logger.Debug(d.ctx, "Silenced")

	return nil
}

// Close implements io.Closer.
func (d *LogDriver) Close() error {
	return nil
}

// Op is the kind of a recorded device call.
type Op int

const (
	// OpFrequency is a SetFrequency call.
	OpFrequency Op = iota + 1
	// OpDuty is a SetDutyCycle call.
	OpDuty
	// OpSilence is a Silence call.
	OpSilence
)

// Event is one recorded device call.
type Event struct {
	// Op is the call kind.
	Op Op
	// Value is the frequency or duty argument; zero for Silence.
	Value float64
}

// Recorder is a Driver that keeps every call. It is safe for concurrent use.
type Recorder struct {
	// events is the ordered call log.
	events []Event
	// fail, when set, is returned by SetFrequency.
	fail error
	// mu protects the fields above.
	mu sync.Mutex
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return new(Recorder)
}

// FailFrequency makes every following SetFrequency call return err (nil resets).
func (r *Recorder) FailFrequency(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fail = err
}

// SetFrequency implements Driver.
func (r *Recorder) SetFrequency(hz float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fail != nil {
		return r.fail
	}

	r.events = append(r.events, Event{Op: OpFrequency, Value: hz})

	return nil
}

// SetDutyCycle implements Driver.
func (r *Recorder) SetDutyCycle(fraction float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, Event{Op: OpDuty, Value: fraction})

	return nil
}

// Silence implements Driver.
func (r *Recorder) Silence() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, Event{Op: OpSilence})

	return nil
}

// Close implements io.Closer.
func (r *Recorder) Close() error {
	return nil
}

// Len returns the number of recorded calls.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.events)
}

// Events returns a copy of the calls recorded at or after index from.
func (r *Recorder) Events(from int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if from >= len(r.events) {
		return nil
	}

	return append([]Event(nil), r.events[max(from, 0):]...)
}

// Frequencies returns the SetFrequency arguments recorded at or after index from.
func (r *Recorder) Frequencies(from int) []float64 {
	var result []float64

	for _, event := range r.Events(from) {
		if event.Op == OpFrequency {
			result = append(result, event.Value)
		}
	}

	return result
}

// Last returns the most recent call and false if nothing was recorded.
func (r *Recorder) Last() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.events) == 0 {
		return Event{}, false
	}

	return r.events[len(r.events)-1], true
}
