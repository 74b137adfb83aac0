package arbiter

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/oshokin/light-orchestra/internal/device"
	"github.com/oshokin/light-orchestra/internal/domain/scale"
	"github.com/oshokin/light-orchestra/internal/domain/tone"
	"github.com/oshokin/light-orchestra/internal/logger"
	"github.com/oshokin/light-orchestra/internal/sensor"
)

const (
	// DefaultTick is the ambient scheduling period.
	DefaultTick = 50 * time.Millisecond
	// DefaultSuppressMargin keeps ambient muted after a command's nominal end.
	DefaultSuppressMargin = 800 * time.Millisecond
	// DefaultDuty is a symmetric square wave.
	DefaultDuty = 0.5
)

// Options tunes the arbiter.
type Options struct {
	// Scale is used to quantize sensor readings and command frequencies.
	Scale scale.Scale
	// Tick is the ambient scheduling period.
	Tick time.Duration
	// SuppressMargin is added to every command's duration when extending suppression.
	SuppressMargin time.Duration
	// AmbientDuty is the duty cycle of ambient output.
	AmbientDuty float64
	// SequenceDuty is the duty cycle of every sequence note.
	SequenceDuty float64
	// QuantizeCommands snaps command frequencies to the scale.
	QuantizeCommands bool
	// MinRaw is the sensor reading mapped to step 0.
	MinRaw int
	// MaxRaw is the sensor reading mapped to the top step.
	MaxRaw int
}

// DefaultOptions returns the options of the reference instrument.
func DefaultOptions() Options {
	return Options{
		Scale:            scale.Default(),
		Tick:             DefaultTick,
		SuppressMargin:   DefaultSuppressMargin,
		AmbientDuty:      DefaultDuty,
		SequenceDuty:     DefaultDuty,
		QuantizeCommands: true,
		MinRaw:           24000,
		MaxRaw:           60000,
	}
}

// output is what was last written to the device.
type output struct {
	// step is the scale step of hz.
	step scale.Step
	// hz is the frequency written.
	hz float64
	// duty is the duty cycle written.
	duty float64
	// active is false after Silence.
	active bool
}

// Arbiter is the single owner of the output device.
type Arbiter struct {
	// opts are immutable after New.
	opts Options
	// device is written only while mu is held.
	device device.Driver
	// sensor feeds the ambient path.
	sensor sensor.Source

	// submitMu serializes command arrivals so cancel-before-start holds across them.
	submitMu sync.Mutex
	// closed is set by Shutdown under submitMu; later commands are dropped.
	closed bool
	// mu guards the fields below and every device write.
	mu sync.Mutex
	// state is the current owner of the device.
	state tone.State
	// suppression mutes the ambient path after commands.
	suppression Suppression
	// task is the running command task, nil when none.
	task *task
	// lastID is the identifier of the most recent command task.
	lastID uint64
	// out mirrors the device for snapshots.
	out output
}

// New creates an idle arbiter. Zero option values fall back to defaults.
func New(driver device.Driver, source sensor.Source, opts Options) *Arbiter {
	defaults := DefaultOptions()

	if opts.Tick <= 0 {
		opts.Tick = defaults.Tick
	}

	if opts.SuppressMargin < 0 {
		opts.SuppressMargin = 0
	}

	if opts.Scale.BaseHz <= 0 {
		opts.Scale = defaults.Scale
	}

	opts.AmbientDuty = clampDuty(opts.AmbientDuty)
	opts.SequenceDuty = clampDuty(opts.SequenceDuty)

	return &Arbiter{
		opts:   opts,
		device: driver,
		sensor: source,
		state:  tone.StateIdle,
	}
}

// Run evaluates the ambient path every tick until ctx is done, then cancels any
// running command and silences the device.
func (a *Arbiter) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "arbiter")

	ticker := time.NewTicker(a.opts.Tick)
	defer ticker.Stop()

	logger.InfoKV(ctx, "Arbiter started", "tick", a.opts.Tick.String(), "suppress_margin", a.opts.SuppressMargin.String())

	a.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			a.Shutdown(context.WithoutCancel(ctx))
			logger.Info(ctx, "Arbiter stopped")

			return nil
		case <-ticker.C:
			a.Tick(ctx)
		}
	}
}

// Tick performs one ambient evaluation.
func (a *Arbiter) Tick(ctx context.Context) {
	a.mu.Lock()

	if a.yieldLocked(ctx) {
		a.mu.Unlock()
		return
	}

	a.mu.Unlock()

	// The sensor may block; read it without holding the lock and re-check after.
	raw, err := a.sensor.ReadRaw(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.yieldLocked(ctx) {
		return
	}

	if err != nil {
		logger.WarnKV(ctx, "Sensor read failed", "error", err)
		a.idleLocked(ctx)

		return
	}

	step := a.opts.Scale.SensorToStep(raw, a.opts.MinRaw, a.opts.MaxRaw)
	if step == 0 {
		a.idleLocked(ctx)
		return
	}

	if err = a.driveLocked(step, a.opts.Scale.StepToFrequency(step), a.opts.AmbientDuty); err != nil {
		logger.ErrorKV(ctx, "Ambient output failed", "step", int(step), "error", err)
		a.idleLocked(ctx)

		return
	}

	if a.state != tone.StateAmbientActive {
		logger.DebugKV(ctx, "Ambient output started", "raw", raw, "step", int(step))
	}

	a.state = tone.StateAmbientActive
}

// yieldLocked handles the tick cases that must not touch the sensor: a running
// command owns the device, or suppression forces silence. It reports whether
// the tick is finished.
func (a *Arbiter) yieldLocked(ctx context.Context) bool {
	if a.task != nil {
		return true
	}

	if a.suppression.IsActive(time.Now()) {
		a.idleLocked(ctx)
		return true
	}

	return false
}

// Submit hands a validated command to the arbiter and returns the identifier of
// the started command task (0 for Stop, and for anything after Shutdown). A Note
// or Sequence preempts whatever is running: the previous task is cancelled and
// awaited before the new one starts.
func (a *Arbiter) Submit(ctx context.Context, cmd tone.Command) uint64 {
	a.submitMu.Lock()
	defer a.submitMu.Unlock()

	if a.closed {
		logger.WarnKV(ctx, "Arbiter is shut down, dropping command", "command", cmd)
		return 0
	}

	switch c := cmd.(type) {
	case tone.Stop:
		a.stop(ctx)
		return 0
	case tone.Note:
		notes := []tone.Pitch{{FrequencyHz: c.FrequencyHz, Duration: c.Duration}}
		return a.start(ctx, c, notes, 0, clampDuty(c.Duty))
	case tone.Sequence:
		return a.start(ctx, c, c.Notes, c.Gap, a.opts.SequenceDuty)
	default:
		logger.WarnKV(ctx, "Ignoring unknown command", "command", cmd)
		return 0
	}
}

// Shutdown cancels any running command, silences the device and drops every
// later command, so the device can be closed once Shutdown returns.
func (a *Arbiter) Shutdown(ctx context.Context) {
	a.submitMu.Lock()
	defer a.submitMu.Unlock()

	a.closed = true
	a.stop(ctx)
}

// Snapshot returns the current arbiter view.
func (a *Arbiter) Snapshot() tone.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snapshot := tone.Snapshot{
		State:         a.state,
		SuppressUntil: a.suppression.Until(),
		Suppressed:    a.suppression.IsActive(time.Now()),
		Tick:          a.opts.Tick,
	}

	if a.out.active {
		snapshot.Step = int(a.out.step)
		snapshot.FrequencyHz = a.out.hz
		snapshot.Duty = a.out.duty
	}

	if a.task != nil {
		snapshot.CommandID = a.task.id
		snapshot.CommandKind = a.task.kind
	}

	return snapshot
}

// stop cancels the running task, clears suppression and silences. submitMu must be held.
func (a *Arbiter) stop(ctx context.Context) {
	a.mu.Lock()
	a.suppression.Clear()
	previous := a.task
	a.mu.Unlock()

	previous.cancelAndWait()

	a.mu.Lock()
	defer a.mu.Unlock()

	a.task = nil
	a.idleLocked(ctx)

	logger.Info(ctx, "All sounds stopped")
}

// start preempts the running task and spawns a new one. submitMu must be held.
func (a *Arbiter) start(ctx context.Context, cmd tone.Command, notes []tone.Pitch, gap time.Duration, duty float64) uint64 {
	a.mu.Lock()
	// Extend first: the ambient path must stay muted across the hand-off.
	a.suppression.Extend(time.Now(), cmd.TotalDuration()+a.opts.SuppressMargin)
	previous := a.task
	a.mu.Unlock()

	if previous != nil {
		logger.InfoKV(ctx, "Preempting command", "command_id", previous.id)
		previous.cancelAndWait()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.silenceLocked(ctx)

	a.lastID++
	t := newTask(ctx, a.lastID, cmd.Kind())
	a.task = t
	a.state = tone.StateCommandActive

	logger.InfoKV(
		ctx,
		"Command accepted",
		"command_id", t.id,
		"kind", t.kind.String(),
		"notes", len(notes),
		"duration", cmd.TotalDuration().String(),
		"suppress_until", a.suppression.Until().Format(time.RFC3339Nano),
	)

	go a.play(t, notes, gap, duty)

	return t.id
}

// driveLocked writes a frequency and duty, skipping identical rewrites.
func (a *Arbiter) driveLocked(step scale.Step, hz, duty float64) error {
	if a.out.active && a.out.hz == hz && a.out.duty == duty {
		return nil
	}

	if err := a.device.SetFrequency(hz); err != nil {
		return err
	}

	if err := a.device.SetDutyCycle(duty); err != nil {
		return err
	}

	a.out = output{
		step:   step,
		hz:     hz,
		duty:   duty,
		active: true,
	}

	return nil
}

// silenceLocked silences the device. Errors are logged: there is nothing
// quieter to fall back to.
func (a *Arbiter) silenceLocked(ctx context.Context) {
	if err := a.device.Silence(); err != nil {
		logger.ErrorKV(ctx, "Silence failed", "error", err)
	}

	a.out = output{}
}

// idleLocked silences the device and marks the arbiter idle.
func (a *Arbiter) idleLocked(ctx context.Context) {
	a.silenceLocked(ctx)
	a.state = tone.StateIdle
}

// clampDuty forces a duty cycle into [0, 1].
func clampDuty(duty float64) float64 {
	if math.IsNaN(duty) {
		return DefaultDuty
	}

	return min(max(duty, 0), 1)
}
