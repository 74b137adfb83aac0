package arbiter

import (
	"context"
	"time"

	"github.com/oshokin/light-orchestra/internal/domain/tone"
	"github.com/oshokin/light-orchestra/internal/logger"
)

// task is one running Note or Sequence. Its handle is only used to cancel it.
type task struct {
	// id identifies the task in logs and snapshots.
	id uint64
	// kind is the command variant being played.
	kind tone.Kind
	// ctx is cancelled to request the task to stop.
	ctx context.Context //nolint:containedctx // The task owns its cancellation signal.
	// cancel requests cancellation.
	cancel context.CancelFunc
	// done is closed after the task has silenced the device and exited.
	done chan struct{}
}

// newTask creates a task detached from the request lifetime but keeping its logger.
func newTask(parent context.Context, id uint64, kind tone.Kind) *task {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))

	return &task{
		id:     id,
		kind:   kind,
		ctx:    logger.WithKV(ctx, "command_id", id),
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// cancelAndWait requests cancellation and blocks until the task has stopped
// driving the device. A nil task is a no-op.
func (t *task) cancelAndWait() {
	if t == nil {
		return
	}

	t.cancel()
	<-t.done
}

// play drives the device through notes, honoring cancellation at every
// suspension point. It always leaves the device silent.
func (a *Arbiter) play(t *task, notes []tone.Pitch, gap time.Duration, duty float64) {
	defer close(t.done)
	defer t.cancel()
	defer a.finish(t)

	for i, note := range notes {
		if !a.sound(t, note.FrequencyHz, duty) {
			return
		}

		if !sleep(t.ctx, note.Duration) {
			logger.InfoKV(t.ctx, "Command cancelled", "played", i)
			return
		}

		if i == len(notes)-1 || gap <= 0 {
			continue
		}

		if !a.rest(t) || !sleep(t.ctx, gap) {
			logger.InfoKV(t.ctx, "Command cancelled", "played", i+1)
			return
		}
	}

	logger.InfoKV(t.ctx, "Command finished", "played", len(notes))
}

// sound writes one note unless the task was cancelled. Non-positive
// frequencies are rests. It reports whether playback may continue.
func (a *Arbiter) sound(t *task, hz, duty float64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if t.ctx.Err() != nil {
		return false
	}

	if hz <= 0 {
		a.silenceLocked(t.ctx)
		return true
	}

	step := a.opts.Scale.FrequencyToStep(hz)
	if a.opts.QuantizeCommands {
		hz = a.opts.Scale.StepToFrequency(step)
	}

	if err := a.driveLocked(step, hz, duty); err != nil {
		logger.ErrorKV(t.ctx, "Command output failed, aborting", "hz", hz, "error", err)
		return false
	}

	logger.DebugKV(t.ctx, "Note started", "hz", hz, "step", int(step), "duty", duty)

	return true
}

// rest silences the device between sequence notes unless the task was cancelled.
func (a *Arbiter) rest(t *task) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if t.ctx.Err() != nil {
		return false
	}

	a.silenceLocked(t.ctx)

	return true
}

// finish silences the device and, if t still owns it, hands it back to idle.
func (a *Arbiter) finish(t *task) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.silenceLocked(t.ctx)

	if a.task == t {
		a.task = nil
		a.state = tone.StateIdle
	}
}

// sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
