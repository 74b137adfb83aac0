package midiout

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"gitlab.com/gomidi/midi/v2"

	"github.com/oshokin/light-orchestra/internal/domain/scale"
)

// maxVelocity is the loudest MIDI velocity.
const maxVelocity = 127

// ErrPortNotFound is returned when no output port matches the requested name.
var ErrPortNotFound = errors.New("midi output port not found")

// SendFunc transmits one MIDI message.
type SendFunc func(msg midi.Message) error

// Out is a device.Device driving a MIDI synthesizer.
type Out struct {
	// send writes to the port.
	send SendFunc
	// port is closed on Close; nil for injected senders.
	port io.Closer
	// channel is the MIDI channel, 0..15.
	channel uint8

	// key is the key to sound on the next NoteOn.
	key uint8
	// velocity is derived from the duty cycle.
	velocity uint8
	// sounding is the key currently held, -1 when none.
	sounding int
}

// Open connects to the first output port whose name contains portName
// (case-insensitive). An empty name selects the first port.
func Open(portName string, channel int) (*Out, error) {
	want := strings.ToLower(strings.TrimSpace(portName))

	for _, port := range midi.GetOutPorts() {
		if want != "" && !strings.Contains(strings.ToLower(port.String()), want) {
			continue
		}

		send, err := midi.SendTo(port)
		if err != nil {
			return nil, fmt.Errorf("failed to open midi port %q: %w", port.String(), err)
		}

		out := New(send, channel)
		out.port = port

		return out, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrPortNotFound, portName)
}

// New wraps a sender. Channels outside 0..15 are clamped.
func New(send SendFunc, channel int) *Out {
	return &Out{
		send:     send,
		channel:  uint8(min(max(channel, 0), 15)), //nolint:gosec // Clamped above.
		key:      uint8(scale.MIDIKey(scale.DefaultBaseHz)),
		velocity: maxVelocity,
		sounding: -1,
	}
}

// SetFrequency implements device.Driver. A sounding note is retuned.
func (o *Out) SetFrequency(hz float64) error {
	o.key = uint8(scale.MIDIKey(hz)) //nolint:gosec // MIDIKey is within 0..127.

	if o.sounding < 0 || o.sounding == int(o.key) {
		return nil
	}

	if err := o.noteOff(); err != nil {
		return err
	}

	return o.noteOn()
}

// SetDutyCycle implements device.Driver. A zero duty silences.
func (o *Out) SetDutyCycle(fraction float64) error {
	if fraction <= 0 || math.IsNaN(fraction) {
		return o.Silence()
	}

	o.velocity = Velocity(fraction)

	if o.sounding >= 0 {
		return nil
	}

	return o.noteOn()
}

// Silence implements device.Driver.
func (o *Out) Silence() error {
	if o.sounding < 0 {
		return nil
	}

	return o.noteOff()
}

// Close releases the held note and the port.
func (o *Out) Close() error {
	err := o.Silence()

	if o.port != nil {
		err = errors.Join(err, o.port.Close())
		o.port = nil
	}

	return err
}

func (o *Out) noteOn() error {
	if err := o.send(midi.NoteOn(o.channel, o.key, o.velocity)); err != nil {
		return fmt.Errorf("failed to send note on: %w", err)
	}

	o.sounding = int(o.key)

	return nil
}

func (o *Out) noteOff() error {
	key := uint8(o.sounding) //nolint:gosec // sounding is a valid key here.
	o.sounding = -1

	if err := o.send(midi.NoteOff(o.channel, key)); err != nil {
		return fmt.Errorf("failed to send note off: %w", err)
	}

	return nil
}

// Velocity maps a duty cycle to a velocity: 0.5 is loudest, the extremes quietest.
func Velocity(duty float64) uint8 {
	duty = min(max(duty, 0), 1)
	v := math.Round(maxVelocity * (1 - math.Abs(2*duty-1)))

	return uint8(min(max(v, 1), maxVelocity))
}
