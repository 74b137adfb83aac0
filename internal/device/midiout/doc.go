// Package midiout plays the tone as a held note on a MIDI output port.
//
// Frequencies are rounded to the nearest MIDI key and the duty cycle maps to
// velocity, loudest at 0.5. A driver must be registered by the binary, e.g. by
// importing gitlab.com/gomidi/midi/v2/drivers/rtmididrv.
package midiout
