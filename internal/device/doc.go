// Package device defines the output device contract driven by the arbiter.
//
// Backends live in subpackages (speaker, midiout, pwm). This package holds the
// Driver interface, a logging driver for headless hosts and a Recorder used to
// observe device writes in tests.
package device
