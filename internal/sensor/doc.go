// Package sensor provides the ambient light sources read by the arbiter.
//
// A Source returns raw ADC counts on demand. Implementations: Static and Func
// for fixed or scripted values, Simulated for a triangle sweep, File for
// sysfs/IIO attributes, and Serial for a microcontroller printing readings as
// text lines over a serial port.
package sensor
