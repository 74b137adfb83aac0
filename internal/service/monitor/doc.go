// Package monitor renders a live terminal view of the arbiter: who owns the
// device, the note being played and the sensor reading.
package monitor
