// Package arbiter owns the output device and decides, every tick, which source
// drives it: a running command task, the ambient sensor path, or nobody.
//
// Priority is Stop > newest command > ambient. A new command never queues: the
// running task is cancelled and awaited, the device is silenced, and only then
// does the new task start. Ambient output stays muted while a command runs and
// until its suppression window (duration plus a safety margin) has elapsed.
//
// All device writes happen under the arbiter mutex, so at most one source can
// write at any instant.
package arbiter
