// Package tone contains the domain types shared by the arbiter and its transports.
//
// It defines the Command union (Note, Sequence, Stop), the arbiter State
// enumeration, and the read-only views (Snapshot, SensorSample, Health)
// returned to callers.
package tone
