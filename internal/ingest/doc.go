// Package ingest turns inbound request payloads into validated tone commands.
//
// Payloads arrive as google.protobuf.Struct values from both transports (gRPC
// directly, HTTP via protojson), so validation lives in one place. Invalid
// payloads are rejected with a *ValidationError and never reach the arbiter.
package ingest
