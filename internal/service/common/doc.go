// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC client for the tone service with per-call
// timeouts and the device identity reported by health probes.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
