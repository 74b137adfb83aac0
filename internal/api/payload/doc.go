// Package payload builds the JSON-shaped response bodies shared by the gRPC
// and HTTP transports.
package payload
