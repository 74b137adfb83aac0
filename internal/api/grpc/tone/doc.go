// Package tone implements the gRPC transport for the tone service.
//
// Messages are google.protobuf.Struct values carrying the same JSON-shaped
// bodies as the HTTP API, so the service is declared by hand instead of being
// generated from a .proto file. The server decodes requests into domain
// commands and calls into a provided business-service interface.
package tone
