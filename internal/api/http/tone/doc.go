// Package tone implements the HTTP/JSON transport for the tone service.
//
// Bodies are decoded with protojson into google.protobuf.Struct values and go
// through the same ingestion decoder as the gRPC transport.
package tone
