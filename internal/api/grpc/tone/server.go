package tone

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/light-orchestra/internal/api/payload"
	domain "github.com/oshokin/light-orchestra/internal/domain/tone"
	"github.com/oshokin/light-orchestra/internal/ingest"
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	Submit(ctx context.Context, cmd domain.Command) uint64
	Health(ctx context.Context) domain.Health
	Sensor(ctx context.Context) (domain.SensorSample, error)
	Status(ctx context.Context) domain.Snapshot
}

// Server implements ToneServiceServer.
type Server struct {
	// service provides the business logic.
	service Service
	// decoder validates inbound payloads.
	decoder *ingest.Decoder
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service, decoder *ingest.Decoder) *Server {
	return &Server{
		service: service,
		decoder: decoder,
	}
}

// PlayNote starts a single note given in seconds.
func (s *Server) PlayNote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	note, err := s.decoder.PlayNote(req)
	if err != nil {
		return nil, toStatus(err)
	}

	return payload.NoteAccepted(s.service.Submit(ctx, note)), nil
}

// Tone starts a single note given in milliseconds with an optional duty cycle.
func (s *Server) Tone(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	note, err := s.decoder.Tone(req)
	if err != nil {
		return nil, toStatus(err)
	}

	return payload.ToneAccepted(s.service.Submit(ctx, note), note), nil
}

// Melody starts a sequence.
func (s *Server) Melody(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	seq, err := s.decoder.Melody(req)
	if err != nil {
		return nil, toStatus(err)
	}

	return payload.MelodyAccepted(s.service.Submit(ctx, seq), seq), nil
}

// Stop silences everything.
func (s *Server) Stop(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	s.service.Submit(ctx, domain.Stop{})

	return payload.Stopped(), nil
}

// Health reports liveness and identity.
func (s *Server) Health(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return payload.Health(s.service.Health(ctx)), nil
}

// Sensor reports the current light reading.
func (s *Server) Sensor(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	sample, err := s.service.Sensor(ctx)
	if err != nil {
		return nil, status.Error(codes.Unavailable, "sensor is unavailable")
	}

	return payload.Sensor(sample), nil
}

// Status reports the arbiter snapshot.
func (s *Server) Status(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return payload.Status(s.service.Status(ctx)), nil
}

// toStatus maps validation failures to InvalidArgument.
func toStatus(err error) error {
	if errors.Is(err, ingest.ErrInvalidRequest) {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	return status.Error(codes.Internal, "unable to process request")
}
