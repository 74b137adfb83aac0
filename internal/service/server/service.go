package server

import (
	"context"
	"fmt"

	"github.com/oshokin/light-orchestra/internal/arbiter"
	"github.com/oshokin/light-orchestra/internal/domain/scale"
	"github.com/oshokin/light-orchestra/internal/domain/tone"
	"github.com/oshokin/light-orchestra/internal/logger"
	"github.com/oshokin/light-orchestra/internal/sensor"
	"github.com/oshokin/light-orchestra/internal/version"
)

// service encapsulates the tone business logic in front of the arbiter.
// It is unexported to keep the transport decoupled from the implementation.
type service struct {
	// arbiter owns the output device.
	arbiter *arbiter.Arbiter
	// source is read on demand for sensor probes.
	source sensor.Source
	// minRaw, maxRaw calibrate normalization.
	minRaw, maxRaw int
	// deviceID is reported by health probes.
	deviceID string
}

// newService creates a service in front of arb.
func newService(arb *arbiter.Arbiter, source sensor.Source, minRaw, maxRaw int, deviceID string) *service {
	return &service{
		arbiter:  arb,
		source:   source,
		minRaw:   minRaw,
		maxRaw:   maxRaw,
		deviceID: deviceID,
	}
}

// Submit hands a validated command to the arbiter.
func (s *service) Submit(ctx context.Context, cmd tone.Command) uint64 {
	logger.DebugKV(ctx, "Command received", "kind", cmd.Kind().String(), "duration", cmd.TotalDuration().String())

	return s.arbiter.Submit(ctx, cmd)
}

// Health reports liveness and identity.
func (s *service) Health(context.Context) tone.Health {
	return tone.Health{
		Status:   "ok",
		DeviceID: s.deviceID,
		API:      version.APIVersion,
		Build:    version.Short(),
	}
}

// Sensor reads the light sensor once.
func (s *service) Sensor(ctx context.Context) (tone.SensorSample, error) {
	raw, err := s.source.ReadRaw(ctx)
	if err != nil {
		logger.WarnKV(ctx, "Sensor probe failed", "error", err)
		return tone.SensorSample{}, fmt.Errorf("read sensor: %w", err)
	}

	return tone.SensorSample{
		Raw:        raw,
		Normalized: scale.Normalize(raw, s.minRaw, s.maxRaw),
	}, nil
}

// Status returns the arbiter snapshot.
func (s *service) Status(context.Context) tone.Snapshot {
	return s.arbiter.Snapshot()
}
