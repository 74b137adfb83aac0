package server

import (
	"context"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/light-orchestra/internal/arbiter"
	"github.com/oshokin/light-orchestra/internal/device"
	"github.com/oshokin/light-orchestra/internal/domain/tone"
	"github.com/oshokin/light-orchestra/internal/sensor"
	"github.com/oshokin/light-orchestra/internal/version"
)

// newTestService wires a service to a recording device.
func newTestService(source sensor.Source) (*service, *device.Recorder) {
	rec := device.NewRecorder()
	arb := arbiter.New(rec, source, arbiter.DefaultOptions())

	return newService(arb, source, 24000, 60000, "abc123"), rec
}

// TestService_HealthAndSensor checks the read-only operations.
func TestService_HealthAndSensor(t *testing.T) {
	t.Parallel()

	s, _ := newTestService(sensor.Static(42000))

	require.Equal(t, tone.Health{Status: "ok", DeviceID: "abc123", API: version.APIVersion, Build: version.Short()}, s.Health(context.Background()))

	sample, err := s.Sensor(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42000, sample.Raw)
	require.InDelta(t, 0.5, sample.Normalized, 1e-9)
}

// TestService_SensorError propagates sensor failures.
func TestService_SensorError(t *testing.T) {
	t.Parallel()

	s, _ := newTestService(sensor.Func(func(context.Context) (int, error) { return 0, sensor.ErrNoReading }))

	_, err := s.Sensor(context.Background())
	require.ErrorIs(t, err, sensor.ErrNoReading)
}

// TestService_SubmitAndStatus verifies commands reach the arbiter.
func TestService_SubmitAndStatus(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		s, rec := newTestService(sensor.Static(0))
		ctx := context.Background()

		id := s.Submit(ctx, tone.Note{FrequencyHz: 440, Duration: time.Second, Duty: 0.5})
		synctest.Wait()

		status := s.Status(ctx)
		require.Equal(t, tone.StateCommandActive, status.State)
		require.Equal(t, id, status.CommandID)
		require.Len(t, rec.Frequencies(0), 1)

		require.Zero(t, s.Submit(ctx, tone.Stop{}))
		require.Equal(t, tone.StateIdle, s.Status(ctx).State)
	})
}
