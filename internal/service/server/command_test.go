package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/light-orchestra/internal/config"
	"github.com/oshokin/light-orchestra/internal/device"
	"github.com/oshokin/light-orchestra/internal/sensor"
)

// TestResolveListenAddress checks override and port extraction.
func TestResolveListenAddress(t *testing.T) {
	t.Parallel()

	address, err := resolveListenAddress("orchestra.local:50051", "")
	require.NoError(t, err)
	require.Equal(t, ":50051", address)

	address, err = resolveListenAddress("orchestra.local:50051", "127.0.0.1:9999")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9999", address)

	_, err = resolveListenAddress("", "")
	require.ErrorIs(t, err, ErrNoServerAddress)

	_, err = resolveListenAddress("no-port", "")
	require.Error(t, err)
}

// TestArbiterOptions maps validated settings and rejects unknown arbiter levels.
func TestArbiterOptions(t *testing.T) {
	t.Parallel()

	settings := &config.Config{ServerAddress: "127.0.0.1:50051"}
	require.NoError(t, config.Validate(settings))

	opts, err := arbiterOptions(settings)
	require.NoError(t, err)
	require.Equal(t, config.DefaultTick, opts.Tick)
	require.Equal(t, config.DefaultSuppressMargin, opts.SuppressMargin)
	require.Equal(t, 24, opts.Scale.TotalSteps)
	require.True(t, opts.QuantizeCommands)
	require.Equal(t, config.DefaultMinRaw, opts.MinRaw)

	settings.Arbiter.LogLevel = "chatty"

	_, err = arbiterOptions(settings)
	require.ErrorIs(t, err, errInvalidLogLevel)
}

// TestOpenSensorAndDevice builds the default backends.
func TestOpenSensorAndDevice(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	source, closer, err := openSensor(ctx, &config.Sensor{Kind: config.SensorSimulated, SimMin: 1, SimMax: 2})
	require.NoError(t, err)
	require.Nil(t, closer)
	require.IsType(t, &sensor.Simulated{}, source)

	source, _, err = openSensor(ctx, &config.Sensor{Kind: config.SensorSysfs, Path: "/nonexistent"})
	require.NoError(t, err)
	require.IsType(t, &sensor.File{}, source)

	dev, err := openDevice(ctx, &config.Device{Kind: config.DeviceLog})
	require.NoError(t, err)
	require.IsType(t, &device.LogDriver{}, dev)

	_, err = openDevice(ctx, &config.Device{Kind: config.DevicePWM, PWMRoot: t.TempDir()})
	require.Error(t, err)
}
