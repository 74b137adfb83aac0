package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/mitchellh/go-ps"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	grpcapi "github.com/oshokin/light-orchestra/internal/api/grpc/tone"
	httpapi "github.com/oshokin/light-orchestra/internal/api/http/tone"
	"github.com/oshokin/light-orchestra/internal/arbiter"
	"github.com/oshokin/light-orchestra/internal/config"
	"github.com/oshokin/light-orchestra/internal/device"
	"github.com/oshokin/light-orchestra/internal/device/midiout"
	"github.com/oshokin/light-orchestra/internal/device/pwm"
	"github.com/oshokin/light-orchestra/internal/device/speaker"
	"github.com/oshokin/light-orchestra/internal/domain/scale"
	"github.com/oshokin/light-orchestra/internal/ingest"
	"github.com/oshokin/light-orchestra/internal/logger"
	"github.com/oshokin/light-orchestra/internal/sensor"
	"github.com/oshokin/light-orchestra/internal/service/common"
)

// Options controls the orchestra-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// HTTPAddress provides an optional listen address override for the HTTP API.
	HTTPAddress string
	// LogLevel overrides the configured log level when set.
	LogLevel string
	// Force terminates other running servers instead of refusing to start.
	Force bool
}

var (
	// ErrNoServerAddress indicates missing server configuration.
	ErrNoServerAddress = errors.New("no server address configured")
	// errInvalidLogLevel is returned for unknown level names.
	errInvalidLogLevel = errors.New("invalid log level")
)

// Run starts the arbiter with the gRPC and HTTP servers and blocks until ctx
// is canceled or one of them fails. The device is silenced before returning.
//
//nolint:funlen // Wiring reads best top to bottom.
func Run(ctx context.Context, opts *Options) error {
	// Load configuration first to get server settings.
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if err = applyLogLevel(opts.LogLevel, settings.LogLevel); err != nil {
		return err
	}

	// Validate accepted the format. Scoped loggers are derived after this point.
	logger.SetFormat(settings.LogFormat)

	ctx = logger.WithName(ctx, "orchestra-server")

	if err = ensureSingleInstance(ctx, ps.Processes, opts.Force); err != nil {
		return err
	}

	// Determine listen address: CLI argument overrides config port extraction.
	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	httpAddress := settings.HTTPAddress
	if opts.HTTPAddress != "" {
		httpAddress = opts.HTTPAddress
	}

	arbiterOpts, err := arbiterOptions(settings)
	if err != nil {
		return err
	}

	source, closeSensor, err := openSensor(ctx, &settings.Sensor)
	if err != nil {
		return fmt.Errorf("open sensor: %w", err)
	}

	defer closeQuietly(ctx, "sensor", closeSensor)

	dev, err := openDevice(ctx, &settings.Device)
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}

	defer closeQuietly(ctx, "device", dev)

	arb := arbiter.New(dev, source, arbiterOpts)
	decoder := ingest.NewDecoder(ingest.Options{
		DefaultDuty: settings.Arbiter.CommandDuty,
		MaxDuration: settings.Arbiter.MaxCommandDuration,
		MaxNotes:    ingest.DefaultMaxNotes,
	})

	svc := newService(arb, source, settings.Sensor.MinRaw, settings.Sensor.MaxRaw, common.DeviceID(settings.DeviceID))

	// Setup TCP listeners before anything starts so address errors surface early.
	lc := net.ListenConfig{}

	grpcListener, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	httpListener, err := lc.Listen(ctx, "tcp", httpAddress)
	if err != nil {
		_ = grpcListener.Close()
		return fmt.Errorf("listen on %s: %w", httpAddress, err)
	}

	grpcServer := grpc.NewServer()
	grpcapi.RegisterToneServiceServer(grpcServer, grpcapi.NewServer(svc, decoder))

	httpServer := &http.Server{
		Handler:           httpapi.NewHandler(svc, decoder),
		ReadHeaderTimeout: settings.Timeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logger.InfoKV(
		ctx,
		"Orchestra server listening",
		"grpc_address", grpcListener.Addr().String(),
		"http_address", httpListener.Addr().String(),
		"sensor", settings.Sensor.Kind,
		"device", settings.Device.Kind,
	)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return arb.Run(arbiterContext(groupCtx, settings.Arbiter.LogLevel))
	})

	group.Go(func() error {
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		if err := httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve HTTP: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info(ctx, "Shutting down servers")

		grpcServer.GracefulStop()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settings.Timeout)
		defer cancel()

		return httpServer.Shutdown(shutdownCtx)
	})

	err = group.Wait()

	logger.Info(ctx, "Orchestra server stopped")

	return err
}

// applyLogLevel sets the process level from the flag or the config.
func applyLogLevel(override, configured string) error {
	level := configured
	if override != "" {
		level = override
	}

	if !logger.SetLevelString(level) {
		return fmt.Errorf("%w: %q", errInvalidLogLevel, level)
	}

	return nil
}

// arbiterContext scopes the arbiter logger, optionally with its own level.
func arbiterContext(ctx context.Context, level string) context.Context {
	if level == "" {
		return ctx
	}

	parsed, _ := logger.ParseLogLevel(level)

	return logger.WithLevelOverride(ctx, parsed)
}

// arbiterOptions maps validated settings to arbiter options.
func arbiterOptions(settings *config.Config) (arbiter.Options, error) {
	if level := settings.Arbiter.LogLevel; level != "" {
		if _, ok := logger.ParseLogLevel(level); !ok {
			return arbiter.Options{}, fmt.Errorf("arbiter: %w: %q", errInvalidLogLevel, level)
		}
	}

	return arbiter.Options{
		Scale:            scale.New(settings.Scale.BaseHz, settings.Scale.SemitonesPerOctave, settings.Scale.Octaves),
		Tick:             settings.Arbiter.Tick,
		SuppressMargin:   settings.Arbiter.SuppressMargin,
		AmbientDuty:      settings.Arbiter.AmbientDuty,
		SequenceDuty:     settings.Arbiter.SequenceDuty,
		QuantizeCommands: settings.Arbiter.Quantize(),
		MinRaw:           settings.Sensor.MinRaw,
		MaxRaw:           settings.Sensor.MaxRaw,
	}, nil
}

// openSensor builds the configured light source. The returned closer may be nil.
func openSensor(ctx context.Context, cfg *config.Sensor) (sensor.Source, io.Closer, error) {
	switch cfg.Kind {
	case config.SensorSysfs:
		return sensor.NewFile(cfg.Path), nil, nil
	case config.SensorSerial:
		serial, err := sensor.OpenSerial(logger.WithName(ctx, "sensor"), cfg.SerialPort, cfg.Baud)
		if err != nil {
			return nil, nil, err
		}

		return serial, serial, nil
	default:
		return sensor.NewSimulated(cfg.SimMin, cfg.SimMax, cfg.SimPeriod), nil, nil
	}
}

// openDevice builds the configured output backend.
//
//nolint:ireturn // The backend is chosen at runtime.
func openDevice(ctx context.Context, cfg *config.Device) (device.Device, error) {
	var (
		dev device.Device
		err error
	)

	switch cfg.Kind {
	case config.DeviceSpeaker:
		dev, err = speaker.Open(cfg.SampleRate, cfg.Volume)
	case config.DeviceMIDI:
		dev, err = midiout.Open(cfg.MIDIPort, cfg.MIDIChannel)
	case config.DevicePWM:
		dev, err = pwm.Open(cfg.PWMRoot, cfg.PWMChip, cfg.PWMChannel)
	default:
		dev = device.NewLogDriver(ctx)
	}

	if err != nil {
		return nil, err
	}

	return dev, nil
}

// closeQuietly closes c and logs failures. A nil closer is ignored.
func closeQuietly(ctx context.Context, name string, c io.Closer) {
	if c == nil {
		return
	}

	if err := c.Close(); err != nil {
		logger.WarnKV(ctx, "Close failed", "resource", name, "error", err)
	}
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":8080" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	// Use override address if provided (e.g., ":9090", "0.0.0.0:8080").
	if override != "" {
		return override, nil
	}

	// Extract port from config address (e.g., "server.example.com:8080" -> ":8080").
	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	// Parse the address to extract port.
	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Return port-only listen address to bind on all interfaces.
	return ":" + port, nil
}
