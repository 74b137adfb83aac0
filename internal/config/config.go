package config

import (
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings of the orchestra binaries.
type Config struct {
	// ServerAddress is the gRPC address: the server listens on its port, clients dial it.
	ServerAddress string `yaml:"server_addr"`
	// HTTPAddress is the HTTP listen address of the server.
	HTTPAddress string `yaml:"http_addr"`
	// Timeout is the duration for network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is the default logging level.
	LogLevel string `yaml:"log_level"`
	// LogFormat is "console" for terminals or "json" for log collectors.
	LogFormat string `yaml:"log_format,omitempty"`
	// DeviceID overrides the identity derived from the host.
	DeviceID string `yaml:"device_id,omitempty"`

	Scale   Scale   `yaml:"scale"`
	Arbiter Arbiter `yaml:"arbiter"`
	Sensor  Sensor  `yaml:"sensor"`
	Device  Device  `yaml:"device"`
}

// Scale describes the equal-tempered scale.
type Scale struct {
	BaseHz             float64 `yaml:"base_hz"`
	SemitonesPerOctave int     `yaml:"semitones_per_octave"`
	Octaves            int     `yaml:"octaves"`
}

// Arbiter tunes the tone arbiter and command ingestion.
type Arbiter struct {
	Tick           time.Duration `yaml:"tick"`
	SuppressMargin time.Duration `yaml:"suppress_margin"`
	// AmbientDuty and SequenceDuty fall back to DefaultDuty when zero: a
	// silent ambient path or melody is expressed by other means.
	AmbientDuty  float64 `yaml:"ambient_duty"`
	SequenceDuty float64 `yaml:"sequence_duty"`
	// CommandDuty is the duty of note and tone commands without one. It is
	// nil when unset, meaning DefaultDuty; zero makes such commands silent.
	CommandDuty *float64 `yaml:"default_duty,omitempty"`
	// QuantizeCommands is nil when unset, meaning true.
	QuantizeCommands   *bool         `yaml:"quantize_commands,omitempty"`
	MaxCommandDuration time.Duration `yaml:"max_command_duration"`
	// LogLevel overrides the process level for arbiter logs; empty follows it.
	LogLevel string `yaml:"log_level,omitempty"`
}

// Quantize reports whether command frequencies snap to the scale.
func (a Arbiter) Quantize() bool {
	return a.QuantizeCommands == nil || *a.QuantizeCommands
}

// Sensor selects and calibrates the light sensor.
type Sensor struct {
	Kind       string        `yaml:"kind"`
	MinRaw     int           `yaml:"min_raw"`
	MaxRaw     int           `yaml:"max_raw"`
	Path       string        `yaml:"path,omitempty"`
	SerialPort string        `yaml:"serial_port,omitempty"`
	Baud       int           `yaml:"baud,omitempty"`
	SimMin     int           `yaml:"sim_min,omitempty"`
	SimMax     int           `yaml:"sim_max,omitempty"`
	SimPeriod  time.Duration `yaml:"sim_period,omitempty"`
}

// Device selects the output backend.
type Device struct {
	Kind        string  `yaml:"kind"`
	SampleRate  int     `yaml:"sample_rate,omitempty"`
	Volume      float64 `yaml:"volume,omitempty"`
	MIDIPort    string  `yaml:"midi_port,omitempty"`
	MIDIChannel int     `yaml:"midi_channel,omitempty"`
	PWMRoot     string  `yaml:"pwm_root,omitempty"`
	PWMChip     int     `yaml:"pwm_chip,omitempty"`
	PWMChannel  int     `yaml:"pwm_channel,omitempty"`
}

// Sensor kinds.
const (
	SensorSimulated = "simulated"
	SensorSysfs     = "sysfs"
	SensorSerial    = "serial"
)

// Device kinds.
const (
	DeviceLog     = "log"
	DeviceSpeaker = "speaker"
	DeviceMIDI    = "midi"
	DevicePWM     = "pwm"
)

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "light-orchestra.yaml"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultHTTPAddress is where the HTTP API listens by default.
	DefaultHTTPAddress = ":8080"

	// DefaultLogLevel is used when log_level is empty.
	DefaultLogLevel = "info"

	// DefaultLogFormat is used when log_format is empty.
	DefaultLogFormat = "console"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// Scale defaults: two octaves of semitones starting at middle C.
	DefaultBaseHz             = 261.626
	DefaultSemitonesPerOctave = 12
	DefaultOctaves            = 2

	// Arbiter defaults.
	DefaultTick               = 50 * time.Millisecond
	DefaultSuppressMargin     = 800 * time.Millisecond
	DefaultDuty               = 0.5
	DefaultMaxCommandDuration = 2 * time.Minute

	// Sensor defaults, in raw ADC units.
	DefaultMinRaw    = 24000
	DefaultMaxRaw    = 60000
	DefaultBaud      = 9600
	DefaultSimPeriod = 20 * time.Second

	// Device defaults.
	DefaultSampleRate = 44100
	DefaultVolume     = 0.2
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerSocketRequired is returned when server address is missing.
	errServerSocketRequired = errors.New("server address must be provided")
	// errInvalidRange is returned when min_raw exceeds max_raw.
	errInvalidRange = errors.New("sensor min_raw must not exceed max_raw")
	// errInvalidDuty is returned for duties outside [0, 1].
	errInvalidDuty = errors.New("duty cycle must be within [0, 1]")
	// errInvalidScale is returned for a non-positive base frequency or size.
	errInvalidScale = errors.New("scale must have a positive base frequency and size")
	// errUnknownKind is returned for unsupported sensor or device kinds.
	errUnknownKind = errors.New("unknown kind")
	// errMissingPath is returned when a sensor kind needs a path or port.
	errMissingPath = errors.New("sensor source path must be provided")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes Settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills in defaults.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ServerAddress == "" {
		return errServerSocketRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if settings.HTTPAddress == "" {
		settings.HTTPAddress = DefaultHTTPAddress
	}

	// Set default timeout if not specified
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.LogLevel == "" {
		settings.LogLevel = DefaultLogLevel
	}

	switch settings.LogFormat {
	case "":
		settings.LogFormat = DefaultLogFormat
	case DefaultLogFormat, "json":
	default:
		return fmt.Errorf("log format %w %q", errUnknownKind, settings.LogFormat)
	}

	if err := validateScale(&settings.Scale); err != nil {
		return err
	}

	if err := validateArbiter(&settings.Arbiter); err != nil {
		return err
	}

	if err := validateSensor(&settings.Sensor); err != nil {
		return err
	}

	return validateDevice(&settings.Device)
}

func validateScale(s *Scale) error {
	if s.BaseHz == 0 {
		s.BaseHz = DefaultBaseHz
	}

	if s.SemitonesPerOctave == 0 {
		s.SemitonesPerOctave = DefaultSemitonesPerOctave
	}

	if s.Octaves == 0 {
		s.Octaves = DefaultOctaves
	}

	if s.BaseHz < 0 || math.IsNaN(s.BaseHz) || s.SemitonesPerOctave < 0 || s.Octaves < 0 {
		return errInvalidScale
	}

	return nil
}

func validateArbiter(a *Arbiter) error {
	if a.Tick <= 0 {
		a.Tick = DefaultTick
	}

	if a.SuppressMargin < 0 {
		return fmt.Errorf("invalid suppress_margin %s: must not be negative", a.SuppressMargin)
	}

	if a.SuppressMargin == 0 {
		a.SuppressMargin = DefaultSuppressMargin
	}

	if a.MaxCommandDuration <= 0 {
		a.MaxCommandDuration = DefaultMaxCommandDuration
	}

	if a.CommandDuty == nil {
		duty := DefaultDuty
		a.CommandDuty = &duty
	}

	for name, duty := range map[string]*float64{
		"ambient_duty":  &a.AmbientDuty,
		"sequence_duty": &a.SequenceDuty,
	} {
		if *duty == 0 {
			*duty = DefaultDuty
		}

		if *duty < 0 || *duty > 1 || math.IsNaN(*duty) {
			return fmt.Errorf("%s: %w", name, errInvalidDuty)
		}
	}

	if duty := *a.CommandDuty; duty < 0 || duty > 1 || math.IsNaN(duty) {
		return fmt.Errorf("default_duty: %w", errInvalidDuty)
	}

	return nil
}

func validateSensor(s *Sensor) error {
	if s.Kind == "" {
		s.Kind = SensorSimulated
	}

	if s.MinRaw == 0 && s.MaxRaw == 0 {
		s.MinRaw, s.MaxRaw = DefaultMinRaw, DefaultMaxRaw
	}

	if s.MinRaw > s.MaxRaw {
		return errInvalidRange
	}

	switch s.Kind {
	case SensorSimulated:
		if s.SimMin == 0 && s.SimMax == 0 {
			s.SimMin, s.SimMax = s.MinRaw, s.MaxRaw
		}

		if s.SimPeriod <= 0 {
			s.SimPeriod = DefaultSimPeriod
		}
	case SensorSysfs:
		if s.Path == "" {
			return fmt.Errorf("sysfs: %w", errMissingPath)
		}
	case SensorSerial:
		if s.SerialPort == "" {
			return fmt.Errorf("serial: %w", errMissingPath)
		}

		if s.Baud <= 0 {
			s.Baud = DefaultBaud
		}
	default:
		return fmt.Errorf("sensor %w %q", errUnknownKind, s.Kind)
	}

	return nil
}

func validateDevice(d *Device) error {
	if d.Kind == "" {
		d.Kind = DeviceLog
	}

	switch d.Kind {
	case DeviceLog, DeviceMIDI, DevicePWM:
	case DeviceSpeaker:
		if d.SampleRate <= 0 {
			d.SampleRate = DefaultSampleRate
		}

		if d.Volume <= 0 {
			d.Volume = DefaultVolume
		}
	default:
		return fmt.Errorf("device %w %q", errUnknownKind, d.Kind)
	}

	return nil
}
