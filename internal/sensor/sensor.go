package sensor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Source reads the ambient light level as raw ADC counts.
type Source interface {
	ReadRaw(ctx context.Context) (int, error)
}

var (
	// ErrNoReading is returned while a source has not produced any value yet.
	ErrNoReading = errors.New("no sensor reading yet")
	// errNotFinite rejects NaN and infinite readings.
	errNotFinite = errors.New("reading is not finite")
)

// Static always returns the same reading.
type Static int

// ReadRaw implements Source.
func (s Static) ReadRaw(context.Context) (int, error) {
	return int(s), nil
}

// Func adapts a function to Source.
type Func func(ctx context.Context) (int, error)

// ReadRaw implements Source.
func (f Func) ReadRaw(ctx context.Context) (int, error) {
	return f(ctx)
}

// Simulated sweeps linearly from Min to Max and back over Period.
// A non-positive Period yields Min forever.
type Simulated struct {
	// Min is the reading at the start of each period.
	Min int
	// Max is the reading at the middle of each period.
	Max int
	// Period is the duration of one full sweep.
	Period time.Duration
	// start anchors the sweep.
	start time.Time
	// now returns the current time.
	now func() time.Time
}

// NewSimulated starts a sweep anchored at the current time.
func NewSimulated(minRaw, maxRaw int, period time.Duration) *Simulated {
	return &Simulated{
		Min:    minRaw,
		Max:    maxRaw,
		Period: period,
		start:  time.Now(),
		now:    time.Now,
	}
}

// ReadRaw implements Source.
func (s *Simulated) ReadRaw(context.Context) (int, error) {
	if s.Period <= 0 {
		return s.Min, nil
	}

	elapsed := s.now().Sub(s.start) % s.Period
	phase := float64(elapsed) / float64(s.Period)

	// Triangle: 0 -> 1 over the first half, back to 0 over the second.
	position := 2 * phase
	if position > 1 {
		position = 2 - position
	}

	return s.Min + int(position*float64(s.Max-s.Min)), nil
}

// File reads an integer attribute such as an IIO in_voltage0_raw file.
type File struct {
	// path is the attribute file.
	path string
}

// NewFile returns a Source reading path on every call.
func NewFile(path string) *File {
	return &File{
		path: filepath.Clean(path),
	}
}

// ReadRaw implements Source.
func (f *File) ReadRaw(context.Context) (int, error) {
	contents, err := os.ReadFile(f.path)
	if err != nil {
		return 0, fmt.Errorf("read sensor file: %w", err)
	}

	value, err := parseReading(string(contents))
	if err != nil {
		return 0, fmt.Errorf("parse sensor file %s: %w", f.path, err)
	}

	return value, nil
}

// parseReading accepts an integer, optionally surrounded by whitespace.
// Fractional readings are truncated.
func parseReading(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrNoReading
	}

	if value, err := strconv.Atoi(s); err == nil {
		return value, nil
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid reading %q: %w", s, err)
	}

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("invalid reading %q: %w", s, errNotFinite)
	}

	return int(value), nil
}
