package sensor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/tarm/serial"

	"github.com/oshokin/light-orchestra/internal/logger"
)

// DefaultBaud matches the usual Arduino sketch setting.
const DefaultBaud = 9600

// Serial keeps the latest reading printed by a microcontroller, one per line.
// A line may carry a label before the value ("A0 41234"); the last field wins.
type Serial struct {
	// port is the underlying stream.
	port io.ReadCloser
	// latest is the most recent parsed value.
	latest atomic.Int64
	// ready is set once latest holds a real reading.
	ready atomic.Bool
	// done is closed when the reader goroutine exits.
	done chan struct{}
}

// OpenSerial opens the named port and starts reading lines from it.
func OpenSerial(ctx context.Context, name string, baud int) (*Serial, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}

	port, err := serial.OpenPort(&serial.Config{
		Name: name,
		Baud: baud,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}

	return NewSerial(ctx, port), nil
}

// NewSerial starts reading lines from r in the background.
func NewSerial(ctx context.Context, r io.ReadCloser) *Serial {
	s := &Serial{
		port: r,
		done: make(chan struct{}),
	}

	go s.scan(logger.WithName(ctx, "sensor-serial"))

	return s
}

// ReadRaw implements Source.
func (s *Serial) ReadRaw(context.Context) (int, error) {
	if !s.ready.Load() {
		return 0, ErrNoReading
	}

	return int(s.latest.Load()), nil
}

// Close closes the port and waits for the reader to stop.
func (s *Serial) Close() error {
	err := s.port.Close()

	<-s.done

	return err
}

// scan reads until the port is closed.
func (s *Serial) scan(ctx context.Context) {
	defer close(s.done)

	scanner := bufio.NewScanner(s.port)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		value, err := parseReading(fields[len(fields)-1])
		if err != nil {
			logger.DebugKV(ctx, "Skipping malformed sensor line", "line", scanner.Text(), "error", err)
			continue
		}

		s.latest.Store(int64(value))
		s.ready.Store(true)
	}

	if err := scanner.Err(); err != nil {
		logger.WarnKV(ctx, "Serial sensor stopped", "error", err)
	}
}
