package speaker

import (
	"errors"
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"
)

const (
	// DefaultSampleRate is used when the configured rate is not positive.
	DefaultSampleRate = 44100
	// DefaultVolume keeps a full-scale square wave bearable.
	DefaultVolume = 0.2
	// bufferSize is the oto playback buffer.
	bufferSize = 40 * time.Millisecond
)

// ErrClosed is returned by calls on a closed speaker.
var ErrClosed = errors.New("speaker is closed")

// Speaker is a device.Device playing through the default audio output.
//
// oto allows a single context per process, so Open must be called at most once.
type Speaker struct {
	// wave is the sample source read by the player.
	wave *squareWave
	// player is nil after Close.
	player *oto.Player
}

// Open creates the audio context and starts a silent player.
func Open(sampleRate int, volume float64) (*Speaker, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	if volume <= 0 {
		volume = DefaultVolume
	}

	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open audio output: %w", err)
	}

	<-ready

	wave := newSquareWave(sampleRate, volume)
	player := otoCtx.NewPlayer(wave)
	player.Play()

	return &Speaker{
		wave:   wave,
		player: player,
	}, nil
}

// SetFrequency implements device.Driver.
func (s *Speaker) SetFrequency(hz float64) error {
	if s.player == nil {
		return ErrClosed
	}

	s.wave.setFrequency(hz)

	return nil
}

// SetDutyCycle implements device.Driver.
func (s *Speaker) SetDutyCycle(fraction float64) error {
	if s.player == nil {
		return ErrClosed
	}

	s.wave.setDuty(fraction)
	s.wave.on.Store(fraction > 0)

	return nil
}

// Silence implements device.Driver.
func (s *Speaker) Silence() error {
	s.wave.on.Store(false)

	return nil
}

// Close stops playback.
func (s *Speaker) Close() error {
	if s.player == nil {
		return nil
	}

	s.wave.on.Store(false)

	err := s.player.Close()
	s.player = nil

	return err
}
