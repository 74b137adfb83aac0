package speaker

import (
	"encoding/binary"
	"math"
	"sync/atomic"
)

// bytesPerSample is the size of one mono float32 sample.
const bytesPerSample = 4

// squareWave is an io.Reader producing mono float32 little-endian samples.
// Parameters are atomics: the audio thread reads them while the arbiter writes.
type squareWave struct {
	// sampleRate is fixed at creation.
	sampleRate float64
	// amplitude is the peak sample value.
	amplitude float32

	// hz, duty are float64 bit patterns.
	hz   atomic.Uint64
	duty atomic.Uint64
	// on gates output; silence is a stream of zeros.
	on atomic.Bool

	// phase is in [0, 1) and only touched by Read.
	phase float64
}

// newSquareWave returns a silent generator.
func newSquareWave(sampleRate int, amplitude float64) *squareWave {
	w := &squareWave{
		sampleRate: float64(sampleRate),
		amplitude:  float32(min(max(amplitude, 0), 1)),
	}

	w.setDuty(0.5)

	return w
}

func (w *squareWave) setFrequency(hz float64) {
	w.hz.Store(math.Float64bits(hz))
}

func (w *squareWave) setDuty(duty float64) {
	w.duty.Store(math.Float64bits(duty))
}

// Read fills p with whole samples.
func (w *squareWave) Read(p []byte) (int, error) {
	n := len(p) - len(p)%bytesPerSample

	hz := math.Float64frombits(w.hz.Load())
	duty := math.Float64frombits(w.duty.Load())

	if !w.on.Load() || hz <= 0 || duty <= 0 {
		clear(p[:n])
		w.phase = 0

		return n, nil
	}

	step := hz / w.sampleRate

	for i := 0; i < n; i += bytesPerSample {
		sample := -w.amplitude
		if w.phase < duty {
			sample = w.amplitude
		}

		binary.LittleEndian.PutUint32(p[i:], math.Float32bits(sample))

		w.phase += step
		if w.phase >= 1 {
			w.phase -= math.Floor(w.phase)
		}
	}

	return n, nil
}
