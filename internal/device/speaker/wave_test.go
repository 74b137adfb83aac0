package speaker

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// samples decodes a float32 little-endian buffer.
func samples(p []byte) []float32 {
	out := make([]float32, 0, len(p)/bytesPerSample)

	for i := 0; i+bytesPerSample <= len(p); i += bytesPerSample {
		out = append(out, math.Float32frombits(binary.LittleEndian.Uint32(p[i:])))
	}

	return out
}

// TestSquareWave_Silent verifies a silent generator yields zeros and whole samples only.
func TestSquareWave_Silent(t *testing.T) {
	t.Parallel()

	w := newSquareWave(8, 0.5)
	w.setFrequency(1)

	buf := make([]byte, 10)
	for i := range buf {
		buf[i] = 0xff
	}

	n, err := w.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 8, n)
	require.Equal(t, []float32{0, 0}, samples(buf[:n]))
}

// TestSquareWave_Duty checks the high fraction of one period follows the duty cycle.
func TestSquareWave_Duty(t *testing.T) {
	t.Parallel()

	w := newSquareWave(8, 0.5)
	w.setFrequency(1)
	w.setDuty(0.25)
	w.on.Store(true)

	buf := make([]byte, 16*bytesPerSample)

	n, err := w.Read(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)

	got := samples(buf)
	require.Equal(t, []float32{0.5, 0.5, -0.5, -0.5, -0.5, -0.5, -0.5, -0.5}, got[:8])
	require.Equal(t, got[:8], got[8:])
}

// TestSquareWave_Frequency counts rising edges over one second.
func TestSquareWave_Frequency(t *testing.T) {
	t.Parallel()

	const rate = 44100

	w := newSquareWave(rate, 1)
	w.setFrequency(441)
	w.setDuty(0.5)
	w.on.Store(true)

	buf := make([]byte, rate*bytesPerSample)

	_, err := w.Read(buf)
	require.NoError(t, err)

	got := samples(buf)
	edges := 0

	for i := 1; i < len(got); i++ {
		if got[i-1] < 0 && got[i] > 0 {
			edges++
		}
	}

	require.InDelta(t, 441, edges, 1)
}

// TestSquareWave_AmplitudeClamped verifies the volume is bounded to full scale.
func TestSquareWave_AmplitudeClamped(t *testing.T) {
	t.Parallel()

	require.InDelta(t, 1, newSquareWave(8, 3).amplitude, 1e-9)
	require.Zero(t, newSquareWave(8, -1).amplitude)
}
