package device

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

var errTestDevice = errors.New("test device error")

// TestRecorder verifies call recording, filtering and failure injection.
func TestRecorder(t *testing.T) {
	t.Parallel()

	r := NewRecorder()

	_, ok := r.Last()
	require.False(t, ok)

	require.NoError(t, r.SetFrequency(440))
	require.NoError(t, r.SetDutyCycle(0.5))
	require.NoError(t, r.Silence())
	require.NoError(t, r.SetFrequency(880))

	require.Equal(t, 4, r.Len())
	require.Equal(t, []float64{440, 880}, r.Frequencies(0))
	require.Equal(t, []float64{880}, r.Frequencies(2))
	require.Nil(t, r.Events(10))

	last, ok := r.Last()
	require.True(t, ok)
	require.Equal(t, Event{Op: OpFrequency, Value: 880}, last)

	r.FailFrequency(errTestDevice)
	require.ErrorIs(t, r.SetFrequency(100), errTestDevice)
	require.Equal(t, 4, r.Len())

	r.FailFrequency(nil)
	require.NoError(t, r.SetFrequency(100))
}

// TestLogDriver ensures the logging driver accepts every call.
func TestLogDriver(t *testing.T) {
	t.Parallel()

	var d Device = NewLogDriver(context.Background())

	require.NoError(t, d.SetFrequency(440))
	require.NoError(t, d.SetDutyCycle(0.5))
	require.NoError(t, d.Silence())
	require.NoError(t, d.Close())
}
