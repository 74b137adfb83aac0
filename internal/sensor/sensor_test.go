package sensor

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestStaticAndFunc verifies the trivial sources.
func TestStaticAndFunc(t *testing.T) {
	t.Parallel()

	v, err := Static(42000).ReadRaw(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42000, v)

	calls := 0
	f := Func(func(context.Context) (int, error) {
		calls++
		return calls * 10, nil
	})

	v, err = f.ReadRaw(context.Background())
	require.NoError(t, err)
	require.Equal(t, 10, v)
}

// TestSimulated_Triangle checks the sweep shape at known phases.
func TestSimulated_Triangle(t *testing.T) {
	t.Parallel()

	start := time.Unix(0, 0)
	current := start

	s := NewSimulated(1000, 3000, 4*time.Second)
	s.start = start
	s.now = func() time.Time { return current }

	read := func(offset time.Duration) int {
		current = start.Add(offset)

		v, err := s.ReadRaw(context.Background())
		require.NoError(t, err)

		return v
	}

	require.Equal(t, 1000, read(0))
	require.Equal(t, 2000, read(time.Second))
	require.Equal(t, 3000, read(2*time.Second))
	require.Equal(t, 2000, read(3*time.Second))
	require.Equal(t, 1000, read(4*time.Second))

	s.Period = 0
	require.Equal(t, 1000, read(time.Second))
}

// TestFile reads integer attributes and reports malformed contents.
func TestFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "in_voltage0_raw")

	require.NoError(t, os.WriteFile(path, []byte("41234\n"), 0o600))

	v, err := NewFile(path).ReadRaw(context.Background())
	require.NoError(t, err)
	require.Equal(t, 41234, v)

	require.NoError(t, os.WriteFile(path, []byte("1234.9"), 0o600))

	v, err = NewFile(path).ReadRaw(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1234, v)

	require.NoError(t, os.WriteFile(path, []byte("bright"), 0o600))

	_, err = NewFile(path).ReadRaw(context.Background())
	require.Error(t, err)

	_, err = NewFile(filepath.Join(dir, "missing")).ReadRaw(context.Background())
	require.Error(t, err)
}

// TestParseReading covers the accepted and rejected formats.
func TestParseReading(t *testing.T) {
	t.Parallel()

	v, err := parseReading("  512 ")
	require.NoError(t, err)
	require.Equal(t, 512, v)

	_, err = parseReading("")
	require.ErrorIs(t, err, ErrNoReading)

	_, err = parseReading("NaN")
	require.Error(t, err)
}

// TestSerial feeds lines through a pipe and checks the latest value wins.
func TestSerial(t *testing.T) {
	t.Parallel()

	reader, writer := io.Pipe()
	s := NewSerial(context.Background(), reader)

	_, err := s.ReadRaw(context.Background())
	require.ErrorIs(t, err, ErrNoReading)

	_, err = io.WriteString(writer, "garbage\nA0 30000\n")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		v, err := s.ReadRaw(context.Background())
		return err == nil && v == 30000
	}, time.Second, 5*time.Millisecond)

	_, err = io.WriteString(writer, "45000\n")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		v, _ := s.ReadRaw(context.Background())
		return v == 45000
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, writer.Close())
	require.NoError(t, s.Close())
}
