package server

import (
	"context"
	"errors"
	"testing"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/require"
)

var errTestList = errors.New("proc is not mounted")

// fakeProcess implements ps.Process.
type fakeProcess struct {
	pid        int
	executable string
}

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return 1 }
func (p fakeProcess) Executable() string { return p.executable }

func listOf(processes ...ps.Process) processLister {
	return func() ([]ps.Process, error) { return processes, nil }
}

// TestMatchesExecutable covers exact and truncated names.
func TestMatchesExecutable(t *testing.T) {
	t.Parallel()

	require.True(t, matchesExecutable("orchestra-server", "orchestra-server"))
	require.True(t, matchesExecutable("orchestra-serve", "orchestra-server"))
	require.False(t, matchesExecutable("orchestra", "orchestra-server"))
	require.False(t, matchesExecutable("orchestra-ctl", "orchestra-server"))
	require.False(t, matchesExecutable("", "orchestra-server"))
}

// TestCheckInstances refuses to start next to a running server.
func TestCheckInstances(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	err := checkInstances(ctx, listOf(
		fakeProcess{pid: 10, executable: "orchestra-server"},
		fakeProcess{pid: 11, executable: "bash"},
	), "orchestra-server", 10, false)
	require.NoError(t, err)

	err = checkInstances(ctx, listOf(
		fakeProcess{pid: 10, executable: "orchestra-server"},
		fakeProcess{pid: 12, executable: "orchestra-serve"},
	), "orchestra-server", 10, false)
	require.ErrorIs(t, err, errAlreadyRunning)

	err = checkInstances(ctx, func() ([]ps.Process, error) { return nil, errTestList }, "orchestra-server", 10, false)
	require.ErrorIs(t, err, errTestList)
}
