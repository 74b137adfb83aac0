package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/light-orchestra/internal/logger"
)

// commLength is the longest executable name Linux reports for a process.
const commLength = 15

// errAlreadyRunning is returned when another server process is found.
var errAlreadyRunning = errors.New("another orchestra server is already running")

// processLister enumerates running processes.
type processLister func() ([]ps.Process, error)

// ensureSingleInstance refuses to start while another process runs the same
// executable. With force, the other processes are killed instead.
func ensureSingleInstance(ctx context.Context, list processLister, force bool) error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	return checkInstances(ctx, list, filepath.Base(self), os.Getpid(), force)
}

// checkInstances implements ensureSingleInstance for a given executable and pid.
func checkInstances(ctx context.Context, list processLister, name string, selfPID int, force bool) error {
	processList, err := list()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	for _, process := range processList {
		processID := process.Pid()
		if processID == selfPID {
			continue
		}

		if !matchesExecutable(process.Executable(), name) {
			continue
		}

		if !force {
			return fmt.Errorf("%w (pid %d)", errAlreadyRunning, processID)
		}

		logger.WarnKV(ctx, "Terminating running server", "pid", processID)

		var runningProcess *os.Process

		runningProcess, err = os.FindProcess(processID)
		if err != nil {
			return err
		}

		if err = runningProcess.Kill(); err != nil {
			return err
		}
	}

	return nil
}

// matchesExecutable compares a process executable with our own name. Linux
// truncates names to 15 bytes, so a truncated name matches by prefix.
func matchesExecutable(executable, name string) bool {
	if runtime.GOOS == "windows" {
		executable = strings.TrimSuffix(strings.ToLower(executable), ".exe")
		name = strings.TrimSuffix(strings.ToLower(name), ".exe")
	}

	if executable == "" || name == "" {
		return false
	}

	if executable == name {
		return true
	}

	return len(executable) == commLength && strings.HasPrefix(name, executable)
}
