//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDeviceID covers the override, machine id and hostname fallbacks.
//
//nolint:paralleltest // Mutates machineIDPaths.
func TestDeviceID(t *testing.T) {
	saved := machineIDPaths

	t.Cleanup(func() { machineIDPaths = saved })

	require.Equal(t, "stage-left", DeviceID("  stage-left "))

	dir := t.TempDir()
	valid := filepath.Join(dir, "machine-id")
	invalid := filepath.Join(dir, "garbage")

	require.NoError(t, os.WriteFile(valid, []byte("0A1B2C3D\n"), 0o600))
	require.NoError(t, os.WriteFile(invalid, []byte("not hex"), 0o600))

	machineIDPaths = []string{filepath.Join(dir, "missing"), invalid, valid}
	require.Equal(t, "0a1b2c3d", DeviceID(""))

	machineIDPaths = nil

	hostname, err := os.Hostname()
	require.NoError(t, err)
	require.Equal(t, hex.EncodeToString([]byte(hostname)), DeviceID(""))
}
