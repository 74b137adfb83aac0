//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"encoding/hex"
	"os"
	"strings"
)

// UnknownDeviceID is reported when no identity source is available.
const UnknownDeviceID = "unknown"

// machineIDPaths are tried in order.
//
//nolint:gochecknoglobals // Overridden in tests.
var machineIDPaths = []string{"/etc/machine-id", "/var/lib/dbus/machine-id"}

// DeviceID returns a stable hex identifier of this host: the override when
// set, else the machine id, else the hex-encoded hostname, else "unknown".
func DeviceID(override string) string {
	if id := strings.TrimSpace(override); id != "" {
		return id
	}

	for _, path := range machineIDPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		if id := strings.TrimSpace(string(data)); isHex(id) {
			return strings.ToLower(id)
		}
	}

	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return UnknownDeviceID
	}

	return hex.EncodeToString([]byte(hostname))
}

func isHex(s string) bool {
	if s == "" {
		return false
	}

	_, err := hex.DecodeString(s)

	return err == nil
}
