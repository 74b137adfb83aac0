package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/light-orchestra/internal/config"
	"github.com/oshokin/light-orchestra/internal/service/common"
	"github.com/oshokin/light-orchestra/internal/service/server"
)

// instance is a running orchestra server under test.
type instance struct {
	// grpcAddress is the gRPC endpoint.
	grpcAddress string
	// httpURL is the HTTP base URL.
	httpURL string
	// sensorPath is the file the sysfs sensor reads.
	sensorPath string
}

// reservePort returns a free localhost address.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	require.NoError(t, l.Close())

	return addr
}

// setReading writes a raw sensor value.
func (i *instance) setReading(t *testing.T, raw int) {
	t.Helper()

	require.NoError(t, os.WriteFile(i.sensorPath, []byte(fmt.Sprintf("%d\n", raw)), 0o600))
}

// startServer runs the real server with a file sensor and the log device.
func startServer(t *testing.T) *instance {
	t.Helper()

	dir := t.TempDir()
	inst := &instance{
		grpcAddress: reservePort(t),
		sensorPath:  filepath.Join(dir, "illuminance"),
	}

	httpAddress := reservePort(t)
	inst.httpURL = "http://" + httpAddress

	inst.setReading(t, 0)

	cfgPath := filepath.Join(dir, config.DefaultConfigFilename)
	require.NoError(t, config.Save(cfgPath, &config.Config{
		ServerAddress: inst.grpcAddress,
		HTTPAddress:   httpAddress,
		Timeout:       3 * time.Second,
		LogLevel:      "error",
		DeviceID:      "integration",
		Arbiter: config.Arbiter{
			Tick:           10 * time.Millisecond,
			SuppressMargin: 100 * time.Millisecond,
		},
		Sensor: config.Sensor{
			Kind: config.SensorSysfs,
			Path: inst.sensorPath,
		},
		Device: config.Device{Kind: config.DeviceLog},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- server.Run(ctx, &server.Options{
			ConfigPath:    cfgPath,
			ListenAddress: inst.grpcAddress,
		})
	}()

	t.Cleanup(func() {
		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	require.Eventually(t, func() bool {
		resp, err := http.Get(inst.httpURL + "/health") //nolint:noctx // Test probe.
		if err != nil {
			return false
		}

		_ = resp.Body.Close()

		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 20*time.Millisecond)

	return inst
}

// getJSON fetches a JSON object over HTTP.
func getJSON(t *testing.T, url string) map[string]any {
	t.Helper()

	resp, err := http.Get(url) //nolint:noctx // Test helper.
	require.NoError(t, err)

	defer func() {
		_ = resp.Body.Close()
	}()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return body
}

// postJSON sends a JSON body and returns the status code and decoded response.
func postJSON(t *testing.T, url, body string) (int, map[string]any) {
	t.Helper()

	resp, err := http.Post(url, "application/json", strings.NewReader(body)) //nolint:noctx // Test helper.
	require.NoError(t, err)

	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded), string(data))

	return resp.StatusCode, decoded
}

// TestServer_AmbientAndCommands drives the whole process over HTTP: the sensor
// plays when idle, a command takes over, and stop hands the device back.
func TestServer_AmbientAndCommands(t *testing.T) {
	t.Parallel()

	inst := startServer(t)
	statusURL := inst.httpURL + "/status"

	// Darkness keeps the instrument idle.
	require.Equal(t, "idle", getJSON(t, statusURL)["state"])

	inst.setReading(t, 65000)
	require.Eventually(t, func() bool {
		return getJSON(t, statusURL)["state"] == "ambient_active"
	}, 2*time.Second, 20*time.Millisecond)

	sensorBody := getJSON(t, inst.httpURL+"/sensor")
	require.InDelta(t, 65000, sensorBody["raw"], 0)

	code, body := postJSON(t, inst.httpURL+"/tone", `{"freq": 440, "ms": 5000, "duty": 0.25}`)
	require.Equal(t, http.StatusAccepted, code)
	require.Equal(t, true, body["playing"])

	status := getJSON(t, statusURL)
	require.Equal(t, "command_active", status["state"])
	require.Equal(t, true, status["suppressed"])
	require.InDelta(t, 440, status["frequency_hz"], 0.01)
	require.Equal(t, "A4", status["note"])

	code, body = postJSON(t, inst.httpURL+"/stop", `{}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "All sounds stopped.", body["message"])

	// Stop lifts suppression, so the bright sensor takes over again.
	require.Eventually(t, func() bool {
		return getJSON(t, statusURL)["state"] == "ambient_active"
	}, 2*time.Second, 20*time.Millisecond)

	code, body = postJSON(t, inst.httpURL+"/melody", `{"notes": [{"freq": 0, "ms": 10}]}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, body["error"], "notes[0].freq")
}

// TestServer_GRPCClient exercises the ctl client against a running server.
func TestServer_GRPCClient(t *testing.T) {
	t.Parallel()

	inst := startServer(t)
	ctx := context.Background()

	c, err := common.Dial(ctx, inst.grpcAddress, common.WithCallTimeout(3*time.Second))
	require.NoError(t, err)

	defer func() {
		_ = c.Close()
	}()

	health, err := c.Health(ctx)
	require.NoError(t, err)
	require.Equal(t, "integration", health.GetFields()["device_id"].GetStringValue())

	accepted, err := c.Melody(ctx, []common.Note{
		{FrequencyHz: 262, Ms: 500},
		{FrequencyHz: 330, Ms: 500},
	}, 20)
	require.NoError(t, err)
	require.InDelta(t, 2, accepted.GetFields()["queued"].GetNumberValue(), 0)

	status, err := c.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, "command_active", status.GetFields()["state"].GetStringValue())
	require.Equal(t, "sequence", status.GetFields()["command_kind"].GetStringValue())

	_, err = c.Tone(ctx, -5, 100, -1)
	require.Error(t, err)

	_, err = c.Stop(ctx)
	require.NoError(t, err)

	status, err = c.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, "idle", status.GetFields()["state"].GetStringValue())
}
