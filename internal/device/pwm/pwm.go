package pwm

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// DefaultRoot is where the kernel exposes PWM chips.
const DefaultRoot = "/sys/class/pwm"

// exportTimeout bounds the wait for udev to create the channel directory.
const exportTimeout = time.Second

// ErrInvalidFrequency is returned for non-positive or non-finite frequencies.
var ErrInvalidFrequency = errors.New("invalid pwm frequency")

// Channel is a device.Device backed by one sysfs PWM channel.
type Channel struct {
	// dir is the channel directory, e.g. /sys/class/pwm/pwmchip0/pwm0.
	dir string

	// periodNs is the programmed period, 0 before the first frequency.
	periodNs int64
	// duty is the requested duty fraction, applied on every retune.
	duty float64
	// enabled mirrors the enable attribute.
	enabled bool
}

// Open exports the channel if needed and returns it disabled.
func Open(root string, chip, channel int) (*Channel, error) {
	if root == "" {
		root = DefaultRoot
	}

	chipDir := filepath.Join(root, "pwmchip"+strconv.Itoa(chip))
	dir := filepath.Join(chipDir, "pwm"+strconv.Itoa(channel))

	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		if err = writeAttr(chipDir, "export", strconv.Itoa(channel)); err != nil {
			return nil, err
		}

		if err = waitForDir(dir, exportTimeout); err != nil {
			return nil, err
		}
	}

	c := &Channel{dir: dir}

	if err := c.write("enable", "0"); err != nil {
		return nil, err
	}

	return c, nil
}

// SetFrequency implements device.Driver. The duty cycle is rescaled to the new period.
func (c *Channel) SetFrequency(hz float64) error {
	if hz <= 0 || math.IsNaN(hz) || math.IsInf(hz, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidFrequency, hz)
	}

	period := int64(math.Round(float64(time.Second) / hz))
	if period == c.periodNs {
		return nil
	}

	// The kernel rejects a period shorter than the current duty cycle.
	if err := c.write("duty_cycle", "0"); err != nil {
		return err
	}

	if err := c.write("period", strconv.FormatInt(period, 10)); err != nil {
		return err
	}

	c.periodNs = period

	if !c.enabled {
		return nil
	}

	return c.writeDuty()
}

// SetDutyCycle implements device.Driver and enables output.
func (c *Channel) SetDutyCycle(fraction float64) error {
	if math.IsNaN(fraction) {
		fraction = 0
	}

	c.duty = min(max(fraction, 0), 1)

	if err := c.writeDuty(); err != nil {
		return err
	}

	if c.enabled {
		return nil
	}

	if err := c.write("enable", "1"); err != nil {
		return err
	}

	c.enabled = true

	return nil
}

// Silence implements device.Driver by dropping the duty cycle to zero.
func (c *Channel) Silence() error {
	if !c.enabled {
		return nil
	}

	return c.write("duty_cycle", "0")
}

// Close disables the channel.
func (c *Channel) Close() error {
	c.enabled = false

	return c.write("enable", "0")
}

func (c *Channel) writeDuty() error {
	dutyNs := int64(math.Round(float64(c.periodNs) * c.duty))

	return c.write("duty_cycle", strconv.FormatInt(dutyNs, 10))
}

func (c *Channel) write(name, value string) error {
	return writeAttr(c.dir, name, value)
}

// writeAttr writes one sysfs attribute.
func writeAttr(dir, name, value string) error {
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, []byte(value), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

// waitForDir polls until dir exists or timeout elapses.
func waitForDir(dir string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		_, err := os.Stat(dir)
		if err == nil {
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("pwm channel %s did not appear: %w", dir, err)
		}

		time.Sleep(10 * time.Millisecond)
	}
}
