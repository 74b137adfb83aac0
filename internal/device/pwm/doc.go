// Package pwm drives a hardware PWM channel through the Linux sysfs interface
// (/sys/class/pwm/pwmchipN/pwmM), typically wired to a piezo buzzer.
package pwm
