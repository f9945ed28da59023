// Copyright 2026 The rpi-fan-util Authors
// SPDX-License-Identifier: Apache-2.0

// Package fanconfig packs and unpacks the single configuration byte the
// fan driver exchanges with user space. The byte carries two fields: the
// GPIO pin driving the fan in the low five bits and the PWM mode in the
// high three. The package also owns the duty-cycle domain: the fixed PWM
// period and the percentage mapping used by the direct duty channel.
//
// Everything here is pure computation over the byte; device I/O lives in
// lib/fandev.
package fanconfig

import "fmt"

const (
	gpioBits = 5
	gpioMask = 1<<gpioBits - 1

	minGPIO = 2
	maxGPIO = 30
	maxMode = 7
)

// Config is the unpacked form of the driver's configuration byte.
type Config struct {
	// GPIO is the pin number generating the PWM signal (5 bits).
	GPIO uint8
	// Mode is the driver's PWM mode selector (3 bits). Mode 0 is the
	// legacy "unset" sentinel from the combined single-value form and is
	// accepted as a valid stored value.
	Mode uint8
}

// Decode unpacks a configuration byte. It is total over [0, 255]: any
// byte, including one holding an out-of-range pin written through the
// legacy combined form, decodes without error.
func Decode(b byte) Config {
	return Config{
		GPIO: b & gpioMask,
		Mode: b >> gpioBits,
	}
}

// Encode packs the configuration back into the wire byte. Both fields
// fit their widths by construction, so Encode is the exact inverse of
// Decode.
func (c Config) Encode() byte {
	return c.GPIO&gpioMask | c.Mode<<gpioBits
}

// WithGPIO returns a copy of the configuration with the pin replaced.
// The mode field is preserved untouched. Pins outside [2, 30] are
// rejected before any device I/O can happen.
func (c Config) WithGPIO(gpio int) (Config, error) {
	if gpio < minGPIO || gpio > maxGPIO {
		return Config{}, fmt.Errorf("gpio pin %d out of range [%d, %d]", gpio, minGPIO, maxGPIO)
	}
	c.GPIO = uint8(gpio)
	return c, nil
}

// WithMode returns a copy of the configuration with the PWM mode
// replaced. The pin field is preserved untouched. Modes outside [0, 7]
// are rejected.
func (c Config) WithMode(mode int) (Config, error) {
	if mode < 0 || mode > maxMode {
		return Config{}, fmt.Errorf("pwm mode %d out of range [0, %d]", mode, maxMode)
	}
	c.Mode = uint8(mode)
	return c, nil
}

// IsPWMCapable reports whether the pin is wired to the SoC's hardware
// PWM circuitry. Only these four pins can carry the signal the adaptive
// governor drives; all other pins, valid or not for manual
// configuration, are rejected at governor start.
func IsPWMCapable(gpio int) bool {
	switch gpio {
	case 12, 13, 18, 19:
		return true
	}
	return false
}

// String renders the configuration for diagnostics.
func (c Config) String() string {
	return fmt.Sprintf("gpio=%d mode=%d", c.GPIO, c.Mode)
}
