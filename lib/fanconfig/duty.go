// Copyright 2026 The rpi-fan-util Authors
// SPDX-License-Identifier: Apache-2.0

package fanconfig

import "fmt"

// Period is the fixed PWM period in nanoseconds. 50ms gives a 20 Hz
// carrier; a duty value of Period holds the signal high for the whole
// period (fan at full speed).
const Period = 50000000

// DutyCycle is the number of nanoseconds per period the PWM signal is
// held high, in [0, Period]. It travels to the driver through the raw
// control channel as a 64-bit value, bypassing the configuration byte.
type DutyCycle uint64

// DutyFromPercent maps a caller-facing percentage onto the driver's
// nanosecond scale: duty = percent * Period / 100. The mapping is linear
// and monotonic, with 0 and 100 mapping to 0 and Period exactly.
func DutyFromPercent(percent int) (DutyCycle, error) {
	if percent < 0 || percent > 100 {
		return 0, fmt.Errorf("duty cycle percentage %d out of range [0, 100]", percent)
	}
	return DutyCycle(uint64(percent) * Period / 100), nil
}
