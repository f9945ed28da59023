// Copyright 2026 The rpi-fan-util Authors
// SPDX-License-Identifier: Apache-2.0

// Command rpifan controls the Raspberry Pi fan driver from the command
// line. Each invocation performs exactly one action: move the fan to a
// different GPIO pin, select a PWM mode, hold a constant duty cycle,
// start the adaptive governor as a detached background process, or stop
// a running governor. A bare numeric argument writes the packed
// configuration byte directly, the legacy combined form.
//
// Pin and mode changes go through a read-modify-write of the driver's
// configuration byte so the untouched field keeps its value. The duty
// cycle travels over the driver's raw control channel and never touches
// the configuration byte.
package main
