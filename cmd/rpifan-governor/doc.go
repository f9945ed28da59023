// Copyright 2026 The rpi-fan-util Authors
// SPDX-License-Identifier: Apache-2.0

// Rpifan-governor is the adaptive fan control daemon. It samples the
// thermal zone on a fixed cadence, learns the hottest temperature seen
// during its run, and continuously writes a duty cycle proportional to
// the current temperature relative to that ceiling through the fan
// device's raw control channel.
//
// The rpifan CLI normally spawns it detached, passing the already-open
// device node as an inherited descriptor (-device-fd) so the governor
// never reopens the device. Run standalone, it opens -device itself.
// The process runs until SIGTERM or SIGINT, or until the thermal
// sensor fails; duty write failures are logged and the loop continues.
package main
