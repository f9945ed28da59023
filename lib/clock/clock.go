// Copyright 2026 The rpi-fan-util Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction so the governor
// loop can be tested without real sleeps. Production code injects
// Real(); tests inject Fake() and drive it with Advance.
//
// The governor registers its inter-tick wait with After; a test blocks
// on WaitForTimers until the wait is registered, then calls Advance to
// fire it deterministically. That removes the registration/advance race
// that plagues tests synchronizing on real time.
package clock

import "time"

// Clock is the subset of the time package the fan tooling uses.
// Functions that would call time.Now, time.After, or time.Sleep accept
// a Clock instead.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once
	// duration d has elapsed. If d <= 0 the channel receives
	// immediately.
	After(d time.Duration) <-chan time.Time

	// Sleep pauses the calling goroutine for at least duration d.
	Sleep(d time.Duration)
}
