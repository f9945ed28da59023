// Copyright 2026 The rpi-fan-util Authors
// SPDX-License-Identifier: Apache-2.0

// Package governor implements the adaptive thermal control loop. The
// governor has no fixed maximum-temperature constant: it learns the
// hottest sample observed during its run (the ceiling) and treats that
// as the 100% duty reference, so the fan runs at full speed exactly at
// the historical peak and scales down proportionally below it. The
// ceiling only rises; sustained cooling never lowers the reference.
package governor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/not-forest/rpi-fan-util/lib/clock"
	"github.com/not-forest/rpi-fan-util/lib/fanconfig"
)

// DutyWriter pushes raw duty-cycle values to the fan driver's control
// channel. *fandev.Device implements it.
type DutyWriter interface {
	WriteDuty(duty fanconfig.DutyCycle) error
}

// Sensor yields instantaneous temperature samples in millidegrees.
// *thermal.Sensor implements it.
type Sensor interface {
	Sample() (int64, error)
}

// Governor runs the control loop: sample, raise the ceiling, derive a
// duty cycle, write it, wait one interval. It owns no descriptors; the
// caller supplies the device and sensor and closes them after Run
// returns.
type Governor struct {
	device   DutyWriter
	sensor   Sensor
	interval time.Duration
	clock    clock.Clock
	logger   *slog.Logger

	// ceiling is the hottest sample seen this run, in millidegrees.
	// Monotonically non-decreasing; zero until the first positive
	// sample arrives.
	ceiling int64
}

// New returns a Governor ticking at the given interval. The interval
// must already be validated positive by the caller.
func New(device DutyWriter, sensor Sensor, interval time.Duration, clk clock.Clock, logger *slog.Logger) *Governor {
	return &Governor{
		device:   device,
		sensor:   sensor,
		interval: interval,
		clock:    clk,
		logger:   logger,
	}
}

// Run executes the loop until ctx is cancelled or the sensor fails.
// The first tick runs immediately; each later tick follows the
// previous one by the configured interval. A failed duty write is
// reported and the loop continues; a failed sample terminates the run,
// since there is no degraded mode without a sensor. On cancellation
// Run returns ctx.Err() without writing a parting duty value.
func (g *Governor) Run(ctx context.Context) error {
	for {
		if err := g.tick(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-g.clock.After(g.interval):
		}
	}
}

func (g *Governor) tick() error {
	sample, err := g.sensor.Sample()
	if err != nil {
		return fmt.Errorf("sampling temperature: %w", err)
	}
	if sample > g.ceiling {
		g.ceiling = sample
		g.logger.Debug("raised temperature ceiling", "ceiling", g.ceiling)
	}
	if g.ceiling <= 0 {
		// Nothing positive observed yet; no reference to scale against.
		return nil
	}
	duty := g.dutyFor(sample)
	if err := g.device.WriteDuty(duty); err != nil {
		// Report and keep looping.
		g.logger.Error("duty write failed", "duty", uint64(duty), "error", err)
		return nil
	}
	g.logger.Debug("duty updated", "sample", sample, "ceiling", g.ceiling, "duty", uint64(duty))
	return nil
}

// dutyFor scales a sample against the ceiling: exactly Period at the
// ceiling, proportionally less below it, clamped at zero for samples
// that have gone negative since the ceiling was learned.
func (g *Governor) dutyFor(sample int64) fanconfig.DutyCycle {
	if sample <= 0 {
		return 0
	}
	return fanconfig.DutyCycle(sample * fanconfig.Period / g.ceiling)
}
