// Copyright 2026 The rpi-fan-util Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/not-forest/rpi-fan-util/lib/cli"
	"github.com/not-forest/rpi-fan-util/lib/clock"
	"github.com/not-forest/rpi-fan-util/lib/fandev"
	"github.com/not-forest/rpi-fan-util/lib/governor"
	"github.com/not-forest/rpi-fan-util/lib/process"
	"github.com/not-forest/rpi-fan-util/lib/thermal"
	"github.com/not-forest/rpi-fan-util/lib/version"
)

// options is the parsed flag set for one governor run.
type options struct {
	deviceFD    int
	devicePath  string
	thermalPath string
	interval    time.Duration
	debug       bool
	showVersion bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Printf("rpifan-governor %s\n", version.Info())
		return nil
	}

	logger := cli.NewLogger(opts.debug)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runGovernor(ctx, opts, logger); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("governor stopped")
			return nil
		}
		return err
	}
	return nil
}

// parseArgs parses the daemon's flags. The interval must be positive
// unless the invocation only asks for the version.
func parseArgs(args []string) (options, error) {
	opts := options{}
	fs := flag.NewFlagSet("rpifan-governor", flag.ContinueOnError)
	fs.IntVar(&opts.deviceFD, "device-fd", -1, "inherited descriptor for the already-open fan device (-1: open -device instead)")
	fs.StringVar(&opts.devicePath, "device", "/dev/rpifan", "fan device node")
	fs.StringVar(&opts.thermalPath, "thermal", "/sys/class/thermal/thermal_zone0/temp", "thermal zone temperature file")
	fs.DurationVar(&opts.interval, "interval", time.Second, "tick interval between temperature samples")
	fs.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	fs.BoolVar(&opts.showVersion, "version", false, "print version information and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if !opts.showVersion && opts.interval <= 0 {
		return options{}, fmt.Errorf("-interval must be positive, got %v", opts.interval)
	}
	return opts, nil
}

// runGovernor opens (or adopts) the device and sensor and drives the
// control loop until ctx is cancelled or the sensor fails.
func runGovernor(ctx context.Context, opts options, logger *slog.Logger) error {
	device, err := openDevice(opts)
	if err != nil {
		return err
	}
	defer device.Close()

	sensor, err := thermal.Open(opts.thermalPath)
	if err != nil {
		return err
	}
	defer sensor.Close()

	logger.Info("governor running",
		"device", device.Path(),
		"thermal", sensor.Path(),
		"interval", opts.interval,
		"pid", os.Getpid())

	gov := governor.New(device, sensor, opts.interval, clock.Real(), logger)
	return gov.Run(ctx)
}

// openDevice returns the device handle: the descriptor inherited from
// the spawning process when one was passed, otherwise a fresh open of
// the device node.
func openDevice(opts options) (*fandev.Device, error) {
	if opts.deviceFD >= 0 {
		return fandev.FromFile(os.NewFile(uintptr(opts.deviceFD), opts.devicePath)), nil
	}
	return fandev.Open(opts.devicePath)
}
