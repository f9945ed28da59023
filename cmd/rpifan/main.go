// Copyright 2026 The rpi-fan-util Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/not-forest/rpi-fan-util/lib/cli"
	"github.com/not-forest/rpi-fan-util/lib/config"
	"github.com/not-forest/rpi-fan-util/lib/fanconfig"
	"github.com/not-forest/rpi-fan-util/lib/fandev"
	"github.com/not-forest/rpi-fan-util/lib/process"
	"github.com/not-forest/rpi-fan-util/lib/version"
)

const (
	// stopTimeout bounds how long --kill waits for a signalled
	// governor to exit before giving up.
	stopTimeout = 3 * time.Second

	// maxIntervalMS is the largest --adaptive value whose millisecond
	// interval still fits in a time.Duration.
	maxIntervalMS = uint64(math.MaxInt64 / int64(time.Millisecond))
)

// options holds the parsed command line. The *Set booleans distinguish
// an absent flag from an explicit zero so that, say, --mode 0 selects
// mode 0 instead of being mistaken for "no action".
type options struct {
	gpio    int
	gpioSet bool

	mode    int
	modeSet bool

	duty    int
	dutySet bool

	intervalMS  uint64
	adaptiveSet bool

	kill bool

	rawByte    byte
	rawByteSet bool

	configPath  string
	debug       bool
	showVersion bool
	showHelp    bool
}

// actionCount is the number of primary actions the command line
// selects. Exactly one is required.
func (o *options) actionCount() int {
	count := 0
	for _, set := range []bool{o.gpioSet, o.modeSet, o.dutySet, o.adaptiveSet, o.kill, o.rawByteSet} {
		if set {
			count++
		}
	}
	return count
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
	if opts.showHelp {
		printHelp(os.Stderr)
		return nil
	}
	if opts.showVersion {
		fmt.Printf("rpifan %s\n", version.Info())
		return nil
	}

	switch count := opts.actionCount(); {
	case count == 0:
		return errors.New("no action given\n\nRun 'rpifan --help' for usage.")
	case count > 1:
		return errors.New("more than one action given, pick one\n\nRun 'rpifan --help' for usage.")
	}

	logger := cli.NewLogger(opts.debug)

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	switch {
	case opts.kill:
		state, err := stopGovernor(logger, cfg.RunFilePath(), stopTimeout)
		if err != nil {
			return err
		}
		fmt.Printf("adaptive governor stopped (pid %d)\n", state.PID)
		return nil

	case opts.adaptiveSet:
		pid, err := startGovernor(logger, cfg, opts.intervalMS, opts.debug)
		if err != nil {
			return err
		}
		fmt.Printf("adaptive governor started (pid %d)\n", pid)
		return nil

	case opts.gpioSet:
		return updateConfig(logger, cfg.Device, func(current fanconfig.Config) (fanconfig.Config, error) {
			return current.WithGPIO(opts.gpio)
		})

	case opts.modeSet:
		return updateConfig(logger, cfg.Device, func(current fanconfig.Config) (fanconfig.Config, error) {
			return current.WithMode(opts.mode)
		})

	case opts.dutySet:
		return writeDuty(logger, cfg.Device, opts.duty)

	default:
		return writeRawConfig(logger, cfg.Device, opts.rawByte)
	}
}

// parseArgs parses and validates the command line. Range checks happen
// here so an out-of-range value is rejected before the device is ever
// opened.
func parseArgs(args []string) (*options, error) {
	opts := &options{}

	if len(args) > 0 && isHelpArg(args[0]) {
		opts.showHelp = true
		return opts, nil
	}

	flagSet := newFlagSet(opts)

	// Suppress pflag's own error and usage output; errors are formatted
	// below and help has its own printer.
	flagSet.SetOutput(io.Discard)
	flagSet.Usage = func() {}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			opts.showHelp = true
			return opts, nil
		}
		return nil, fmt.Errorf("%s\n\nRun 'rpifan --help' for usage.", err)
	}

	opts.gpioSet = flagSet.Changed("gpio")
	opts.modeSet = flagSet.Changed("mode")
	opts.dutySet = flagSet.Changed("duty")
	opts.adaptiveSet = flagSet.Changed("adaptive")

	switch rest := flagSet.Args(); len(rest) {
	case 0:
	case 1:
		value, err := strconv.Atoi(rest[0])
		if err != nil {
			return nil, fmt.Errorf("config byte %q is not a number", rest[0])
		}
		if value < 0 || value > 255 {
			return nil, fmt.Errorf("config byte %d out of range [0, 255]", value)
		}
		opts.rawByte = byte(value)
		opts.rawByteSet = true
	default:
		return nil, fmt.Errorf("expected at most one config byte argument, got %d", len(rest))
	}

	if opts.gpioSet {
		if _, err := (fanconfig.Config{}).WithGPIO(opts.gpio); err != nil {
			return nil, err
		}
	}
	if opts.modeSet {
		if _, err := (fanconfig.Config{}).WithMode(opts.mode); err != nil {
			return nil, err
		}
	}
	if opts.dutySet {
		if _, err := fanconfig.DutyFromPercent(opts.duty); err != nil {
			return nil, err
		}
	}
	if opts.adaptiveSet {
		if opts.intervalMS == 0 {
			return nil, errors.New("adaptive sampling interval must be positive")
		}
		if opts.intervalMS > maxIntervalMS {
			return nil, fmt.Errorf("adaptive sampling interval %dms is too large", opts.intervalMS)
		}
	}

	return opts, nil
}

func isHelpArg(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "help"
}

// newFlagSet binds the full flag surface to opts. The help printer
// builds a throwaway copy for its defaults listing.
func newFlagSet(opts *options) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("rpifan", pflag.ContinueOnError)
	flagSet.SortFlags = false

	flagSet.IntVarP(&opts.gpio, "gpio", "g", 0, "move the fan signal to GPIO `pin` (2-30)")
	flagSet.IntVarP(&opts.mode, "mode", "p", 0, "select PWM `mode` (0-7)")
	flagSet.IntVarP(&opts.duty, "duty", "c", 0, "hold a constant duty cycle of `percent` (0-100)")
	flagSet.Uint64VarP(&opts.intervalMS, "adaptive", "a", 0, "start the adaptive governor, sampling the CPU temperature every `ms` milliseconds")
	flagSet.BoolVarP(&opts.kill, "kill", "k", false, "stop the running adaptive governor")
	flagSet.StringVar(&opts.configPath, "config", "", "load settings from YAML `file` (default $RPIFAN_CONFIG)")
	flagSet.BoolVarP(&opts.debug, "debug", "d", false, "enable debug logging")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version and exit")

	return flagSet
}

// loadConfig loads the YAML configuration: the explicit --config path
// when given, otherwise $RPIFAN_CONFIG, otherwise defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// updateConfig applies a read-modify-write of the configuration byte:
// read the current value, derive the target through mutate, write it
// back. The field mutate leaves alone keeps its previously stored
// value.
func updateConfig(logger *slog.Logger, device string, mutate func(fanconfig.Config) (fanconfig.Config, error)) error {
	dev, err := fandev.Open(device)
	if err != nil {
		return err
	}
	defer dev.Close()

	current, err := dev.ReadConfig()
	if err != nil {
		return err
	}
	updated, err := mutate(current)
	if err != nil {
		return err
	}
	if err := dev.WriteConfig(updated); err != nil {
		return err
	}
	logger.Debug("configuration updated", "old", current, "new", updated)
	return nil
}

// writeDuty pushes a constant duty cycle through the raw control
// channel. The configuration byte is never read or written on this
// path.
func writeDuty(logger *slog.Logger, device string, percent int) error {
	duty, err := fanconfig.DutyFromPercent(percent)
	if err != nil {
		return err
	}

	dev, err := fandev.Open(device)
	if err != nil {
		return err
	}
	defer dev.Close()

	if err := dev.WriteDuty(duty); err != nil {
		return err
	}
	logger.Debug("duty cycle set", "percent", percent, "duty", uint64(duty))
	return nil
}

// writeRawConfig replaces the whole packed configuration byte, the
// legacy combined invocation form. The stored value is read first so
// the old and new configuration both appear in the diagnostic.
func writeRawConfig(logger *slog.Logger, device string, raw byte) error {
	dev, err := fandev.Open(device)
	if err != nil {
		return err
	}
	defer dev.Close()

	current, err := dev.ReadConfig()
	if err != nil {
		return err
	}
	updated := fanconfig.Decode(raw)
	if err := dev.WriteConfig(updated); err != nil {
		return err
	}
	logger.Debug("configuration byte written", "old", current, "new", updated)
	return nil
}
