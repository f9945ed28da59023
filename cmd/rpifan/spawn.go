// Copyright 2026 The rpi-fan-util Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/not-forest/rpi-fan-util/lib/config"
	"github.com/not-forest/rpi-fan-util/lib/fanconfig"
	"github.com/not-forest/rpi-fan-util/lib/fandev"
	"github.com/not-forest/rpi-fan-util/lib/runfile"
)

// governorBinaryName is the governor binary the CLI spawns. The name is
// what the kernel reports in /proc/<pid>/comm, which the run file
// liveness check matches against.
const governorBinaryName = "rpifan-governor"

// stopPollInterval is how often --kill re-checks whether a signalled
// governor has exited.
const stopPollInterval = 50 * time.Millisecond

// startGovernor spawns the governor as a detached process and records
// it in the run file. The open device descriptor is passed to the child
// as fd 3 so the governor keeps writing even if the device node is
// replaced later. The parent's copy closes on return; the child's
// duplicate stays valid.
func startGovernor(logger *slog.Logger, cfg *config.Config, intervalMS uint64, debug bool) (int, error) {
	interval := time.Duration(intervalMS) * time.Millisecond

	dev, err := fandev.Open(cfg.Device)
	if err != nil {
		return 0, err
	}
	defer dev.Close()

	// The governor drives the fan through hardware PWM, so the
	// currently configured pin must be one of the four PWM-capable
	// pins. Checking here keeps a governor from spinning against a pin
	// it can never control.
	current, err := dev.ReadConfig()
	if err != nil {
		return 0, err
	}
	if !fanconfig.IsPWMCapable(int(current.GPIO)) {
		return 0, fmt.Errorf("configured gpio %d is not PWM-capable (move the fan to pin 12, 13, 18 or 19 first)", current.GPIO)
	}

	runPath := cfg.RunFilePath()
	if state, running, err := runfile.Check(runPath); err != nil {
		return 0, err
	} else if running {
		return 0, fmt.Errorf("adaptive governor already running (pid %d)", state.PID)
	}

	binary, err := cfg.GovernorBinaryPath(governorBinaryName)
	if err != nil {
		return 0, err
	}
	if err := cfg.EnsureRunDir(); err != nil {
		return 0, err
	}

	args := []string{
		"-device-fd", "3",
		"-device", cfg.Device,
		"-thermal", cfg.ThermalZone,
		"-interval", interval.String(),
	}
	if debug {
		args = append(args, "-debug")
	}

	cmd := exec.Command(binary, args...)
	cmd.Stderr = os.Stderr // governor logs to stderr
	cmd.ExtraFiles = []*os.File{dev.File()}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("starting governor process: %w", err)
	}
	pid := cmd.Process.Pid

	state := runfile.State{
		PID:       pid,
		Comm:      runfile.TaskComm(binary),
		Device:    cfg.Device,
		Interval:  interval,
		StartedAt: time.Now(),
	}
	if err := runfile.Write(runPath, state); err != nil {
		// Without a run file the governor cannot be found or stopped
		// later. Take the child back down instead of leaking it.
		cmd.Process.Kill()
		cmd.Wait()
		return 0, fmt.Errorf("recording governor run state: %w", err)
	}

	// The CLI exits without waiting on the child; once the CLI is gone
	// the governor is reparented to init, which reaps it on exit.
	cmd.Process.Release()

	logger.Debug("governor spawned",
		"pid", pid,
		"binary", binary,
		"device", cfg.Device,
		"interval", interval)
	return pid, nil
}

// stopGovernor terminates a running governor: verify the run file
// points at a live governor process, send SIGTERM, and poll until the
// process is gone or wait elapses. The run file is removed only after
// the exit is confirmed.
func stopGovernor(logger *slog.Logger, runPath string, wait time.Duration) (runfile.State, error) {
	state, running, err := runfile.Check(runPath)
	if err != nil {
		return runfile.State{}, err
	}
	if !running {
		return runfile.State{}, errors.New("no adaptive governor is running")
	}

	if err := unix.Kill(state.PID, unix.SIGTERM); err != nil {
		return runfile.State{}, fmt.Errorf("signalling governor pid %d: %w", state.PID, err)
	}
	logger.Debug("sent SIGTERM", "pid", state.PID)

	deadline := time.Now().Add(wait)
	for runfile.Alive(state.PID) {
		if time.Now().After(deadline) {
			return runfile.State{}, fmt.Errorf("governor pid %d still running %s after SIGTERM", state.PID, wait)
		}
		time.Sleep(stopPollInterval)
	}
	logger.Debug("governor exited", "pid", state.PID)

	if err := runfile.Clear(runPath); err != nil {
		return runfile.State{}, err
	}
	return state, nil
}
