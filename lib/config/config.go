// Copyright 2026 The rpi-fan-util Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the fan tooling.
//
// Configuration is a single optional YAML file named by the
// RPIFAN_CONFIG environment variable or the --config flag. Every field
// has a working default, so the tools run with no file at all — the
// file exists for systems whose device node, thermal zone, or run
// directory live somewhere non-standard. Flags never override file
// values; the file supplies paths, flags supply the action.
package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// runFileName is the run file's name under RunDir.
const runFileName = "governor.json"

// Config holds the paths the fan tooling operates on.
type Config struct {
	// Device is the fan driver's device node.
	Device string `yaml:"device"`

	// ThermalZone is the kernel temperature file the governor samples.
	ThermalZone string `yaml:"thermal_zone"`

	// RunDir is where the governor run file is kept.
	RunDir string `yaml:"run_dir"`

	// GovernorBinary optionally pins the governor binary to an
	// explicit path. When empty, the binary is resolved next to the
	// running executable and then on PATH.
	GovernorBinary string `yaml:"governor_binary"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Device:      "/dev/rpifan",
		ThermalZone: "/sys/class/thermal/thermal_zone0/temp",
		RunDir:      "/run/rpifan",
	}
}

// Load loads configuration from the RPIFAN_CONFIG environment variable
// when it is set, and returns the defaults otherwise.
func Load() (*Config, error) {
	path := os.Getenv("RPIFAN_CONFIG")
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from an explicit file path, applied on
// top of the defaults. Fields absent from the file keep their default
// values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Device == "" {
		errs = append(errs, fmt.Errorf("device is required"))
	}
	if c.ThermalZone == "" {
		errs = append(errs, fmt.Errorf("thermal_zone is required"))
	}
	if c.RunDir == "" {
		errs = append(errs, fmt.Errorf("run_dir is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// RunFilePath returns the governor run file's path under RunDir.
func (c *Config) RunFilePath() string {
	return filepath.Join(c.RunDir, runFileName)
}

// EnsureRunDir creates RunDir if it does not exist. /run is cleared on
// boot, so the CLI recreates the directory before every spawn.
func (c *Config) EnsureRunDir() error {
	if err := os.MkdirAll(c.RunDir, 0755); err != nil {
		return fmt.Errorf("creating run directory %s: %w", c.RunDir, err)
	}
	return nil
}

// GovernorBinaryPath resolves the governor binary: the explicit
// configured path when set, then a sibling of the running executable,
// then PATH. The sibling lookup keeps an installed cli/governor pair
// working without any configuration.
func (c *Config) GovernorBinaryPath(name string) (string, error) {
	if c.GovernorBinary != "" {
		if _, err := os.Stat(c.GovernorBinary); err != nil {
			return "", fmt.Errorf("configured governor binary: %w", err)
		}
		return c.GovernorBinary, nil
	}

	if self, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(self), name)
		if _, err := os.Stat(sibling); err == nil {
			return sibling, nil
		}
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found next to the executable or on PATH", name)
	}
	return path, nil
}
