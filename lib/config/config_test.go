// Copyright 2026 The rpi-fan-util Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Device != "/dev/rpifan" {
		t.Errorf("Device = %q, want /dev/rpifan", cfg.Device)
	}
	if cfg.ThermalZone != "/sys/class/thermal/thermal_zone0/temp" {
		t.Errorf("ThermalZone = %q, want the thermal_zone0 temp file", cfg.ThermalZone)
	}
	if cfg.RunDir != "/run/rpifan" {
		t.Errorf("RunDir = %q, want /run/rpifan", cfg.RunDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config fails validation: %v", err)
	}
}

func TestLoadWithoutEnvironment(t *testing.T) {
	t.Setenv("RPIFAN_CONFIG", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Device != Default().Device {
		t.Errorf("Load without RPIFAN_CONFIG got Device %q, want default", cfg.Device)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rpifan.yaml")
	if err := os.WriteFile(path, []byte("device: /dev/fan0\n"), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	t.Setenv("RPIFAN_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Device != "/dev/fan0" {
		t.Errorf("Device = %q, want /dev/fan0", cfg.Device)
	}
}

func TestLoadFilePartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rpifan.yaml")
	content := "thermal_zone: /sys/class/thermal/thermal_zone2/temp\nrun_dir: /tmp/rpifan\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.ThermalZone != "/sys/class/thermal/thermal_zone2/temp" {
		t.Errorf("ThermalZone = %q, want the overridden zone", cfg.ThermalZone)
	}
	if cfg.RunDir != "/tmp/rpifan" {
		t.Errorf("RunDir = %q, want /tmp/rpifan", cfg.RunDir)
	}
	if cfg.Device != Default().Device {
		t.Errorf("Device = %q, want the default to survive a partial file", cfg.Device)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("LoadFile succeeded on a missing file")
	}
}

func TestLoadFileRejectsBlankedPaths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rpifan.yaml")
	if err := os.WriteFile(path, []byte("device: \"\"\n"), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	_, err := LoadFile(path)
	if err == nil {
		t.Fatal("LoadFile accepted an explicitly blanked device path")
	}
	if !strings.Contains(err.Error(), "device is required") {
		t.Errorf("LoadFile error = %q, want mention of the blanked device", err)
	}
}

func TestRunFilePath(t *testing.T) {
	cfg := Default()
	cfg.RunDir = "/tmp/rpifan"
	if got := cfg.RunFilePath(); got != "/tmp/rpifan/governor.json" {
		t.Errorf("RunFilePath() = %q, want /tmp/rpifan/governor.json", got)
	}
}

func TestEnsureRunDir(t *testing.T) {
	cfg := Default()
	cfg.RunDir = filepath.Join(t.TempDir(), "nested", "rpifan")
	if err := cfg.EnsureRunDir(); err != nil {
		t.Fatalf("EnsureRunDir: %v", err)
	}
	info, err := os.Stat(cfg.RunDir)
	if err != nil {
		t.Fatalf("stat run dir: %v", err)
	}
	if !info.IsDir() {
		t.Errorf("%s is not a directory", cfg.RunDir)
	}
}

func TestGovernorBinaryPathExplicit(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "rpifan-governor")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("writing stand-in binary: %v", err)
	}

	cfg := Default()
	cfg.GovernorBinary = bin
	got, err := cfg.GovernorBinaryPath("rpifan-governor")
	if err != nil {
		t.Fatalf("GovernorBinaryPath: %v", err)
	}
	if got != bin {
		t.Errorf("GovernorBinaryPath() = %q, want %q", got, bin)
	}
}

func TestGovernorBinaryPathExplicitMissing(t *testing.T) {
	cfg := Default()
	cfg.GovernorBinary = filepath.Join(t.TempDir(), "absent")
	if _, err := cfg.GovernorBinaryPath("rpifan-governor"); err == nil {
		t.Fatal("GovernorBinaryPath accepted a missing explicit binary")
	}
}
