// Copyright 2026 The rpi-fan-util Authors
// SPDX-License-Identifier: Apache-2.0

// Package thermal reads the kernel's thermal zone temperature file. The
// file yields an ASCII decimal millidegree value from offset 0 on every
// read, so the sensor holds the file open across samples and rewinds
// before each one.
package thermal

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// sampleBufSize bounds one read of the zone file. Six bytes covers any
// realistic millidegree reading, sign included.
const sampleBufSize = 6

// Sensor is an open handle to a thermal zone temperature file.
type Sensor struct {
	file *os.File
}

// Open opens the temperature file. Failure is fatal to the governor:
// there is no degraded mode without a sensor.
func Open(path string) (*Sensor, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening thermal sensor: %w", err)
	}
	return &Sensor{file: file}, nil
}

// Close releases the sensor file.
func (s *Sensor) Close() error {
	return s.file.Close()
}

// Path returns the path the sensor was opened under.
func (s *Sensor) Path() string {
	return s.file.Name()
}

// Sample reads the current temperature in millidegrees. The file is
// rewound to the start first; the kernel regenerates its content on
// each read. Malformed content parses permissively (no digits is 0);
// a read that yields no bytes at all is an error.
func (s *Sensor) Sample() (int64, error) {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("rewinding thermal sensor: %w", err)
	}
	buf := make([]byte, sampleBufSize)
	n, err := s.file.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("reading thermal sensor: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("thermal sensor %s yielded no data", s.Path())
	}
	return parseMillidegrees(buf[:n]), nil
}

// parseMillidegrees parses a decimal millidegree reading: optional
// leading whitespace and sign, digits until the first non-digit
// (usually the trailing newline).
func parseMillidegrees(buf []byte) int64 {
	i := 0
	for i < len(buf) && (buf[i] == ' ' || buf[i] == '\t' || buf[i] == '\n' || buf[i] == '\r') {
		i++
	}
	negative := false
	if i < len(buf) && (buf[i] == '+' || buf[i] == '-') {
		negative = buf[i] == '-'
		i++
	}
	var value int64
	for ; i < len(buf) && buf[i] >= '0' && buf[i] <= '9'; i++ {
		value = value*10 + int64(buf[i]-'0')
	}
	if negative {
		value = -value
	}
	return value
}
