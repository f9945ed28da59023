// Copyright 2026 The rpi-fan-util Authors
// SPDX-License-Identifier: Apache-2.0

// Package fandev owns the descriptor to the fan driver's device node and
// speaks both of its channels: the textual configuration byte (a fixed
// 4-byte ASCII decimal buffer read and written with plain read/write)
// and the raw 64-bit duty-cycle value carried by ioctl, which bypasses
// the configuration byte entirely. Keeping the two channels separate is
// what lets the adaptive governor drive duty cycle without racing a
// concurrent pin or mode change.
package fandev

import (
	"fmt"
	"os"
	"strconv"

	"github.com/not-forest/rpi-fan-util/lib/fanconfig"
)

// configBufSize is the fixed size of the driver's textual config
// buffer: up to three decimal digits plus a terminator.
const configBufSize = 4

// Device is an open handle to the fan device node. One Device serves
// one invocation; Close must run on every exit path.
type Device struct {
	file *os.File
}

// Open opens the device node for read/write. Failure means the driver
// is not loaded or the caller lacks permission, and is fatal to the
// invocation.
func Open(path string) (*Device, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening fan device: %w", err)
	}
	return &Device{file: file}, nil
}

// FromFile adopts an already-open descriptor. The governor child uses
// this for the device handle it inherits from the spawning process.
func FromFile(file *os.File) *Device {
	return &Device{file: file}
}

// Close releases the descriptor. A spawned governor holds its own
// duplicate, which stays valid after the parent closes.
func (d *Device) Close() error {
	return d.file.Close()
}

// Path returns the path the device was opened under.
func (d *Device) Path() string {
	return d.file.Name()
}

// File exposes the underlying file for descriptor inheritance
// (exec.Cmd.ExtraFiles).
func (d *Device) File() *os.File {
	return d.file
}

// ReadConfig reads the driver's 4-byte textual buffer and decodes the
// configuration byte it carries. Parsing is deliberately permissive: a
// malformed buffer decodes as byte 0 rather than failing, matching the
// driver's legacy contract. A failed or empty read is an error.
func (d *Device) ReadConfig() (fanconfig.Config, error) {
	buf := make([]byte, configBufSize)
	n, err := d.file.Read(buf)
	if err != nil {
		return fanconfig.Config{}, fmt.Errorf("reading fan config: %w", err)
	}
	return fanconfig.Decode(parseConfigByte(buf[:n])), nil
}

// WriteConfig serializes the configuration byte as ASCII decimal,
// NUL-padded to exactly 4 bytes, and writes it in a single call. Reads
// and writes share the descriptor sequentially with no seeking; the
// driver ignores file position.
func (d *Device) WriteConfig(cfg fanconfig.Config) error {
	buf := make([]byte, configBufSize)
	copy(buf, strconv.Itoa(int(cfg.Encode())))
	if _, err := d.file.Write(buf); err != nil {
		return fmt.Errorf("writing fan config %v: %w", cfg, err)
	}
	return nil
}

// WriteDuty pushes a raw duty value through the control channel. The
// configuration byte is not touched.
func (d *Device) WriteDuty(duty fanconfig.DutyCycle) error {
	value := uint64(duty)
	if err := ioctlUint64(d.file.Fd(), reqWriteDuty, &value); err != nil {
		return fmt.Errorf("writing duty cycle %d: %w", duty, err)
	}
	return nil
}

// ReadDuty reads the driver's current duty value back through the
// control channel. The driver defines it symmetrically to WriteDuty;
// the one-shot control flow never needs it, but the protocol carries
// it.
func (d *Device) ReadDuty() (fanconfig.DutyCycle, error) {
	var value uint64
	if err := ioctlUint64(d.file.Fd(), reqReadDuty, &value); err != nil {
		return 0, fmt.Errorf("reading duty cycle: %w", err)
	}
	return fanconfig.DutyCycle(value), nil
}

// parseConfigByte applies the legacy permissive parse to the driver's
// textual buffer: skip leading whitespace and an optional sign, consume
// digits until the first non-digit, and truncate the result to the byte
// the driver stores. A buffer with no digits parses as zero.
func parseConfigByte(buf []byte) byte {
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
	return byte(value)
}
