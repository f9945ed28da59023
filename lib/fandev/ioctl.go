// Copyright 2026 The rpi-fan-util Authors
// SPDX-License-Identifier: Apache-2.0

package fandev

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl request encoding, per the kernel's asm-generic layout:
// bits [31:30] direction, [29:16] argument size, [15:8] type, [7:0]
// number.
const (
	iocNrShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30

	iocWrite uintptr = 1
	iocRead  uintptr = 2
)

// The fan driver registers two requests on ioctl type 'r', both
// carrying a uint64: 'a' sets the duty cycle, 'b' reads it back.
const (
	// _IOW('r', 'a', uint64_t): 0x40087261.
	reqWriteDuty = iocWrite<<iocDirShift | 8<<iocSizeShift | 'r'<<iocTypeShift | 'a'<<iocNrShift
	// _IOR('r', 'b', uint64_t): 0x80087262.
	reqReadDuty = iocRead<<iocDirShift | 8<<iocSizeShift | 'r'<<iocTypeShift | 'b'<<iocNrShift
)

// ioctlUint64 issues an ioctl whose argument is a pointer to a 64-bit
// value, for both the read and write directions.
func ioctlUint64(fd uintptr, request uintptr, value *uint64) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, request, uintptr(unsafe.Pointer(value)))
	if errno != 0 {
		return errno
	}
	return nil
}
