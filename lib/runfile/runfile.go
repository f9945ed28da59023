// Copyright 2026 The rpi-fan-util Authors
// SPDX-License-Identifier: Apache-2.0

// Package runfile records the identity of a spawned governor process so
// later invocations can enforce the one-governor rule and stop a
// running governor by pid. The CLI writes the file after a successful
// spawn and removes it after a confirmed stop; the governor process
// itself never touches it, so a crashed governor leaves a stale file
// behind. Staleness is decided by liveness (signal 0) plus the kernel's
// comm name for the pid, which keeps a recycled pid from being mistaken
// for — or worse, killed as — a governor.
//
// The file is written atomically (temporary file, fsync, rename) so a
// reader never sees a partial state. The check-then-write sequence
// around a spawn is not atomic; two concurrent invocations can race it.
package runfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// taskCommWidth is the kernel's TASK_COMM_LEN minus the terminator:
// /proc/<pid>/comm never carries more than 15 bytes of name.
const taskCommWidth = 15

// State identifies a running governor.
type State struct {
	// PID of the spawned governor process.
	PID int `json:"pid"`

	// Comm is the process name the kernel reports for the governor,
	// derived from the governor binary's base name. Liveness checks
	// compare it against /proc/<pid>/comm.
	Comm string `json:"comm"`

	// Device is the fan device node the governor was started on.
	Device string `json:"device"`

	// Interval is the governor's tick interval, in nanoseconds as
	// JSON renders durations.
	Interval time.Duration `json:"interval"`

	// StartedAt is when the governor was spawned.
	StartedAt time.Time `json:"started_at"`
}

// TaskComm returns the comm name the kernel will report for a process
// executing the binary at path: the base name, truncated to the comm
// field width.
func TaskComm(path string) string {
	name := filepath.Base(path)
	if len(name) > taskCommWidth {
		name = name[:taskCommWidth]
	}
	return name
}

// Write atomically writes the run file: temporary file in the same
// directory, fsync, rename, directory sync. Mode 0600; the parent
// directory must exist.
func Write(path string, state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run state: %w", err)
	}
	data = append(data, '\n')

	temporaryPath := path + ".tmp"

	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating temporary run file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary run file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary run file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary run file: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming run file into place: %w", err)
	}

	// Sync the directory so the rename survives a power cut.
	parentDirectory, err := os.Open(filepath.Dir(path))
	if err == nil {
		parentDirectory.Sync()
		parentDirectory.Close()
	}

	return nil
}

// Read parses the run file. A missing file returns an error wrapping
// os.ErrNotExist (testable with errors.Is).
func Read(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("parsing run file %s: %w", path, err)
	}
	return state, nil
}

// Check reads the run file and verifies the recorded process is still
// the governor it claims to be. Returns the state and true when the
// pid is alive and its comm matches. Returns false when the file does
// not exist, or when the file is stale (pid dead, or recycled into an
// unrelated process) — stale files are removed on the way out. Read
// and parse failures other than absence are returned as errors.
func Check(path string) (State, bool, error) {
	return checkFrom(path, "/proc")
}

// checkFrom is Check against an explicit procfs root, so tests can
// point it at a synthetic tree.
func checkFrom(path, procRoot string) (State, bool, error) {
	state, err := Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, false, nil
		}
		return State{}, false, err
	}

	if Alive(state.PID) && commOf(procRoot, state.PID) == state.Comm {
		return state, true, nil
	}

	// Stale: the governor is gone, or the pid now belongs to something
	// else. Removing the file here keeps every later invocation from
	// re-deciding.
	if err := Clear(path); err != nil {
		return State{}, false, err
	}
	return State{}, false, nil
}

// Clear removes the run file. Idempotent: a missing file is not an
// error.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing run file: %w", err)
	}
	return nil
}

// Alive reports whether a process with the given pid exists, using the
// null signal. EPERM still means the pid exists; it just belongs to
// someone else.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}

// commOf reads the kernel's process name for pid. Returns "" when the
// entry is unreadable, which callers treat as "not the governor".
func commOf(procRoot string, pid int) string {
	data, err := os.ReadFile(filepath.Join(procRoot, strconv.Itoa(pid), "comm"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
