// Copyright 2026 The rpi-fan-util Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"strings"
)

// printHelp writes structured help output to w.
func printHelp(w io.Writer) {
	fmt.Fprintf(w, "Control the Raspberry Pi fan driver: move the fan between GPIO pins,\n")
	fmt.Fprintf(w, "select a PWM mode, hold a fixed duty cycle, or run an adaptive governor\n")
	fmt.Fprintf(w, "that scales fan speed with CPU temperature.\n\n")

	fmt.Fprintf(w, "Usage:\n  rpifan [flags]\n  rpifan <config-byte>\n")

	var flagHelp strings.Builder
	flagSet := newFlagSet(&options{})
	flagSet.SetOutput(&flagHelp)
	flagSet.PrintDefaults()
	fmt.Fprintf(w, "\nFlags:\n%s", flagHelp.String())

	fmt.Fprintf(w, "\nExamples:\n")
	examples := []struct {
		description string
		command     string
	}{
		{"move the fan to GPIO 12 (a hardware PWM pin)", "rpifan -g 12"},
		{"run the fan at half speed", "rpifan -c 50"},
		{"start the adaptive governor, sampling every 500ms", "rpifan -a 500"},
		{"stop the governor", "rpifan -k"},
		{"write the packed configuration byte directly", "rpifan 108"},
	}
	for _, example := range examples {
		fmt.Fprintf(w, "  # %s\n", example.description)
		fmt.Fprintf(w, "  %s\n\n", example.command)
	}
}
