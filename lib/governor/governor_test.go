// Copyright 2026 The rpi-fan-util Authors
// SPDX-License-Identifier: Apache-2.0

package governor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/not-forest/rpi-fan-util/lib/clock"
	"github.com/not-forest/rpi-fan-util/lib/fanconfig"
	"github.com/not-forest/rpi-fan-util/lib/testutil"
)

const testTimeout = 5 * time.Second

// sensorStep is one scripted Sample result.
type sensorStep struct {
	sample int64
	err    error
}

// scriptedSensor replays a fixed sequence of samples. Running past the
// end of the script returns an error, so a loop that ticks more often
// than the test expects fails loudly.
type scriptedSensor struct {
	steps []sensorStep
	calls int
}

func (s *scriptedSensor) Sample() (int64, error) {
	if s.calls >= len(s.steps) {
		return 0, errors.New("sensor script exhausted")
	}
	step := s.steps[s.calls]
	s.calls++
	return step.sample, step.err
}

// dutyRecorder records every write attempt and returns a fixed error
// when one is configured.
type dutyRecorder struct {
	written []fanconfig.DutyCycle
	err     error
}

func (r *dutyRecorder) WriteDuty(duty fanconfig.DutyCycle) error {
	r.written = append(r.written, duty)
	return r.err
}

// startGovernor runs the loop in a goroutine and returns Run's error
// channel. Synchronization contract: once fake.WaitForTimers(1)
// returns, the current tick has completed and its effects on the
// recorder are visible (the tick's writes happen before the loop
// registers its inter-tick wait).
func startGovernor(ctx context.Context, gov *Governor) <-chan error {
	done := make(chan error, 1)
	go func() { done <- gov.Run(ctx) }()
	return done
}

func testGovernor(device DutyWriter, sensor Sensor, fake *clock.FakeClock) *Governor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(device, sensor, time.Second, fake, logger)
}

func TestDutyTracksCeiling(t *testing.T) {
	// Four samples: the first sets the ceiling (full duty), the next
	// two scale against it, the last raises it again (full duty).
	sensor := &scriptedSensor{steps: []sensorStep{
		{sample: 50000}, {sample: 40000}, {sample: 45000}, {sample: 60000},
	}}
	recorder := &dutyRecorder{}
	fake := clock.Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	gov := testGovernor(recorder, sensor, fake)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := startGovernor(ctx, gov)

	want := []fanconfig.DutyCycle{
		fanconfig.Period,
		40000 * fanconfig.Period / 50000,
		45000 * fanconfig.Period / 50000,
		fanconfig.Period,
	}
	for i := range want {
		fake.WaitForTimers(1)
		if len(recorder.written) != i+1 {
			t.Fatalf("after tick %d: %d duty writes, want %d", i+1, len(recorder.written), i+1)
		}
		if got := recorder.written[i]; got != want[i] {
			t.Errorf("tick %d wrote duty %d, want %d", i+1, got, want[i])
		}
		if i < len(want)-1 {
			fake.Advance(time.Second)
		}
	}

	cancel()
	err := testutil.RequireReceive(t, done, testTimeout, "waiting for the loop to stop")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
	if gov.ceiling != 60000 {
		t.Errorf("ceiling = %d after run, want 60000", gov.ceiling)
	}
}

func TestCeilingNeverFalls(t *testing.T) {
	samples := []int64{30000, 55000, 20000, 54000, 10000}
	steps := make([]sensorStep, len(samples))
	for i, s := range samples {
		steps[i] = sensorStep{sample: s}
	}
	sensor := &scriptedSensor{steps: steps}
	recorder := &dutyRecorder{}
	fake := clock.Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	gov := testGovernor(recorder, sensor, fake)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := startGovernor(ctx, gov)

	ceilings := make([]int64, 0, len(samples))
	for i := range samples {
		fake.WaitForTimers(1)
		ceilings = append(ceilings, gov.ceiling)
		if i < len(samples)-1 {
			fake.Advance(time.Second)
		}
	}

	cancel()
	testutil.RequireReceive(t, done, testTimeout, "waiting for the loop to stop")

	for i := 1; i < len(ceilings); i++ {
		if ceilings[i] < ceilings[i-1] {
			t.Errorf("ceiling fell from %d to %d at tick %d", ceilings[i-1], ceilings[i], i+1)
		}
	}
	if ceilings[len(ceilings)-1] != 55000 {
		t.Errorf("final ceiling = %d, want 55000", ceilings[len(ceilings)-1])
	}
}

func TestNonPositiveSamplesSkipDutyWrites(t *testing.T) {
	// Until a positive sample establishes a ceiling there is nothing to
	// scale against, so no duty write may happen.
	sensor := &scriptedSensor{steps: []sensorStep{
		{sample: 0}, {sample: -500}, {sample: 30000},
	}}
	recorder := &dutyRecorder{}
	fake := clock.Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	gov := testGovernor(recorder, sensor, fake)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := startGovernor(ctx, gov)

	fake.WaitForTimers(1)
	if len(recorder.written) != 0 {
		t.Fatalf("duty written after zero sample: %v", recorder.written)
	}
	fake.Advance(time.Second)
	fake.WaitForTimers(1)
	if len(recorder.written) != 0 {
		t.Fatalf("duty written after negative sample: %v", recorder.written)
	}
	fake.Advance(time.Second)
	fake.WaitForTimers(1)
	if len(recorder.written) != 1 || recorder.written[0] != fanconfig.Period {
		t.Fatalf("duty writes after first positive sample = %v, want [%d]", recorder.written, fanconfig.Period)
	}

	cancel()
	testutil.RequireReceive(t, done, testTimeout, "waiting for the loop to stop")
}

func TestNegativeSampleClampsToZeroDuty(t *testing.T) {
	sensor := &scriptedSensor{steps: []sensorStep{
		{sample: 30000}, {sample: -200},
	}}
	recorder := &dutyRecorder{}
	fake := clock.Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	gov := testGovernor(recorder, sensor, fake)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := startGovernor(ctx, gov)

	fake.WaitForTimers(1)
	fake.Advance(time.Second)
	fake.WaitForTimers(1)

	want := []fanconfig.DutyCycle{fanconfig.Period, 0}
	if len(recorder.written) != len(want) || recorder.written[0] != want[0] || recorder.written[1] != want[1] {
		t.Errorf("duty writes = %v, want %v", recorder.written, want)
	}

	cancel()
	testutil.RequireReceive(t, done, testTimeout, "waiting for the loop to stop")
}

func TestDutyWriteFailureKeepsLooping(t *testing.T) {
	sensor := &scriptedSensor{steps: []sensorStep{
		{sample: 40000}, {sample: 41000}, {sample: 42000},
	}}
	recorder := &dutyRecorder{err: errors.New("device wedged")}
	fake := clock.Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	gov := testGovernor(recorder, sensor, fake)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := startGovernor(ctx, gov)

	for i := 0; i < 3; i++ {
		fake.WaitForTimers(1)
		if i < 2 {
			fake.Advance(time.Second)
		}
	}
	if len(recorder.written) != 3 {
		t.Errorf("%d duty write attempts despite failures, want 3", len(recorder.written))
	}

	select {
	case err := <-done:
		t.Fatalf("loop stopped on duty write failure: %v", err)
	default:
	}

	cancel()
	testutil.RequireReceive(t, done, testTimeout, "waiting for the loop to stop")
}

func TestSensorFailureStopsTheRun(t *testing.T) {
	sensorErr := errors.New("zone file gone")
	sensor := &scriptedSensor{steps: []sensorStep{
		{sample: 50000}, {err: sensorErr},
	}}
	recorder := &dutyRecorder{}
	fake := clock.Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	gov := testGovernor(recorder, sensor, fake)

	done := startGovernor(context.Background(), gov)

	fake.WaitForTimers(1)
	fake.Advance(time.Second)

	err := testutil.RequireReceive(t, done, testTimeout, "waiting for the sensor failure to surface")
	if !errors.Is(err, sensorErr) {
		t.Errorf("Run returned %v, want wrapped %v", err, sensorErr)
	}
	if len(recorder.written) != 1 {
		t.Errorf("%d duty writes before the failure, want 1", len(recorder.written))
	}
}

func TestCancellationStopsTheWait(t *testing.T) {
	sensor := &scriptedSensor{steps: []sensorStep{{sample: 45000}}}
	recorder := &dutyRecorder{}
	fake := clock.Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	gov := testGovernor(recorder, sensor, fake)

	ctx, cancel := context.WithCancel(context.Background())
	done := startGovernor(ctx, gov)

	fake.WaitForTimers(1)
	cancel()

	err := testutil.RequireReceive(t, done, testTimeout, "waiting for cancellation to take effect")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}
