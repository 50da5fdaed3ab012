package fpsgo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFPSMovingAverage(t *testing.T) {
	d := newFakeDevice(t)
	d.setStatus(fpsgoStatus(90, 30, -1))
	s := newTestSensor(t, d)

	assert.Zero(t, s.FPS(), "FPS must be 0 before sampling")

	require.NoError(t, s.Resume(1, 30*time.Millisecond))
	require.Eventually(t, func() bool { return s.FPS() == 90 }, waitFor, tick)

	// once the 90 FPS samples age out only 45 remains
	d.setStatus(fpsgoStatus(45))
	require.Eventually(t, func() bool { return s.FPS() == 45 }, waitFor, tick)

	require.NoError(t, s.Pause())
	require.Eventually(t, func() bool { return s.FPS() == 0 }, waitFor, tick)
}

func TestFPSWindowRestartsAfterResume(t *testing.T) {
	d := newFakeDevice(t)
	d.setStatus(fpsgoStatus(120))
	s := newTestSensor(t, d)

	require.NoError(t, s.Resume(1, time.Minute))
	require.Eventually(t, func() bool { return s.FPS() == 120 }, waitFor, tick)

	require.NoError(t, s.Pause())
	d.setStatus(fpsgoStatus(30))
	require.NoError(t, s.Resume(1, time.Minute))

	// a minute-long window would still average in 120 without the reset
	require.Eventually(t, func() bool { return s.FPS() == 30 }, waitFor, tick)
}

func TestFPSReenablesOnUnparsableStatus(t *testing.T) {
	d := newFakeDevice(t)
	d.setStatus("fstb disabled\n")

	r := newCountingReenabler()
	s := newTestSensor(t, d, WithReenabler(r))

	require.NoError(t, s.Resume(1, time.Second))
	require.Eventually(t, func() bool { return r.calls.Load() > 2 }, waitFor, tick)
	assert.Zero(t, s.FPS())
}

func TestFPSKeptAcrossResumeWithoutPause(t *testing.T) {
	d := newFakeDevice(t)
	d.setStatus(fpsgoStatus(90))
	s := newTestSensor(t, d)

	require.NoError(t, s.Resume(10, time.Second))
	require.Eventually(t, func() bool { return s.FPS() == 90 }, waitFor, tick)

	require.NoError(t, s.Resume(20, time.Second))
	require.NoError(t, s.Resume(30, 500*time.Millisecond))

	deadline := time.Now().Add(50 * time.Millisecond)
	for time.Now().Before(deadline) {
		require.Equal(t, uint32(90), s.FPS(), "retargeting must not restart the average")
		time.Sleep(time.Millisecond)
	}
}
