package fpsgo

import (
	"testing"
	"time"

	"codeberg.org/mutker/framectl/internal/errors"
	"codeberg.org/mutker/framectl/internal/sensor"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	batchTimeout = 5 * time.Second
	waitFor      = 2 * time.Second
	tick         = 5 * time.Millisecond
)

func TestFrameTimesBatchIsOrdered(t *testing.T) {
	d := newFakeDevice(t)
	s := newTestSensor(t, d)

	require.NoError(t, s.Resume(5, time.Second))
	stop := d.feed(2_000_000, 3*time.Millisecond)
	defer stop()

	for i := 0; i < 3; i++ {
		samples := frameTimesWithin(t, s, batchTimeout)
		require.Len(t, samples, 5)

		for _, ft := range samples {
			// each sample spans one or more whole vsync steps
			assert.Positive(t, ft)
			assert.Zero(t, ft%(2*time.Millisecond), "unexpected frametime %v", ft)
		}
	}
}

func TestFrameTimesBackpressure(t *testing.T) {
	d := newFakeDevice(t)
	s := newTestSensor(t, d)

	require.NoError(t, s.Resume(2, time.Second))
	stop := d.feed(1_000_000, time.Millisecond)
	defer stop()

	require.Eventually(t, func() bool {
		return s.frametimes.completed.Load() == 1
	}, waitFor, tick)

	// nobody is reading, so the producer must stay on its first batch
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, uint64(1), s.frametimes.completed.Load())

	for delivered := uint64(1); delivered <= 3; delivered++ {
		require.Len(t, frameTimesWithin(t, s, batchTimeout), 2)
		time.Sleep(50 * time.Millisecond)
		assert.LessOrEqual(t, s.frametimes.completed.Load(), delivered+1)
	}
}

func TestPauseDiscardsBufferedFrames(t *testing.T) {
	tests := []struct {
		name  string
		count int
		feed  time.Duration
	}{
		{name: "partial batch", count: 40, feed: 30 * time.Millisecond},
		{name: "batch waiting for handoff", count: 2, feed: 60 * time.Millisecond},
	}

	const (
		preStep  = 1_000_001
		postStep = 5_000_000
	)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newFakeDevice(t)
			s := newTestSensor(t, d)

			require.NoError(t, s.Resume(tt.count, time.Second))
			stop := d.feed(preStep, 3*time.Millisecond)
			time.Sleep(tt.feed)
			stop()

			require.NoError(t, s.Pause())

			// move to a stamp no pre-pause interval can line up with
			d.setStamp(d.stamp() + 7_000_003)
			require.NoError(t, s.Resume(tt.count, time.Second))
			stop = d.feed(postStep, 3*time.Millisecond)
			defer stop()

			samples := frameTimesWithin(t, s, batchTimeout)
			require.Len(t, samples, tt.count)
			for _, ft := range samples {
				assert.Zero(t, ft%postStep, "pre-pause frametime %v leaked into batch", ft)
			}
		})
	}
}

func TestFrameTimesReenablesDisabledFpsgo(t *testing.T) {
	d := newFakeDevice(t)
	d.write(fbtInfoPath, fbtInfo("0", "123"))

	r := newCountingReenabler()
	outcomes := make(chan error, 64)
	s := newTestSensor(t, d, WithReenabler(r), WithOnReenable(func(err error) {
		select {
		case outcomes <- err:
		default:
		}
	}))

	require.NoError(t, s.Resume(1, time.Second))
	require.Eventually(t, func() bool { return r.calls.Load() > 0 }, waitFor, tick)

	assert.NoError(t, <-outcomes)

	d.setStamp(1000)
	stop := d.feed(4_000_000, 3*time.Millisecond)
	defer stop()

	samples := frameTimesWithin(t, s, batchTimeout)
	require.Len(t, samples, 1)
	assert.Zero(t, samples[0]%(4*time.Millisecond))
}

func TestParkedSensorDoesNotPoll(t *testing.T) {
	d := newFakeDevice(t)
	d.write(fbtInfoPath, fbtInfo("0", "1"))
	d.setStatus("garbage")

	r := newCountingReenabler()
	s := newTestSensor(t, d, WithReenabler(r))

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, r.calls.Load(), "parked collectors touched the vendor files")

	require.NoError(t, s.Resume(1, time.Second))
	require.Eventually(t, func() bool { return r.calls.Load() > 0 }, waitFor, tick)

	require.NoError(t, s.Pause())
	time.Sleep(20 * time.Millisecond)
	settled := r.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, r.calls.Load())
}

func TestUnreadableVendorFileIsFatal(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(testRoot, 0o755))

	fatal := make(chan error, 2)
	s, err := New(
		WithFs(fs),
		WithRoot(testRoot),
		withIntervals(time.Millisecond, time.Millisecond),
		WithFatalHandler(func(err error) { fatal <- err }),
	)
	require.NoError(t, err)
	require.NoError(t, s.Resume(1, time.Second))

	for i := 0; i < 2; i++ {
		select {
		case err := <-fatal:
			assert.True(t, errors.HasCode(err, sensor.ErrVendorRead))
		case <-time.After(batchTimeout):
			t.Fatal("collector never gave up on the missing vendor file")
		}
	}
}
