// Package fpsgo senses frame timing through the MediaTek fpsgo text
// interface. Two goroutines poll it: one measures vsync intervals from
// fbt/fbt_info and hands them out in batches, the other averages the
// per-surface FPS from fstb/fpsgo_status over a time window.
package fpsgo

import (
	"os"
	"time"

	"codeberg.org/mutker/framectl/internal/errors"
	"codeberg.org/mutker/framectl/internal/sensor"
)

const Name = "mtk_fpsgo"

// Sensor implements sensor.FrameSensor on top of fpsgo.
type Sensor struct {
	parker     *parker
	frametimes *frametimeCollector
	fps        *fpsCollector
	opts       *options
}

var _ sensor.FrameSensor = (*Sensor)(nil)

// Support reports whether the fpsgo tables are readable under the
// configured root.
func Support(opts ...Option) bool {
	o := buildOptions(opts)
	return supported(o.fs, o.root)
}

// Candidate registers fpsgo for sensor.Select.
func Candidate(opts ...Option) sensor.Candidate {
	return sensor.Candidate{
		Name:    Name,
		Support: func() bool { return Support(opts...) },
		New: func() (sensor.FrameSensor, error) {
			return New(opts...)
		},
	}
}

// New starts both collectors parked. Call Resume to begin sampling.
func New(opts ...Option) (*Sensor, error) {
	errFactory := errors.New()
	o := buildOptions(opts)

	info, err := o.fs.Stat(o.root)
	if err != nil {
		return nil, errFactory.Wrap(sensor.ErrUnsupported, err)
	}
	if !info.IsDir() {
		return nil, errFactory.Wrap(sensor.ErrUnsupported, &os.PathError{
			Op:   "stat",
			Path: o.root,
			Err:  os.ErrInvalid,
		})
	}

	p := newParker()
	s := &Sensor{
		parker:     p,
		frametimes: newFrametimeCollector(p, o),
		fps:        newFPSCollector(p, o),
		opts:       o,
	}

	go s.frametimes.run()
	go s.fps.run()

	o.log.Debug().Str("root", o.root).Msg("fpsgo sensor created")

	return s, nil
}

// FrameTimes blocks until the next batch is complete. targetFPS is not
// used; the batch size comes from Resume.
func (s *Sensor) FrameTimes(_ uint32) []time.Duration {
	for {
		b := <-s.frametimes.out
		if b.epoch == s.parker.epoch.Load() {
			return b.samples
		}
	}
}

// FPS returns the last published average, 0 before any sample arrived.
func (s *Sensor) FPS() uint32 {
	return s.fps.average.Load()
}

func (s *Sensor) Pause() error {
	s.parker.pause()
	s.opts.log.Debug().Msg("fpsgo sensor paused")

	return nil
}

func (s *Sensor) Resume(frametimeCount int, fpsWindow time.Duration) error {
	errFactory := errors.New()

	if frametimeCount <= 0 {
		return errFactory.WithData(sensor.ErrInvalidResume, struct {
			FrametimeCount int
		}{frametimeCount})
	}
	if fpsWindow <= 0 {
		return errFactory.WithData(sensor.ErrInvalidResume, struct {
			FPSWindow time.Duration
		}{fpsWindow})
	}

	s.frametimes.count.Store(int64(frametimeCount))
	s.fps.window.Store(fpsWindow)
	s.parker.resume()

	s.opts.log.Debug().
		Int("frametime_count", frametimeCount).
		Dur("fps_window", fpsWindow).
		Msg("fpsgo sensor resumed")

	return nil
}
