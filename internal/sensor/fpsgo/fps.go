package fpsgo

import (
	"time"

	"codeberg.org/mutker/framectl/internal/logger"
	"go.uber.org/atomic"
)

// fpsCollector samples fstb/fpsgo_status at a fixed cadence and publishes
// the moving average over the configured window.
type fpsCollector struct {
	parker     *parker
	window     *atomic.Duration
	average    *atomic.Uint32
	file       *vendorFile
	samples    *fpsWindow
	reenabler  Reenabler
	onReenable func(error)
	onFatal    func(error)
	interval   time.Duration
	now        func() time.Time
	log        logger.Logger
}

func newFPSCollector(p *parker, o *options) *fpsCollector {
	return &fpsCollector{
		parker:     p,
		window:     atomic.NewDuration(0),
		average:    atomic.NewUint32(0),
		file:       newVendorFile(o.fs, o.root, statusPath),
		samples:    newFPSWindow(),
		reenabler:  o.reenabler,
		onReenable: o.onReenable,
		onFatal:    o.onFatal,
		interval:   o.sampleWait,
		now:        o.now,
		log:        o.log,
	}
}

func (c *fpsCollector) run() {
	pauses := c.parker.waitPauses()

	// a resume only changes the retention, which the next evict applies
	for {
		if c.parker.interrupted(pauses) {
			c.samples.reset()
			c.average.Store(0)
			pauses = c.parker.waitPauses()
		}

		time.Sleep(c.interval)

		c.samples.evict(c.now(), c.window.Load())
		c.average.Store(c.samples.average())

		text, transient, err := c.file.read()
		if err != nil {
			if !transient {
				c.onFatal(err)
				return
			}
			c.log.Warn().Err(err).Msg("Failed to read fpsgo_status, retrying")

			continue
		}

		fps, ok := ParseFPS(text)
		if !ok {
			c.reenable()
			continue
		}

		c.samples.push(c.now(), fps)
	}
}

func (c *fpsCollector) reenable() {
	err := c.reenabler.Reenable()
	if err != nil {
		c.log.Debug().Err(err).Msg("Failed to reenable fpsgo")
	}
	c.onReenable(err)
}
