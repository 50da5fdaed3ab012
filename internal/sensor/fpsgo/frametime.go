package fpsgo

import (
	"errors"
	"time"

	"codeberg.org/mutker/framectl/internal/logger"
	"go.uber.org/atomic"
)

// errRetry restarts the current frame measurement.
var errRetry = errors.New("retry frame measurement")

type batch struct {
	epoch   uint64
	samples []time.Duration
}

// frametimeCollector measures the time between consecutive vsync stamps
// in fbt/fbt_info and hands them out in batches of count.
type frametimeCollector struct {
	parker     *parker
	count      *atomic.Int64
	file       *vendorFile
	out        chan batch
	reenabler  Reenabler
	onReenable func(error)
	onFatal    func(error)
	pollEvery  time.Duration
	log        logger.Logger

	// completed counts finished batches, including the one being handed off
	completed *atomic.Uint64
}

func newFrametimeCollector(p *parker, o *options) *frametimeCollector {
	return &frametimeCollector{
		parker:     p,
		count:      atomic.NewInt64(0),
		file:       newVendorFile(o.fs, o.root, fbtInfoPath),
		out:        make(chan batch),
		reenabler:  o.reenabler,
		onReenable: o.onReenable,
		onFatal:    o.onFatal,
		pollEvery:  o.pollEvery,
		log:        o.log,
		completed:  atomic.NewUint64(0),
	}
}

func (c *frametimeCollector) run() {
	epoch := c.parker.wait()
	current := c.newBatch(epoch)

	var last uint64

	for {
		if c.parker.stale(epoch) {
			epoch = c.parker.wait()
			current = c.newBatch(epoch)
			last = 0
		}

		if len(current.samples) >= int(c.count.Load()) {
			c.completed.Inc()
			c.deliver(current)
			current = c.newBatch(epoch)
			last = 0

			continue
		}

		if last == 0 {
			stamp, err := c.nextStamp(0, epoch)
			if err != nil {
				if !c.handle(err) {
					return
				}
				continue
			}
			last = stamp
		}

		stamp, err := c.nextStamp(last, epoch)
		if err != nil {
			if !c.handle(err) {
				return
			}
			last = 0
			continue
		}

		current.samples = append(current.samples, time.Duration(stamp-last))
		last = stamp
	}
}

func (c *frametimeCollector) newBatch(epoch uint64) batch {
	return batch{
		epoch:   epoch,
		samples: make([]time.Duration, 0, c.count.Load()),
	}
}

// deliver blocks until the consumer takes the batch. Batches from an
// earlier sampling period are dropped instead.
func (c *frametimeCollector) deliver(b batch) {
	if c.parker.stale(b.epoch) {
		return
	}

	c.out <- b
}

// nextStamp polls fbt_info until it shows a vsync stamp larger than after.
func (c *frametimeCollector) nextStamp(after, epoch uint64) (uint64, error) {
	for {
		text, transient, err := c.file.read()
		if err != nil {
			if !transient {
				return 0, err
			}
			c.log.Warn().Err(err).Msg("Failed to read fbt_info, retrying")
			time.Sleep(c.pollEvery)

			return 0, errRetry
		}

		stamp, ok := ParseFrameTime(text)
		if !ok {
			c.reenable()
			time.Sleep(c.pollEvery)

			return 0, errRetry
		}

		if stamp > after {
			return stamp, nil
		}

		if c.parker.stale(epoch) {
			return 0, errRetry
		}

		time.Sleep(c.pollEvery)
	}
}

// handle reports whether sampling can continue after err.
func (c *frametimeCollector) handle(err error) bool {
	if errors.Is(err, errRetry) {
		return true
	}

	c.onFatal(err)

	return false
}

func (c *frametimeCollector) reenable() {
	err := c.reenabler.Reenable()
	if err != nil {
		c.log.Debug().Err(err).Msg("Failed to reenable fpsgo")
	} else {
		c.log.Debug().Msg("fpsgo disabled, reenabled")
	}
	c.onReenable(err)
}
