package fpsgo

import (
	"time"

	"codeberg.org/mutker/framectl/internal/logger"
	"github.com/spf13/afero"
)

const (
	framePollInterval = 6 * time.Millisecond
	fpsSampleInterval = 8 * time.Millisecond
)

// Option configures a Sensor.
type Option func(*options)

type options struct {
	fs         afero.Fs
	root       string
	log        logger.Logger
	reenabler  Reenabler
	onReenable func(err error)
	onFatal    func(err error)
	pollEvery  time.Duration
	sampleWait time.Duration
	now        func() time.Time
}

func defaultOptions() *options {
	return &options{
		fs:         afero.NewOsFs(),
		root:       DefaultRoot,
		log:        logger.Nop(),
		onReenable: func(error) {},
		pollEvery:  framePollInterval,
		sampleWait: fpsSampleInterval,
		now:        time.Now,
	}
}

func buildOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if o.reenabler == nil {
		o.reenabler = NewReenabler(o.fs, o.root)
	}
	if o.onFatal == nil {
		o.onFatal = fatalHandler(o.log, exitUnsupported)
	}

	return o
}

// fatalHandler logs on the component logger before handing err to exit.
func fatalHandler(log logger.Logger, exit func(error)) func(error) {
	return func(err error) {
		log.Error().Err(err).Msg("Sampling stopped")
		exit(err)
	}
}

func exitUnsupported(err error) {
	logger.Fatal().Err(err).Msg("fpsgo vendor interface unreadable, device unsupported")
}

// WithFs reads the vendor interface from fs instead of the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithRoot sets the fpsgo directory, /sys/kernel/fpsgo by default.
func WithRoot(root string) Option {
	return func(o *options) {
		o.root = root
	}
}

func WithLogger(log logger.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

func WithReenabler(r Reenabler) Option {
	return func(o *options) {
		o.reenabler = r
	}
}

// WithOnReenable is called after every reenable attempt with its outcome.
func WithOnReenable(fn func(err error)) Option {
	return func(o *options) {
		o.onReenable = fn
	}
}

// WithFatalHandler replaces the default handler, which exits the process,
// for when a vendor file stays unreadable. The collector that hit the
// failure stops once the handler returns.
func WithFatalHandler(fn func(err error)) Option {
	return func(o *options) {
		o.onFatal = fn
	}
}

func withIntervals(poll, sample time.Duration) Option {
	return func(o *options) {
		o.pollEvery = poll
		o.sampleWait = sample
	}
}
