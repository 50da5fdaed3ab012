// Package scheduler ties the frame sensor, the performance controller and
// the game list together. It steps performance down while the focused game
// keeps its frame budget and back up when frames run late.
package scheduler

import (
	"context"
	"time"

	"codeberg.org/mutker/framectl/internal/controller"
	"codeberg.org/mutker/framectl/internal/errors"
	"codeberg.org/mutker/framectl/internal/gamelist"
	"codeberg.org/mutker/framectl/internal/logger"
	"codeberg.org/mutker/framectl/internal/metrics"
	"codeberg.org/mutker/framectl/internal/sensor"
)

const (
	NodeEnable = "enable"
	NodeMode   = "mode"

	confMargin    = "margin"
	confFPSWindow = "fps_window_ms"

	defaultBatchTimeout = 2 * time.Second
)

// Games is the subset of the game list the scheduler reads.
type Games interface {
	CurrentGame(ctx context.Context, probe gamelist.FocusProbe) (string, gamelist.Bounds, bool)
	ConfInt(label string) (int64, bool)
}

// Nodes reads control node values.
type Nodes interface {
	Read(id string) (string, error)
}

// Leveler is implemented by controllers that report how far they are
// holding performance down.
type Leveler interface {
	Level() float64
}

type Config struct {
	FPSWindow    time.Duration
	IdleInterval time.Duration
	Margin       int
	// BatchTimeout bounds the wait for one batch of frame times.
	BatchTimeout time.Duration
}

type Scheduler struct {
	sensor     sensor.FrameSensor
	controller controller.PerformanceController
	games      Games
	probe      gamelist.FocusProbe
	nodes      Nodes
	metrics    metrics.Collector
	cfg        Config
	log        logger.Logger

	running bool
	game    string
	target  uint32
	window  time.Duration
	pending chan []time.Duration
}

func New(
	s sensor.FrameSensor,
	pc controller.PerformanceController,
	games Games,
	probe gamelist.FocusProbe,
	nodes Nodes,
	collector metrics.Collector,
	cfg Config,
	log logger.Logger,
) *Scheduler {
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaultBatchTimeout
	}

	return &Scheduler{
		sensor:     s,
		controller: pc,
		games:      games,
		probe:      probe,
		nodes:      nodes,
		metrics:    collector,
		cfg:        cfg,
		log:        log,
	}
}

// Run schedules until ctx is done, then pauses the sensor and plugs the
// controller out.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return s.stop()
		}

		game, bounds, ok := s.active(ctx)
		if !ok {
			if err := s.idle(ctx); err != nil {
				return err
			}
			continue
		}

		if err := s.round(ctx, game, bounds); err != nil {
			return err
		}
	}
}

// active reports the focused game when scheduling is enabled.
func (s *Scheduler) active(ctx context.Context) (string, gamelist.Bounds, bool) {
	if v, err := s.nodes.Read(NodeEnable); err != nil || v != "1" {
		return "", gamelist.Bounds{}, false
	}

	return s.games.CurrentGame(ctx, s.probe)
}

func (s *Scheduler) idle(ctx context.Context) error {
	if s.running {
		if err := s.stop(); err != nil {
			return err
		}
		s.record(ctx, 0, nil, DecisionIdle)
	}

	select {
	case <-ctx.Done():
		return nil
	case <-time.After(s.cfg.IdleInterval):
		return nil
	}
}

func (s *Scheduler) round(ctx context.Context, game string, bounds gamelist.Bounds) error {
	errFactory := errors.New()
	margin := s.mode().margin(s.margin())

	if !s.running || game != s.game {
		if err := s.controller.PlugIn(); err != nil {
			return errFactory.Wrap(errors.ErrMainLoop, err)
		}
		s.running = true
		s.game = game
		s.target = 0
		s.log.Info().Str("game", game).Msg("Scheduling started")
	}

	target := chooseTarget(s.sensor.FPS(), bounds, margin)
	if window := s.fpsWindow(); target != s.target || window != s.window {
		if err := s.sensor.Resume(int(target), window); err != nil {
			return errFactory.Wrap(errors.ErrMainLoop, err)
		}
		s.target = target
		s.window = window
		s.log.Debug().Str("game", game).Uint32("target", target).Dur("fps_window", window).Msg("Sensor resumed")
	}

	frametimes, ok := s.frameTimes(ctx, target)
	if !ok {
		return nil
	}

	decision := decide(frametimes, target, margin)
	switch decision {
	case DecisionLimit:
		s.controller.Limit()
	case DecisionRelease:
		s.controller.Release()
	}

	s.log.Debug().
		Str("game", game).
		Uint32("target", target).
		Int("frames", len(frametimes)).
		Str("decision", string(decision)).
		Msg("Round finished")

	s.record(ctx, target, frametimes, decision)

	return nil
}

// frameTimes waits for one batch. A wait cut short by ctx or the batch
// timeout is picked up again by the next call, so at most one FrameTimes
// call is ever outstanding.
func (s *Scheduler) frameTimes(ctx context.Context, target uint32) ([]time.Duration, bool) {
	if s.pending == nil {
		ch := make(chan []time.Duration, 1)
		go func() {
			ch <- s.sensor.FrameTimes(target)
		}()
		s.pending = ch
	}

	timer := time.NewTimer(s.cfg.BatchTimeout)
	defer timer.Stop()

	select {
	case ft := <-s.pending:
		s.pending = nil
		return ft, true
	case <-ctx.Done():
		return nil, false
	case <-timer.C:
		s.log.Debug().Dur("timeout", s.cfg.BatchTimeout).Msg("No frame batch in time")
		return nil, false
	}
}

func (s *Scheduler) stop() error {
	if !s.running {
		return nil
	}
	s.running = false
	s.game = ""
	s.target = 0
	s.window = 0

	if err := s.sensor.Pause(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to pause sensor")
	}
	if err := s.controller.PlugOut(); err != nil {
		return errors.New().Wrap(errors.ErrRestoreFreqs, err)
	}

	s.log.Info().Msg("Scheduling stopped")

	return nil
}

func (s *Scheduler) mode() Mode {
	v, err := s.nodes.Read(NodeMode)
	if err != nil {
		return ModeBalance
	}

	return Mode(v)
}

func (s *Scheduler) margin() int {
	if v, ok := s.games.ConfInt(confMargin); ok && v >= 0 && v <= 100 {
		return int(v)
	}

	return s.cfg.Margin
}

func (s *Scheduler) fpsWindow() time.Duration {
	if v, ok := s.games.ConfInt(confFPSWindow); ok && v > 0 {
		return time.Duration(v) * time.Millisecond
	}

	return s.cfg.FPSWindow
}

func (s *Scheduler) record(ctx context.Context, target uint32, frametimes []time.Duration, decision Decision) {
	snapshot := &metrics.Snapshot{
		Timestamp:  time.Now(),
		Game:       s.game,
		Mode:       string(s.mode()),
		FPS:        s.sensor.FPS(),
		Target:     target,
		Frametimes: frametimes,
		Decision:   string(decision),
	}
	if l, ok := s.controller.(Leveler); ok {
		snapshot.Level = l.Level()
	}

	if err := s.metrics.Record(ctx, snapshot); err != nil {
		s.log.Debug().Err(err).Msg("Failed to record metrics")
	}
}
