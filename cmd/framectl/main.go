package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/mutker/framectl/internal/config"
	"codeberg.org/mutker/framectl/internal/controller"
	"codeberg.org/mutker/framectl/internal/controller/cpufreq"
	"codeberg.org/mutker/framectl/internal/errors"
	"codeberg.org/mutker/framectl/internal/gamelist"
	"codeberg.org/mutker/framectl/internal/logger"
	"codeberg.org/mutker/framectl/internal/metrics"
	"codeberg.org/mutker/framectl/internal/node"
	"codeberg.org/mutker/framectl/internal/pid"
	"codeberg.org/mutker/framectl/internal/scheduler"
	"codeberg.org/mutker/framectl/internal/sensor"
	"codeberg.org/mutker/framectl/internal/sensor/fpsgo"
	"codeberg.org/mutker/framectl/internal/topapp"
	"github.com/spf13/afero"
)

var levels = map[config.LogLevel]logger.LogLevel{
	config.LogLevelDebug:   logger.DebugLevel,
	config.LogLevelInfo:    logger.InfoLevel,
	config.LogLevelWarning: logger.WarnLevel,
	config.LogLevelError:   logger.ErrorLevel,
}

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load(os.Args[1:])
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Options{
		Debug:   cfg.Debug,
		Verbose: cfg.Verbose,
		Service: logger.IsService(),
	})
	logger.SetLogLevel(levels[config.LogLevel(cfg.LogLevel)])
	logger.Debug().Msg("Config loaded")
}

func main() {
	if err := pid.Write(cfg.PIDDir); err != nil {
		if e, ok := err.(errors.Error); ok {
			logger.FatalWithCode(e).Msg("failed to write pid file")
		}
		logger.Fatal().Err(err).Msg("failed to write pid file")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	err := run(ctx)
	cleanup()
	if err != nil {
		logger.Fatal().Err(err).Msg("error in main loop")
	}
}

func run(ctx context.Context) error {
	nodes, err := node.New(cfg.NodeDir, logger.Component("node"))
	if err != nil {
		return err
	}
	if err := nodes.Create(scheduler.NodeEnable, "1"); err != nil {
		return err
	}
	if err := nodes.Create(scheduler.NodeMode, string(scheduler.ModeBalance)); err != nil {
		return err
	}

	games, err := gamelist.Load(cfg.Games, logger.Component("gamelist"))
	if err != nil {
		return err
	}
	if err := games.Watch(ctx); err != nil {
		return err
	}

	collector, err := metrics.NewService(metrics.Config{
		Addr:    cfg.MetricsAddr,
		Enabled: cfg.MetricsAddr != "",
	}, logger.Component("metrics"))
	if err != nil {
		return err
	}
	if err := collector.Serve(ctx); err != nil {
		return err
	}
	defer collector.Close()

	fs := afero.NewOsFs()

	frameSensor, err := sensor.Select(logger.Component("sensor"),
		fpsgo.Candidate(
			fpsgo.WithFs(fs),
			fpsgo.WithRoot(cfg.VendorRoot),
			fpsgo.WithLogger(logger.Component(fpsgo.Name)),
			fpsgo.WithOnReenable(collector.ObserveReenable),
		),
	)
	if err != nil {
		return err
	}

	pc, err := controller.Select(logger.Component("controller"),
		cpufreq.Candidate(fs, cfg.CPUFreqRoot, logger.Component(cpufreq.Name)),
	)
	if err != nil {
		return err
	}

	s := scheduler.New(frameSensor, pc, games, topapp.NewProbe(), nodes, collector, scheduler.Config{
		FPSWindow:    cfg.FPSWindow,
		IdleInterval: cfg.IdleInterval,
		Margin:       cfg.Margin,
	}, logger.Component("scheduler"))

	logger.Info().Int("games", len(games.Games())).Msg("framectl started")

	if err := s.Run(ctx); err != nil {
		return errors.New().Wrap(errors.ErrMainLoop, err)
	}

	return nil
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func cleanup() {
	if err := pid.Remove(cfg.PIDDir); err != nil {
		logger.Error().Err(err).Msg("failed to remove pid file")
	}
	logger.Info().Msg("Exiting...")
}
