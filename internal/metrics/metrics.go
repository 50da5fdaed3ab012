// Package metrics exposes scheduler state as prometheus metrics and a JSON
// status document. Nothing is persisted.
package metrics

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"codeberg.org/mutker/framectl/internal/errors"
	"codeberg.org/mutker/framectl/internal/logger"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace       = "framectl"
	shutdownTimeout = time.Second
)

type service struct {
	cfg      Config
	registry *prometheus.Registry
	router   *mux.Router
	log      logger.Logger

	frametime *prometheus.HistogramVec
	fps       prometheus.Gauge
	target    prometheus.Gauge
	level     prometheus.Gauge
	decisions *prometheus.CounterVec
	reenables *prometheus.CounterVec

	mu   sync.RWMutex
	last *Snapshot
	srv  *http.Server
}

// No-op implementation
type noopCollector struct{}

func NewService(cfg Config, log logger.Logger) (Collector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	// If metrics is disabled, return a no-op collector
	if !cfg.Enabled {
		log.Debug().Msg("Metrics disabled, using no-op collector")
		return &noopCollector{}, nil
	}

	s := &service{
		cfg:      cfg,
		registry: prometheus.NewRegistry(),
		log:      log,
		frametime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frametime_seconds",
			Help:      "Frame intervals reported by the sensor.",
			Buckets:   []float64{0.004, 0.007, 0.0084, 0.0112, 0.0167, 0.025, 0.0334, 0.05, 0.1},
		}, []string{"game"}),
		fps: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fps",
			Help:      "Averaged FPS over the configured window.",
		}),
		target: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "target_fps",
			Help:      "FPS target chosen for the focused game.",
		}),
		level: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "limit_level",
			Help:      "Average number of steps the controller is held below maximum.",
		}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Scheduler decisions by kind.",
		}, []string{"decision"}),
		reenables: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_reenables_total",
			Help:      "Attempts to re-enable the vendor frame interface.",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{s.frametime, s.fps, s.target, s.level, s.decisions, s.reenables} {
		if err := s.registry.Register(c); err != nil {
			return nil, errFactory.Wrap(ErrRegisterFailed, err)
		}
	}

	s.router = mux.NewRouter()
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	s.router.HandleFunc("/status", s.statusHandler).Methods(http.MethodGet)

	log.Debug().
		Str("addr", cfg.Addr).
		Bool("enabled", cfg.Enabled).
		Msg("Metrics service initialized successfully")

	return s, nil
}

func (s *service) Record(ctx context.Context, snapshot *Snapshot) error {
	errFactory := errors.New()

	if snapshot == nil {
		return errFactory.New(ErrInvalidMetrics)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
	}

	for _, ft := range snapshot.Frametimes {
		s.frametime.WithLabelValues(snapshot.Game).Observe(ft.Seconds())
	}
	s.fps.Set(float64(snapshot.FPS))
	s.target.Set(float64(snapshot.Target))
	s.level.Set(snapshot.Level)
	s.decisions.WithLabelValues(snapshot.Decision).Inc()

	s.mu.Lock()
	s.last = snapshot
	s.mu.Unlock()

	return nil
}

func (s *service) ObserveReenable(err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	s.reenables.WithLabelValues(result).Inc()
}

func (s *service) Handler() http.Handler {
	return s.router
}

// Serve listens on the configured address until ctx is done.
func (s *service) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.New().Wrap(ErrListenFailed, err)
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: time.Second,
	}

	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("Metrics server stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		if err := s.Close(); err != nil {
			s.log.Debug().Err(err).Msg("Metrics server shutdown")
		}
	}()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("Serving metrics")

	return nil
}

func (s *service) Close() error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return errors.New().Wrap(ErrServiceShutdown, err)
	}

	return nil
}

func (s *service) statusHandler(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()

	if last == nil {
		http.Error(w, `{"error":"no scheduling round yet"}`, http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(last); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode status")
	}
}

// No-op implementation
func (*noopCollector) Record(_ context.Context, _ *Snapshot) error {
	return nil
}

func (*noopCollector) ObserveReenable(error) {}

func (*noopCollector) Handler() http.Handler {
	return http.NotFoundHandler()
}

func (*noopCollector) Serve(context.Context) error {
	return nil
}

func (*noopCollector) Close() error {
	return nil
}
