package metrics_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codeberg.org/mutker/framectl/internal/errors"
	"codeberg.org/mutker/framectl/internal/logger"
	"codeberg.org/mutker/framectl/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnabled(t *testing.T) metrics.Collector {
	t.Helper()

	c, err := metrics.NewService(metrics.Config{Addr: "127.0.0.1:0", Enabled: true}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)

	return rec.Code, string(body)
}

func TestDisabledIsNoop(t *testing.T) {
	c, err := metrics.NewService(metrics.DefaultConfig(), logger.Nop())
	require.NoError(t, err)

	require.NoError(t, c.Record(context.Background(), &metrics.Snapshot{}))
	require.NoError(t, c.Serve(context.Background()))
	require.NoError(t, c.Close())

	code, _ := get(t, c.Handler(), "/metrics")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestInvalidAddr(t *testing.T) {
	_, err := metrics.NewService(metrics.Config{Addr: "nope", Enabled: true}, logger.Nop())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, metrics.ErrInvalidAddr))
}

func TestRecordNil(t *testing.T) {
	c := newEnabled(t)

	err := c.Record(context.Background(), nil)
	assert.True(t, errors.HasCode(err, metrics.ErrInvalidMetrics))
}

func TestRecordCancelled(t *testing.T) {
	c := newEnabled(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Record(ctx, &metrics.Snapshot{})
	assert.True(t, errors.HasCode(err, metrics.ErrOperationTimeout))
}

func TestMetricsAndStatus(t *testing.T) {
	c := newEnabled(t)

	code, _ := get(t, c.Handler(), "/status")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	require.NoError(t, c.Record(context.Background(), &metrics.Snapshot{
		Timestamp:  time.Unix(1700000000, 0).UTC(),
		Game:       "com.example.game",
		Mode:       "balance",
		FPS:        58,
		Target:     60,
		Frametimes: []time.Duration{16 * time.Millisecond, 17 * time.Millisecond},
		Decision:   "release",
		Level:      1.5,
	}))
	c.ObserveReenable(nil)
	c.ObserveReenable(errors.New().New(errors.ErrInternal))

	code, body := get(t, c.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "framectl_fps 58")
	assert.Contains(t, body, "framectl_target_fps 60")
	assert.Contains(t, body, "framectl_limit_level 1.5")
	assert.Contains(t, body, `framectl_decisions_total{decision="release"} 1`)
	assert.Contains(t, body, `framectl_frametime_seconds_count{game="com.example.game"} 2`)
	assert.Contains(t, body, `framectl_sensor_reenables_total{result="failed"} 1`)
	assert.Contains(t, body, `framectl_sensor_reenables_total{result="ok"} 1`)

	code, body = get(t, c.Handler(), "/status")
	require.Equal(t, http.StatusOK, code)

	var status map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &status))
	assert.Equal(t, "com.example.game", status["game"])
	assert.Equal(t, "release", status["decision"])
	assert.EqualValues(t, 60, status["target"])
	assert.NotContains(t, status, "Frametimes")
}

func TestServe(t *testing.T) {
	c := newEnabled(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, c.Serve(ctx))
	require.NoError(t, c.Close())
}
