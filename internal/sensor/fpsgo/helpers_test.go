package fpsgo

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

const testRoot = "/sys/kernel/fpsgo"

// fbtInfo renders an fbt_info table whose enable row holds flag and stamp.
func fbtInfo(flag, stamp string) string {
	return strings.Join([]string{
		"clus\tmax\tmin",
		"3\t2\t0",
		"",
		"clus\tnum\tc\tr",
		"0\t4\t-1\t-1",
		"1\t3\t-1\t-1",
		"2\t1\t-1\t-1",
		"enable\tidleprefer\tmax_blc\tmax_pid\tmax_bufID\tdfps\tvsync",
		strings.TrimSpace(fmt.Sprintf("%s\t0\t\t13\t8606\t0x136d00000021\t120\t%s", flag, stamp)),
		"",
		"pid\tbufid\t\tperfidx",
	}, "\n")
}

// fpsgoStatus renders an fpsgo_status table with one surface per value.
func fpsgoStatus(fps ...int) string {
	var b strings.Builder
	b.WriteString("tid\tbufID\t\tname\t\tcurrentFPS\ttargetFPS\tFPS_margin\n")
	for i, v := range fps {
		fmt.Fprintf(&b, "%d\t0x%x\tsurface%d\t%d\t\t120\t\t0\n", 1000+i, i, i, v)
	}
	b.WriteString("fstb_self_ctrl_fps_enable:1\nfstb_is_cam_active:0\ndfps_ceiling:120\n")

	return b.String()
}

type fakeDevice struct {
	t    *testing.T
	fs   afero.Fs
	mu   sync.Mutex
	last uint64
}

func newFakeDevice(t *testing.T) *fakeDevice {
	t.Helper()

	d := &fakeDevice{t: t, fs: afero.NewMemMapFs()}
	require.NoError(t, d.fs.MkdirAll(filepath.Join(testRoot, "fbt"), 0o755))
	require.NoError(t, d.fs.MkdirAll(filepath.Join(testRoot, "fstb"), 0o755))
	require.NoError(t, d.fs.MkdirAll(filepath.Join(testRoot, "common"), 0o755))
	d.setStamp(1)
	d.setStatus(fpsgoStatus(60))

	return d
}

// write replaces name atomically so readers never see a truncated table.
func (d *fakeDevice) write(name, content string) {
	path := filepath.Join(testRoot, name)
	tmp := path + ".tmp"
	assert.NoError(d.t, afero.WriteFile(d.fs, tmp, []byte(content), 0o644))
	assert.NoError(d.t, d.fs.Rename(tmp, path))
}

func (d *fakeDevice) setStamp(stamp uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.last = stamp
	d.write(fbtInfoPath, fbtInfo("1", fmt.Sprint(stamp)))
}

func (d *fakeDevice) setStatus(text string) {
	d.write(statusPath, text)
}

func (d *fakeDevice) stamp() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.last
}

// feed advances the vsync stamp by step every interval until stop is called.
func (d *fakeDevice) feed(step uint64, every time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.setStamp(d.stamp() + step)
			}
		}
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}

type countingReenabler struct {
	calls *atomic.Int64
	err   error
}

func newCountingReenabler() *countingReenabler {
	return &countingReenabler{calls: atomic.NewInt64(0)}
}

func (r *countingReenabler) Reenable() error {
	r.calls.Inc()
	return r.err
}

func newTestSensor(t *testing.T, d *fakeDevice, opts ...Option) *Sensor {
	t.Helper()

	all := append([]Option{
		WithFs(d.fs),
		WithRoot(testRoot),
		withIntervals(time.Millisecond, time.Millisecond),
		WithFatalHandler(func(err error) { t.Errorf("unexpected fatal: %v", err) }),
	}, opts...)

	s, err := New(all...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Pause() })

	return s
}

// frameTimesWithin fails the test instead of blocking forever.
func frameTimesWithin(t *testing.T, s *Sensor, timeout time.Duration) []time.Duration {
	t.Helper()

	result := make(chan []time.Duration, 1)
	go func() { result <- s.FrameTimes(0) }()

	select {
	case samples := <-result:
		return samples
	case <-time.After(timeout):
		t.Fatal("timed out waiting for a frametime batch")
		return nil
	}
}
