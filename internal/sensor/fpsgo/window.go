package fpsgo

import "time"

type fpsSample struct {
	at  time.Time
	fps uint32
}

// fpsWindow keeps FPS samples in arrival order. Only the FPS collector
// goroutine touches it.
type fpsWindow struct {
	samples []fpsSample
}

func newFPSWindow() *fpsWindow {
	return &fpsWindow{samples: make([]fpsSample, 0, 1024)}
}

func (w *fpsWindow) push(at time.Time, fps uint32) {
	w.samples = append(w.samples, fpsSample{at: at, fps: fps})
}

// evict drops every sample older than retention at now.
func (w *fpsWindow) evict(now time.Time, retention time.Duration) {
	i := 0
	for i < len(w.samples) && now.Sub(w.samples[i].at) > retention {
		i++
	}

	if i == 0 {
		return
	}

	n := copy(w.samples, w.samples[i:])
	w.samples = w.samples[:n]
}

// average is the arithmetic mean of the samples, 0 when empty.
func (w *fpsWindow) average() uint32 {
	if len(w.samples) == 0 {
		return 0
	}

	var sum uint64
	for _, s := range w.samples {
		sum += uint64(s.fps)
	}

	return uint32(sum / uint64(len(w.samples)))
}

func (w *fpsWindow) size() int {
	return len(w.samples)
}

func (w *fpsWindow) reset() {
	w.samples = w.samples[:0]
}
