package fpsgo

import (
	"sync"

	"go.uber.org/atomic"
)

// parker parks the collector goroutines while the sensor is paused. The
// epoch advances on every pause and resume so a goroutine can tell that state it
// gathered belongs to an earlier sampling period. pauses only advances on
// pause, for state that survives a change of parameters.
type parker struct {
	paused *atomic.Bool
	epoch  *atomic.Uint64
	pauses *atomic.Uint64
	mu     sync.Mutex
	cond   *sync.Cond
}

func newParker() *parker {
	p := &parker{
		paused: atomic.NewBool(true),
		epoch:  atomic.NewUint64(0),
		pauses: atomic.NewUint64(0),
	}
	p.cond = sync.NewCond(&p.mu)

	return p
}

func (p *parker) pause() {
	p.mu.Lock()
	p.paused.Store(true)
	p.epoch.Inc()
	p.pauses.Inc()
	p.mu.Unlock()
}

// resume must be called after the collectors' parameters are stored. It
// also starts a new epoch when sampling was already running, so no batch
// mixes samples gathered under different parameters.
func (p *parker) resume() {
	p.mu.Lock()
	p.epoch.Inc()
	p.paused.Store(false)
	p.cond.Broadcast()
	p.mu.Unlock()
}

// wait blocks while paused and returns the epoch sampling resumed in.
func (p *parker) wait() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.paused.Load() {
		p.cond.Wait()
	}

	return p.epoch.Load()
}

// stale reports whether a pause or resume happened since epoch was handed
// out.
func (p *parker) stale(epoch uint64) bool {
	return p.paused.Load() || p.epoch.Load() != epoch
}

// waitPauses is wait for state kept across resumes. It returns the pause
// count sampling resumed under.
func (p *parker) waitPauses() uint64 {
	p.wait()
	return p.pauses.Load()
}

// interrupted reports whether a pause happened since pauses was handed out.
func (p *parker) interrupted(pauses uint64) bool {
	return p.paused.Load() || p.pauses.Load() != pauses
}
