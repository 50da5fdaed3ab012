package sensor

import "time"

// FrameSensor senses frame completion on a device. Implementations own their
// sampling goroutines and start parked.
type FrameSensor interface {
	// FrameTimes blocks until the next full batch of frame times is ready.
	FrameTimes(targetFPS uint32) []time.Duration
	// FPS returns the most recently published average without blocking.
	FPS() uint32
	// Pause stops sampling and discards buffered state.
	Pause() error
	// Resume sets the batch size and the FPS averaging window and wakes sampling.
	Resume(frametimeCount int, fpsWindow time.Duration) error
}

// Candidate is one device-specific implementation, probed before construction.
type Candidate struct {
	Name    string
	Support func() bool
	New     func() (FrameSensor, error)
}
