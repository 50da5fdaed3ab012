package metrics

import (
	"context"
	"net/http"
	"time"
)

// Collector records scheduler state for scraping.
type Collector interface {
	Record(ctx context.Context, snapshot *Snapshot) error
	ObserveReenable(err error)
	Handler() http.Handler
	Serve(ctx context.Context) error
	Close() error
}

// Snapshot is the state of one scheduling round.
type Snapshot struct {
	Timestamp  time.Time       `json:"timestamp"`
	Game       string          `json:"game,omitempty"`
	Mode       string          `json:"mode"`
	FPS        uint32          `json:"fps"`
	Target     uint32          `json:"target"`
	Frametimes []time.Duration `json:"-"`
	Decision   string          `json:"decision"`
	Level      float64         `json:"level"`
}
