package scheduler

import (
	"time"

	"codeberg.org/mutker/framectl/internal/gamelist"
)

// Decision is the adjustment taken after one batch.
type Decision string

const (
	DecisionLimit   Decision = "limit"
	DecisionRelease Decision = "release"
	DecisionHold    Decision = "hold"
	DecisionIdle    Decision = "idle"
)

// Mode is the value of the mode node.
type Mode string

const (
	ModeBalance     Mode = "balance"
	ModePerformance Mode = "performance"
	ModePowersave   Mode = "powersave"
)

// margin scales the base margin, in percent, for mode. Unknown modes keep
// the base.
func (m Mode) margin(base int) float64 {
	switch m {
	case ModePerformance:
		return float64(base) / 2
	case ModePowersave:
		return float64(base) * 2
	default:
		return float64(base)
	}
}

// chooseTarget aims for the upper bound once the game runs clearly above
// the lower one.
func chooseTarget(fps uint32, bounds gamelist.Bounds, margin float64) uint32 {
	lower, upper := bounds[0], bounds[1]
	if float64(fps) > float64(lower)*(1+margin/100) {
		return upper
	}

	return lower
}

// decide compares the mean frame time against the budget of target.
func decide(frametimes []time.Duration, target uint32, margin float64) Decision {
	if len(frametimes) == 0 || target == 0 {
		return DecisionHold
	}

	var sum time.Duration
	for _, ft := range frametimes {
		sum += ft
	}
	avg := float64(sum) / float64(len(frametimes))
	budget := float64(time.Second) / float64(target)

	switch {
	case avg > budget*(1+margin/100):
		return DecisionRelease
	case avg < budget*(1-margin/100):
		return DecisionLimit
	default:
		return DecisionHold
	}
}
