// Package controller defines how framectl adjusts device performance and
// picks an implementation for the running device.
package controller

import (
	"codeberg.org/mutker/framectl/internal/errors"
	"codeberg.org/mutker/framectl/internal/logger"
)

// Select constructs the first supported candidate.
func Select(log logger.Logger, candidates ...Candidate) (PerformanceController, error) {
	errFactory := errors.New()

	for _, c := range candidates {
		if !c.Support() {
			log.Debug().Str("controller", c.Name).Msg("Controller not supported")
			continue
		}

		pc, err := c.New()
		if err != nil {
			return nil, errFactory.Wrap(ErrInitFailed, err).WithData(c.Name)
		}

		log.Info().Str("controller", c.Name).Msg("Controller selected")

		return pc, nil
	}

	return nil, errFactory.New(ErrNoCandidateLeft)
}
