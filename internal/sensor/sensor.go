package sensor

import (
	"codeberg.org/mutker/framectl/internal/errors"
	"codeberg.org/mutker/framectl/internal/logger"
)

// Select probes the candidates in order and constructs the first one the
// device supports.
func Select(log logger.Logger, candidates ...Candidate) (FrameSensor, error) {
	errFactory := errors.New()

	for _, c := range candidates {
		if !c.Support() {
			log.Debug().Str("sensor", c.Name).Msg("Sensor not supported")
			continue
		}

		s, err := c.New()
		if err != nil {
			return nil, errFactory.Wrap(ErrInitFailed, err).WithData(c.Name)
		}

		log.Info().Str("sensor", c.Name).Msg("Sensor selected")

		return s, nil
	}

	return nil, errFactory.New(ErrNoCandidateLeft)
}
