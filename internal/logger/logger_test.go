package logger_test

import (
	"bytes"
	"testing"

	"codeberg.org/mutker/framectl/internal/errors"
	"codeberg.org/mutker/framectl/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Options{Out: &buf, Service: true})

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	logger.Init(logger.Options{Out: &buf, Service: true, Debug: true})
	logger.Debug().Msg("debugging")
	assert.Contains(t, buf.String(), "debugging")
}

func TestComponentField(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Options{Out: &buf, Service: true, Verbose: true})

	logger.Component("sensor").Info().Msg("started")

	assert.Contains(t, buf.String(), "component=sensor")
	assert.Contains(t, buf.String(), "started")
}

func TestErrorWithCode(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Options{Out: &buf, Service: true})

	logger.ErrorWithCode(errors.New().New(errors.ErrNoSensor)).Msg("startup")

	assert.Contains(t, buf.String(), "error_code=no_supported_sensor")
}
