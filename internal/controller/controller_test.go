package controller_test

import (
	"testing"

	"codeberg.org/mutker/framectl/internal/controller"
	"codeberg.org/mutker/framectl/internal/errors"
	"codeberg.org/mutker/framectl/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubController struct{ name string }

func (stubController) Limit()         {}
func (stubController) Release()       {}
func (stubController) PlugIn() error  { return nil }
func (stubController) PlugOut() error { return nil }

func candidate(name string, supported bool, newErr error) controller.Candidate {
	return controller.Candidate{
		Name:    name,
		Support: func() bool { return supported },
		New: func() (controller.PerformanceController, error) {
			if newErr != nil {
				return nil, newErr
			}
			return stubController{name: name}, nil
		},
	}
}

func TestSelectFirstSupported(t *testing.T) {
	pc, err := controller.Select(logger.Nop(),
		candidate("a", false, nil),
		candidate("b", true, nil),
		candidate("c", true, nil),
	)
	require.NoError(t, err)
	assert.Equal(t, stubController{name: "b"}, pc)
}

func TestSelectNoneSupported(t *testing.T) {
	_, err := controller.Select(logger.Nop(), candidate("a", false, nil))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrNoController))
}

func TestSelectConstructionFails(t *testing.T) {
	_, err := controller.Select(logger.Nop(),
		candidate("a", true, errors.New().New(errors.ErrInternal)),
		candidate("b", true, nil),
	)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, controller.ErrInitFailed))
	assert.True(t, errors.HasCode(err, errors.ErrInternal))
}
