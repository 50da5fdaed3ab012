package controller

import "codeberg.org/mutker/framectl/internal/errors"

const (
	ErrUnsupported     = errors.ErrorCode("controller_unsupported")
	ErrInitFailed      = errors.ErrorCode("controller_init_failed")
	ErrPlugFailed      = errors.ErrorCode("controller_plug_failed")
	ErrNoCandidateLeft = errors.ErrNoController
)

func init() {
	errors.RegisterMessages(map[errors.ErrorCode]string{
		ErrUnsupported: "Performance controller not supported",
		ErrInitFailed:  "Failed to start performance controller",
		ErrPlugFailed:  "Failed to take control of CPU frequencies",
	})
}
