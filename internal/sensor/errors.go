package sensor

import "codeberg.org/mutker/framectl/internal/errors"

const (
	ErrUnsupported     = errors.ErrorCode("sensor_unsupported")
	ErrInitFailed      = errors.ErrorCode("sensor_init_failed")
	ErrInvalidResume   = errors.ErrorCode("sensor_invalid_resume")
	ErrVendorRead      = errors.ErrorCode("sensor_vendor_read_failed")
	ErrReenableFailed  = errors.ErrorCode("sensor_reenable_failed")
	ErrNoCandidateLeft = errors.ErrNoSensor
)

func init() {
	errors.RegisterMessages(map[errors.ErrorCode]string{
		ErrUnsupported:    "Frame sensor not supported",
		ErrInitFailed:     "Failed to start frame sensor",
		ErrInvalidResume:  "Frame count and FPS window must be positive",
		ErrVendorRead:     "Failed to read vendor frame table",
		ErrReenableFailed: "Failed to re-enable vendor frame interface",
	})
}
