package metrics

import "codeberg.org/mutker/framectl/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidAddr   = errors.ErrorCode("metrics_invalid_addr")

	// Registry Errors
	ErrRegisterFailed = errors.ErrorCode("metrics_register_failed")

	// Server Errors
	ErrListenFailed    = errors.ErrorCode("metrics_listen_failed")
	ErrServiceShutdown = errors.ErrShutdownFailed

	// Collection Errors
	ErrInvalidMetrics   = errors.ErrorCode("metrics_invalid_metrics")
	ErrOperationTimeout = errors.ErrorCode("metrics_operation_timeout")
)
