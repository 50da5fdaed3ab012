package errors

import "sync"

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrUnavailable     ErrorCode = "service_unavailable"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Lifecycle errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"
	ErrAlreadyRunning ErrorCode = "already_running"

	// Resource errors
	ErrResourceNotFound ErrorCode = "resource_not_found"

	// Application errors
	ErrInitApp       ErrorCode = "init_app_failed"
	ErrMainLoop      ErrorCode = "main_loop_failed"
	ErrNoSensor      ErrorCode = "no_supported_sensor"
	ErrNoController  ErrorCode = "no_supported_controller"
	ErrRestoreFreqs  ErrorCode = "restore_frequencies_failed"
	ErrInvalidResume ErrorCode = "invalid_resume_parameters"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:         "Internal error occurred",
	ErrInvalidArgument:  "Invalid argument provided",
	ErrUnavailable:      "Service unavailable",
	ErrInvalidConfig:    "Invalid configuration",
	ErrBindFlags:        "Failed to bind flags",
	ErrReadConfig:       "Failed to read config file",
	ErrInvalidInterval:  "Invalid interval value",
	ErrInvalidLogLevel:  "Invalid log level",
	ErrInitFailed:       "Initialization failed",
	ErrShutdownFailed:   "Shutdown failed",
	ErrAlreadyRunning:   "Another instance is already running",
	ErrResourceNotFound: "Resource not found",
	ErrInitApp:          "Failed to initialize application",
	ErrMainLoop:         "Error in main loop",
	ErrNoSensor:         "No supported frame sensor on this device",
	ErrNoController:     "No supported performance controller on this device",
	ErrRestoreFreqs:     "Failed to restore CPU frequencies",
	ErrInvalidResume:    "Invalid resume parameters",
}

var messagesMu sync.RWMutex

// RegisterMessages adds the messages of a package's own codes. Packages call
// it from init; an existing message is replaced.
func RegisterMessages(messages map[ErrorCode]string) {
	messagesMu.Lock()
	defer messagesMu.Unlock()

	for code, msg := range messages {
		errorMessages[code] = msg
	}
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	messagesMu.RLock()
	defer messagesMu.RUnlock()

	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
