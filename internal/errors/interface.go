package errors

// ErrorCode identifies a failure across packages, e.g. "sensor_vendor_read_failed".
// Codes are compared, never parsed.
type ErrorCode string

// Error is a coded error. Sensors, controllers and the scheduler return it so
// callers can branch on Code without matching on message text.
type Error interface {
	error
	Code() ErrorCode
	// WithMessage replaces the registered message for this instance only.
	WithMessage(msg string) Error
	// WithData attaches context such as the vendor file path or pid.
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

// Factory builds coded errors.
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
