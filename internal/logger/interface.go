package logger

import "github.com/rs/zerolog"

// Logger defines the logging operations components depend on.
// *zerolog.Logger satisfies it.
type Logger interface {
	Debug() *zerolog.Event
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
}
