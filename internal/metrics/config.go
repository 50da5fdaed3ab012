package metrics

import (
	"net"

	"codeberg.org/mutker/framectl/internal/errors"
)

const defaultAddr = "127.0.0.1:9464"

type Config struct {
	Addr    string
	Enabled bool
}

func DefaultConfig() Config {
	return Config{
		Addr:    defaultAddr,
		Enabled: false, // Disabled by default
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate Addr if metrics is enabled
	if !c.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return errFactory.Wrap(ErrInvalidAddr, err)
	}

	return nil
}
