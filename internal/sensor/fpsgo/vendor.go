package fpsgo

import (
	"path/filepath"

	"codeberg.org/mutker/framectl/internal/errors"
	"codeberg.org/mutker/framectl/internal/sensor"
	"github.com/spf13/afero"
)

const (
	DefaultRoot = "/sys/kernel/fpsgo"

	fbtInfoPath = "fbt/fbt_info"
	statusPath  = "fstb/fpsgo_status"
	enablePath  = "common/fpsgo_enable"

	// consecutive read failures tolerated before the device is given up on
	maxReadFailures = 10
)

// Reenabler turns fpsgo back on after it reported itself disabled.
type Reenabler interface {
	Reenable() error
}

type enabler struct {
	fs   afero.Fs
	path string
}

// NewReenabler writes to common/fpsgo_enable under root.
func NewReenabler(fs afero.Fs, root string) Reenabler {
	return &enabler{fs: fs, path: filepath.Join(root, enablePath)}
}

func (e *enabler) Reenable() error {
	if err := afero.WriteFile(e.fs, e.path, []byte("1"), 0o644); err != nil {
		return errors.New().Wrap(sensor.ErrReenableFailed, err)
	}

	return nil
}

// vendorFile reads one fpsgo table. It is owned by a single collector
// goroutine, so the failure counter needs no synchronization.
type vendorFile struct {
	fs       afero.Fs
	path     string
	failures int
}

func newVendorFile(fs afero.Fs, root, name string) *vendorFile {
	return &vendorFile{fs: fs, path: filepath.Join(root, name)}
}

// read returns the file contents. transient is true when the failure is
// still within the retry budget.
func (f *vendorFile) read() (text string, transient bool, err error) {
	data, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		f.failures++
		wrapped := errors.New().Wrap(sensor.ErrVendorRead, err).WithData(f.path)

		return "", f.failures <= maxReadFailures, wrapped
	}

	f.failures = 0

	return string(data), false, nil
}

func supported(fs afero.Fs, root string) bool {
	for _, name := range []string{fbtInfoPath, statusPath} {
		if _, err := afero.ReadFile(fs, filepath.Join(root, name)); err != nil {
			return false
		}
	}

	return true
}
