// Package topapp finds the packages that currently hold input focus.
package topapp

import (
	"bufio"
	"context"
	"os/exec"
	"strings"

	"codeberg.org/mutker/framectl/internal/errors"
)

const ErrDumpFailed = errors.ErrorCode("topapp_dump_failed")

// Runner runs a command and returns its standard output.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Probe lists focused packages through dumpsys.
type Probe struct {
	runner Runner
}

func NewProbe() *Probe {
	return &Probe{runner: execRunner{}}
}

func NewProbeWithRunner(r Runner) *Probe {
	return &Probe{runner: r}
}

// Focused returns the packages whose windows can receive keys.
func (p *Probe) Focused(ctx context.Context) ([]string, error) {
	out, err := p.runner.Output(ctx, "dumpsys", "window", "visible-apps")
	if err != nil {
		return nil, errors.New().Wrap(ErrDumpFailed, err)
	}

	return ParseFocused(string(out)), nil
}

// ParseFocused pairs every "package=" line of a window dump with the
// matching "canReceiveKeys()" line, in order, and keeps the packages that
// can receive keys.
func ParseFocused(dump string) []string {
	var (
		packages []string
		keys     []bool
	)

	scanner := bufio.NewScanner(strings.NewReader(dump))
	for scanner.Scan() {
		line := scanner.Text()

		if strings.Contains(line, "package=") {
			packages = append(packages, packageName(line))
		}
		if strings.Contains(line, "canReceiveKeys()") {
			keys = append(keys, strings.Contains(line, "canReceiveKeys()=true"))
		}
	}

	var focused []string
	for i := 0; i < len(packages) && i < len(keys); i++ {
		if keys[i] && packages[i] != "" {
			focused = append(focused, packages[i])
		}
	}

	return focused
}

// packageName reads "package=<name>" from the third field of a window line.
func packageName(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return ""
	}

	_, name, ok := strings.Cut(fields[2], "=")
	if !ok {
		return ""
	}

	return name
}
