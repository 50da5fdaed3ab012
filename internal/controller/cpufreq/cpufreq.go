// Package cpufreq controls performance by capping scaling_max_freq of every
// cpufreq policy, one step of the available frequency table at a time.
package cpufreq

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"codeberg.org/mutker/framectl/internal/controller"
	"codeberg.org/mutker/framectl/internal/errors"
	"codeberg.org/mutker/framectl/internal/logger"
	"github.com/spf13/afero"
)

const (
	Name        = "cpufreq"
	DefaultRoot = "/sys/devices/system/cpu/cpufreq"

	availableFile = "scaling_available_frequencies"
	maxFreqFile   = "scaling_max_freq"
	cpuinfoFile   = "cpuinfo_max_freq"

	historySize = 5
)

// Freq is a CPU frequency in kHz, as sysfs reports it.
type Freq uint64

type policy struct {
	dir     string
	table   []Freq
	cpuinfo Freq
	step    int
}

// Controller implements controller.PerformanceController over cpufreq.
type Controller struct {
	fs       afero.Fs
	root     string
	policies []*policy
	history  []int
	mu       sync.Mutex
	log      logger.Logger
}

var _ controller.PerformanceController = (*Controller)(nil)

// Support reports whether at least one policy exposes a frequency table.
func Support(fs afero.Fs, root string) bool {
	dirs, err := policyDirs(fs, root)
	return err == nil && len(dirs) > 0
}

// Candidate registers the cpufreq controller for controller.Select.
func Candidate(fs afero.Fs, root string, log logger.Logger) controller.Candidate {
	return controller.Candidate{
		Name:    Name,
		Support: func() bool { return Support(fs, root) },
		New: func() (controller.PerformanceController, error) {
			return New(fs, root, log)
		},
	}
}

// New reads the frequency tables of every policy under root.
func New(fs afero.Fs, root string, log logger.Logger) (*Controller, error) {
	errFactory := errors.New()

	dirs, err := policyDirs(fs, root)
	if err != nil {
		return nil, errFactory.Wrap(controller.ErrUnsupported, err)
	}
	if len(dirs) == 0 {
		return nil, errFactory.WithData(controller.ErrUnsupported, root)
	}

	c := &Controller{
		fs:      fs,
		root:    root,
		history: make([]int, 0, historySize),
		log:     log,
	}

	for _, dir := range dirs {
		p, err := loadPolicy(fs, dir)
		if err != nil {
			return nil, errFactory.Wrap(controller.ErrInitFailed, err)
		}

		log.Debug().
			Str("policy", filepath.Base(dir)).
			Int("steps", len(p.table)).
			Uint64("cpuinfo_max_freq", uint64(p.cpuinfo)).
			Msg("Policy loaded")

		c.policies = append(c.policies, p)
	}

	return c, nil
}

// PlugIn pins every policy at its highest available frequency.
func (c *Controller) PlugIn() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range c.policies {
		p.step = len(p.table) - 1
		if err := c.apply(p); err != nil {
			return errors.New().Wrap(controller.ErrPlugFailed, err)
		}
	}
	c.history = c.history[:0]

	return nil
}

// PlugOut restores cpuinfo_max_freq on every policy.
func (c *Controller) PlugOut() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for _, p := range c.policies {
		p.step = len(p.table) - 1
		if err := c.write(p.dir, p.cpuinfo); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if firstErr != nil {
		return errors.New().Wrap(errors.ErrRestoreFreqs, firstErr)
	}

	return nil
}

func (c *Controller) Limit() {
	c.shift(-1)
}

func (c *Controller) Release() {
	c.shift(1)
}

// Level returns the average step offset from the top of the table over the
// last few adjustments. Zero means unrestricted.
func (c *Controller) Level() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.history) == 0 {
		return 0
	}

	var sum int
	for _, h := range c.history {
		sum += h
	}

	return float64(sum) / float64(len(c.history))
}

// Current returns the frequency cap applied to each policy, in policy order.
func (c *Controller) Current() []Freq {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Freq, len(c.policies))
	for i, p := range c.policies {
		out[i] = p.table[p.step]
	}

	return out
}

func (c *Controller) shift(delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var offset int
	for _, p := range c.policies {
		step := clamp(p.step+delta, 0, len(p.table)-1)
		if step != p.step {
			p.step = step
			if err := c.apply(p); err != nil {
				c.log.Warn().Err(err).Str("policy", filepath.Base(p.dir)).Msg("Failed to set frequency cap")
			}
		}
		offset += len(p.table) - 1 - p.step
	}

	c.history = append(c.history, offset)
	if len(c.history) > historySize {
		c.history = c.history[1:]
	}
}

func (c *Controller) apply(p *policy) error {
	freq := p.table[p.step]
	c.log.Debug().Str("policy", filepath.Base(p.dir)).Uint64("freq", uint64(freq)).Msg("Frequency cap")

	return c.write(p.dir, freq)
}

func (c *Controller) write(dir string, freq Freq) error {
	path := filepath.Join(dir, maxFreqFile)
	return afero.WriteFile(c.fs, path, []byte(strconv.FormatUint(uint64(freq), 10)), 0o644)
}

func policyDirs(fs afero.Fs, root string) ([]string, error) {
	dirs, err := afero.Glob(fs, filepath.Join(root, "policy*"))
	if err != nil {
		return nil, err
	}

	out := dirs[:0]
	for _, dir := range dirs {
		if ok, _ := afero.Exists(fs, filepath.Join(dir, availableFile)); ok {
			out = append(out, dir)
		}
	}
	sort.Strings(out)

	return out, nil
}

func loadPolicy(fs afero.Fs, dir string) (*policy, error) {
	data, err := afero.ReadFile(fs, filepath.Join(dir, availableFile))
	if err != nil {
		return nil, err
	}

	table, err := parseTable(string(data))
	if err != nil {
		return nil, err
	}
	if len(table) == 0 {
		return nil, &os.PathError{Op: "parse", Path: filepath.Join(dir, availableFile), Err: os.ErrInvalid}
	}

	cpuinfo := table[len(table)-1]
	if data, err := afero.ReadFile(fs, filepath.Join(dir, cpuinfoFile)); err == nil {
		if v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64); err == nil {
			cpuinfo = Freq(v)
		}
	}

	return &policy{
		dir:     dir,
		table:   table,
		cpuinfo: cpuinfo,
		step:    len(table) - 1,
	}, nil
}

// parseTable reads a whitespace separated frequency list into ascending,
// deduplicated order.
func parseTable(s string) ([]Freq, error) {
	fields := strings.Fields(s)
	table := make([]Freq, 0, len(fields))

	for _, f := range fields {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return nil, err
		}
		table = append(table, Freq(v))
	}

	sort.Slice(table, func(i, j int) bool { return table[i] < table[j] })

	out := table[:0]
	for _, f := range table {
		if len(out) == 0 || f != out[len(out)-1] {
			out = append(out, f)
		}
	}

	return out, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}

	return v
}
