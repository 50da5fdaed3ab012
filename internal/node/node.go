// Package node exposes control values written by other processes through
// named pipes, one pipe per node.
package node

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"codeberg.org/mutker/framectl/internal/errors"
	"codeberg.org/mutker/framectl/internal/logger"
	"golang.org/x/sys/unix"
)

const (
	ErrInitFailed   = errors.ErrorCode("node_init_failed")
	ErrCreateFailed = errors.ErrorCode("node_create_failed")
	ErrNotFound     = errors.ErrorCode("node_not_found")
	ErrReadFailed   = errors.ErrorCode("node_read_failed")

	pipeMode = 0o644
	dirMode  = 0o755

	// consecutive pipe failures tolerated by a reader
	maxRetries = 10
)

type value struct {
	mu sync.RWMutex
	v  string
}

func (v *value) load() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.v
}

func (v *value) store(s string) {
	v.mu.Lock()
	v.v = s
	v.mu.Unlock()
}

// Nodes is the set of control pipes under one directory.
type Nodes struct {
	dir     string
	mu      sync.RWMutex
	values  map[string]*value
	log     logger.Logger
	onFatal func(error)
}

// New wipes dir and recreates it empty.
func New(dir string, log logger.Logger) (*Nodes, error) {
	errFactory := errors.New()

	if err := os.RemoveAll(dir); err != nil {
		return nil, errFactory.Wrap(ErrInitFailed, err)
	}
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, errFactory.Wrap(ErrInitFailed, err)
	}

	return &Nodes{
		dir:    dir,
		values: make(map[string]*value),
		log:    log,
		onFatal: func(err error) {
			logger.Fatal().Err(err).Msg("Too many node read failures")
		},
	}, nil
}

// SetFatalHandler replaces the handler run when a pipe keeps failing. The
// default exits the process.
func (n *Nodes) SetFatalHandler(fn func(error)) {
	n.mu.Lock()
	n.onFatal = fn
	n.mu.Unlock()
}

func (n *Nodes) fatal(err error) {
	n.mu.RLock()
	fn := n.onFatal
	n.mu.RUnlock()

	fn(err)
}

// Create makes the pipe for id and starts reading it. Creating an existing
// node is a no-op.
func (n *Nodes) Create(id, defaultValue string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.values[id]; ok {
		return nil
	}

	path := filepath.Join(n.dir, id)
	if err := unix.Mkfifo(path, pipeMode); err != nil {
		return errors.New().Wrap(ErrCreateFailed, &os.PathError{Op: "mkfifo", Path: path, Err: err})
	}

	v := &value{v: defaultValue}
	n.values[id] = v

	go n.watch(id, path, v)

	n.log.Debug().Str("node", id).Str("default", defaultValue).Msg("Node created")

	return nil
}

// Read returns the latest value written to id.
func (n *Nodes) Read(id string) (string, error) {
	n.mu.RLock()
	v, ok := n.values[id]
	n.mu.RUnlock()

	if !ok {
		return "", errors.New().WithData(ErrNotFound, id)
	}

	return v.load(), nil
}

// watch keeps the last line of every write. Opening the pipe blocks until
// a writer shows up.
func (n *Nodes) watch(id, path string, v *value) {
	retries := 0

	for {
		if retries > maxRetries {
			n.fatal(errors.New().WithData(ErrReadFailed, path))
			return
		}

		f, err := os.Open(path)
		if err != nil {
			retries++
			continue
		}

		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			retries++
			continue
		}
		retries = 0

		line := lastLine(string(data))
		if line == "" {
			continue
		}

		n.log.Debug().Str("node", id).Str("value", line).Msg("Node value updated")
		v.store(line)
	}
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
