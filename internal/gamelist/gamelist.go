// Package gamelist holds the hot-reloaded list of governed games.
//
//	[game_list]
//	"com.example.game" = [60, 120]
//
//	[config]
//	margin = 8
package gamelist

import (
	"context"
	"os"
	"sync"

	"codeberg.org/mutker/framectl/internal/errors"
	"codeberg.org/mutker/framectl/internal/logger"
	"github.com/pelletier/go-toml/v2"
)

// Bounds are the lower and upper FPS targets of a game.
type Bounds [2]uint32

type Document struct {
	GameList map[string][]int64 `toml:"game_list"`
	Config   map[string]any     `toml:"config"`
}

// FocusProbe lists the packages holding input focus.
type FocusProbe interface {
	Focused(ctx context.Context) ([]string, error)
}

// Store is the shared game list. Readers hold the lock for one access only,
// so the document may change between two calls.
type Store struct {
	path  string
	mu    sync.RWMutex
	games map[string]Bounds
	conf  map[string]any
	log   logger.Logger
}

// Load reads the document at path.
func Load(path string, log logger.Logger) (*Store, error) {
	s := &Store{path: path, log: log}
	if err := s.Reload(); err != nil {
		return nil, err
	}

	return s, nil
}

// Reload re-reads the document. The previous contents stay in place when
// the new document is invalid.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return errors.New().Wrap(ErrReadFailed, err)
	}

	games, conf, err := Parse(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.games = games
	s.conf = conf
	s.mu.Unlock()

	s.log.Info().Str("path", s.path).Int("games", len(games)).Msg("Game list loaded")

	return nil
}

// Parse decodes and validates a game list document.
func Parse(data []byte) (map[string]Bounds, map[string]any, error) {
	errFactory := errors.New()

	var doc Document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, nil, errFactory.Wrap(ErrDecodeFailed, err)
	}

	games := make(map[string]Bounds, len(doc.GameList))
	for pkg, values := range doc.GameList {
		if len(values) != 2 {
			return nil, nil, errFactory.WithData(ErrInvalidEntry, pkg+": expected [lower, upper]")
		}
		if values[0] <= 0 || values[1] <= 0 || values[0] > values[1] || values[1] > 1000 {
			return nil, nil, errFactory.WithData(ErrInvalidEntry, pkg+": bounds out of range")
		}

		games[pkg] = Bounds{uint32(values[0]), uint32(values[1])}
	}

	conf := doc.Config
	if conf == nil {
		conf = map[string]any{}
	}

	return games, conf, nil
}

// CurrentGame returns the first focused package that is in the game list.
func (s *Store) CurrentGame(ctx context.Context, probe FocusProbe) (string, Bounds, bool) {
	focused, err := probe.Focused(ctx)
	if err != nil {
		s.log.Debug().Err(err).Msg("Failed to probe focused packages")
		return "", Bounds{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, pkg := range focused {
		if bounds, ok := s.games[pkg]; ok {
			return pkg, bounds, true
		}
	}

	return "", Bounds{}, false
}

// Conf returns a value from the [config] table.
func (s *Store) Conf(label string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.conf[label]

	return v, ok
}

// ConfInt returns an integer value from the [config] table.
func (s *Store) ConfInt(label string) (int64, bool) {
	v, ok := s.Conf(label)
	if !ok {
		return 0, false
	}

	switch n := v.(type) {
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

// Games returns a copy of the game list.
func (s *Store) Games() map[string]Bounds {
	s.mu.RLock()
	defer s.mu.RUnlock()

	games := make(map[string]Bounds, len(s.games))
	for k, v := range s.games {
		games[k] = v
	}

	return games
}
