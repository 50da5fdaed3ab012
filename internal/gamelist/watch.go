package gamelist

import (
	"context"
	"path/filepath"

	"codeberg.org/mutker/framectl/internal/errors"
	"github.com/fsnotify/fsnotify"
)

// Watch reloads the store whenever its file changes until ctx is done.
// The parent directory is watched because editors and package managers
// replace the file instead of writing it in place.
func (s *Store) Watch(ctx context.Context) error {
	errFactory := errors.New()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errFactory.Wrap(ErrWatchFailed, err)
	}

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return errFactory.Wrap(ErrWatchFailed, err)
	}

	go s.watch(ctx, watcher)

	return nil
}

func (s *Store) watch(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	target := filepath.Clean(s.path)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			if err := s.Reload(); err != nil {
				s.log.Warn().Err(err).Str("path", s.path).Msg("Failed to reload game list, keeping previous")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn().Err(err).Msg("Game list watcher error")
		}
	}
}
