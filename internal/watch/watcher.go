package watch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"nutrition-tracker/internal/nutrition"
)

// FoodWatcher reloads the food database when its file changes.
type FoodWatcher struct {
	path     string
	format   nutrition.Format
	onReload func(*nutrition.Table)
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
}

// NewFoodWatcher watches the directory of path so that editors which replace
// the file by rename are noticed too. onReload is called from the Watch
// goroutine and must hand the table over to the session's own goroutine.
func NewFoodWatcher(path string, format nutrition.Format, onReload func(*nutrition.Table), logger zerolog.Logger) (*FoodWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	return &FoodWatcher{
		path:     filepath.Clean(path),
		format:   format,
		onReload: onReload,
		logger:   logger,
		watcher:  w,
	}, nil
}

// Watch runs until ctx is done or the watcher is closed.
func (fw *FoodWatcher) Watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != fw.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				fw.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("modified file")
				fw.HandleFileChange()
			}
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Error().Err(err).Msg("watch error")
		}
	}
}

// HandleFileChange reloads the database. A table that fails to load is
// discarded and the previous one stays in use.
func (fw *FoodWatcher) HandleFileChange() {
	table, err := nutrition.LoadFile(fw.path, fw.format)
	if err != nil {
		fw.logger.Error().Err(err).Str("file", fw.path).Msg("food database not reloaded")
		return
	}
	fw.logger.Info().Int("foods", table.Len()).Msg("food database reloaded")
	fw.onReload(table)
}

// Close stops watching.
func (fw *FoodWatcher) Close() error {
	return fw.watcher.Close()
}
