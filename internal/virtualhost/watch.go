package virtualhost

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const manifestEvents = fsnotify.Create | fsnotify.Write | fsnotify.Rename

// WatchPages reloads list whenever its pages.json is created or written,
// until ctx is done.
func WatchPages(ctx context.Context, list *PageList, log zerolog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace files, so watch the directory rather than the file.
	if err := watcher.Add(filepath.Dir(list.ManifestPath())); err != nil {
		return fmt.Errorf("watch %s: %w", PagesFileName, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if isManifestEvent(list, ev) {
				reloadPages(list, log)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("watch error")
		}
	}
}

func isManifestEvent(list *PageList, ev fsnotify.Event) bool {
	return ev.Op&manifestEvents != 0 && filepath.Clean(ev.Name) == filepath.Clean(list.ManifestPath())
}

func reloadPages(list *PageList, log zerolog.Logger) {
	if err := list.Reload(); err != nil {
		log.Warn().Err(err).Msg("keeping previous page list")
		return
	}
	log.Info().Int("pages", len(list.Pages())).Msg("reloaded page list")
}

// Watch keeps components under the root rewritten as they change and reloads
// the page list when pages.json changes. It returns when ctx is done.
func (e *Engine) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := e.watchTree(watcher, e.root); err != nil {
		return err
	}
	manifestDir := filepath.Dir(e.pages.ManifestPath())
	if !isWithinDir(e.root, manifestDir) {
		if err := watcher.Add(manifestDir); err != nil {
			return fmt.Errorf("watch %s: %w", PagesFileName, err)
		}
	}
	e.log.Info().Str("root", e.root).Msg("watching for changes")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			e.handleEvent(watcher, ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.log.Error().Err(err).Msg("watch error")
		}
	}
}

func (e *Engine) handleEvent(watcher *fsnotify.Watcher, ev fsnotify.Event) {
	if isManifestEvent(e.pages, ev) {
		reloadPages(e.pages, e.log)
		return
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !isExcludedDir(info.Name()) {
				if err := e.watchTree(watcher, ev.Name); err != nil {
					e.log.Warn().Err(err).Msg("watch new directory")
				}
			}
			return
		}
	}
	if !isComponentPath(ev.Name) {
		return
	}
	fr, ok := e.processPath(ev.Name, ModeWrite)
	if ok && fr.Err != nil {
		e.log.Error().Err(fr.Err).Msg("transform failed")
	}
}

// watchTree adds dir and its non-excluded subdirectories to watcher.
func (e *Engine) watchTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isExcludedDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func isWithinDir(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
