package state

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/Paintersrp/recall/internal/catalog"
	"github.com/Paintersrp/recall/internal/config"
	"github.com/Paintersrp/recall/internal/constants"
	"github.com/Paintersrp/recall/internal/pathutil"
)

// RootWatcher forwards filesystem events below the configured roots. The
// workspace root is watched on its own; the other roots are watched
// recursively down to maxDepth, including directories created later.
type RootWatcher struct {
	watcher  *fsnotify.Watcher
	roots    []catalog.Root
	maxDepth int
	logger   *slog.Logger
	done     chan struct{}
	once     sync.Once
}

func NewRootWatcher(paths config.Paths, maxDepth int, logger *slog.Logger) (*RootWatcher, error) {
	roots := catalog.Roots(paths)
	if len(roots) == 0 {
		return nil, errors.New("no directories configured to watch")
	}
	if maxDepth <= 0 {
		maxDepth = constants.DefaultWatchDepth
	}
	if logger == nil {
		logger = slog.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &RootWatcher{
		watcher:  w,
		roots:    roots,
		maxDepth: maxDepth,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// Watch registers every existing root and starts the event loop. Missing
// roots are skipped.
func (w *RootWatcher) Watch(ctx context.Context, notify func(string)) error {
	if w == nil {
		return errors.New("watcher is nil")
	}

	watched := 0
	for _, root := range w.roots {
		if !pathutil.DirExists(root.Path) {
			w.logger.Info("watcher: root missing, skipping", "path", root.Path)
			continue
		}
		if err := w.add(root, root.Path); err != nil {
			w.logger.Warn("watcher: cannot watch root", "path", root.Path, "error", err)
			continue
		}
		watched++
	}
	w.logger.Debug("watcher: started", "roots", watched)

	go w.loop(ctx, notify)
	return nil
}

func (w *RootWatcher) loop(ctx context.Context, notify func(string)) {
	for {
		select {
		case <-ctx.Done():
			_ = w.Close()
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.track(event.Name)
				}
			}

			if notify != nil {
				notify(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Warn("watcher: error", "error", err)
			}
		}
	}
}

// track starts watching a directory created after startup when it belongs
// to a recursive root, or is itself a root that did not exist before.
func (w *RootWatcher) track(dir string) {
	for _, root := range w.roots {
		if !root.Recursive {
			continue
		}
		if pathutil.Within(root.Path, dir) {
			if err := w.add(root, dir); err != nil {
				w.logger.Warn("watcher: cannot watch directory", "path", dir, "error", err)
			}
			return
		}
	}
}

func (w *RootWatcher) add(root catalog.Root, start string) error {
	if !root.Recursive {
		return w.watcher.Add(start)
	}

	return filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}

		if path != root.Path {
			name := d.Name()
			if pathutil.IsHidden(name) || catalog.IsSoftDeleted(name) {
				return filepath.SkipDir
			}
			if pathutil.Depth(root.Path, path) >= w.maxDepth {
				return filepath.SkipDir
			}
		}

		return w.watcher.Add(path)
	})
}

func (w *RootWatcher) Close() error {
	if w == nil {
		return nil
	}

	var closeErr error
	w.once.Do(func() {
		close(w.done)
		closeErr = w.watcher.Close()
	})
	return closeErr
}
